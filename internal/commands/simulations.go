package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/examprep/client-go/services"
)

func newSimulationsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulations",
		Short: "Manage mock exams",
	}
	cmd.AddCommand(newSimulationsListCmd(e), newSimulationsSubmitCmd(e))
	return cmd
}

func newSimulationsListCmd(e *env) *cobra.Command {
	var params services.ListSimulationsParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your simulations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := e.api.Simulations.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}

	f := cmd.Flags()
	f.StringVar(&params.Status, "status", "", "pending, in_progress or completed")
	f.IntVar(&params.Limit, "limit", 0, "page size (max 100)")
	f.IntVar(&params.Offset, "offset", 0, "number of simulations to skip")
	return cmd
}

func newSimulationsSubmitCmd(e *env) *cobra.Command {
	var answers []string

	cmd := &cobra.Command{
		Use:   "submit SIMULATION_ID",
		Short: "Hand in the answers of a simulation",
		Example: `  examprep simulations submit 9b8c7d6e --answer q1=2 --answer q2=0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseAnswers(answers)
			if err != nil {
				return err
			}
			result, err := e.api.Simulations.Submit(cmd.Context(), services.SubmitSimulationRequest{
				SimulationID: args[0],
				Answers:      items,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringArrayVar(&answers, "answer", nil, "QUESTION_ID=OPTION, repeatable; options are zero based")
	return cmd
}

// parseAnswers turns QUESTION_ID=OPTION pairs into answer items.
func parseAnswers(pairs []string) ([]services.AnswerItem, error) {
	items := make([]services.AnswerItem, 0, len(pairs))
	for _, pair := range pairs {
		id, option, ok := strings.Cut(pair, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid answer %q: want QUESTION_ID=OPTION", pair)
		}
		n, err := strconv.Atoi(option)
		if err != nil {
			return nil, fmt.Errorf("invalid option in answer %q: %w", pair, err)
		}
		items = append(items, services.AnswerItem{QuestionID: id, SelectedOption: n})
	}
	return items, nil
}

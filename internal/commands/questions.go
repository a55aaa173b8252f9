package commands

import (
	"github.com/spf13/cobra"

	"github.com/examprep/client-go/services"
)

func newQuestionsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Browse exam questions",
	}
	cmd.AddCommand(newQuestionsListCmd(e), newQuestionsGetCmd(e), newQuestionsSubjectsCmd(e))
	return cmd
}

func newQuestionsListCmd(e *env) *cobra.Command {
	var filters services.QuestionFilters

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := e.api.Questions.List(cmd.Context(), filters)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}

	f := cmd.Flags()
	f.StringVar(&filters.Subject, "subject", "", "subject filter")
	f.StringVar(&filters.Difficulty, "difficulty", "", "easy, medium or hard")
	f.IntVar(&filters.Year, "year", 0, "exam year")
	f.StringVar(&filters.Status, "status", "", "status filter")
	f.IntVar(&filters.Limit, "limit", 0, "page size (max 100)")
	f.IntVar(&filters.Offset, "offset", 0, "number of questions to skip")
	return cmd
}

func newQuestionsGetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "get QUESTION_ID",
		Short: "Show one question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := e.api.Questions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), q)
		},
	}
}

func newQuestionsSubjectsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "subjects",
		Short: "List question subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			subjects, err := e.api.Questions.Subjects(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), subjects)
		},
	}
}

package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/examprep/client-go/services"
)

func newEssaysCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "essays",
		Short: "Essay correction",
	}
	cmd.AddCommand(newEssaysCorrectCmd(e))
	return cmd
}

func newEssaysCorrectCmd(e *env) *cobra.Command {
	var (
		req  services.CorrectEssayRequest
		file string
	)

	cmd := &cobra.Command{
		Use:   "correct",
		Short: "Submit an essay for correction",
		Long:  "Submit an essay for correction. The text is read from --file, or from stdin when the file is -.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := readContent(cmd, file)
			if err != nil {
				return err
			}
			req.Content = content

			correction, err := e.api.Essays.Correct(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), correction)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Title, "title", "", "essay title")
	f.StringVar(&req.Subject, "subject", "", "essay subject")
	f.StringVarP(&file, "file", "f", "", "file holding the essay text, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readContent(cmd *cobra.Command, file string) (string, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("essay file %s does not exist", file)
	}
	if err != nil {
		return "", fmt.Errorf("read essay: %w", err)
	}
	return string(data), nil
}

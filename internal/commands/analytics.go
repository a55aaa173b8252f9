package commands

import (
	"github.com/spf13/cobra"

	"github.com/examprep/client-go/services"
)

func newAnalyticsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Performance analytics",
	}
	cmd.AddCommand(newAnalyticsOverviewCmd(e))
	return cmd
}

func newAnalyticsOverviewCmd(e *env) *cobra.Command {
	var params services.AnalyticsParams

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Dashboard summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overview, err := e.api.Analytics.Overview(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), overview)
		},
	}

	cmd.Flags().StringVar(&params.Period, "period", "", "7d, 30d, 90d or 1y")
	cmd.Flags().StringVar(&params.Subject, "subject", "", "restrict to one subject")
	return cmd
}

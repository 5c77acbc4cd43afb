package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
)

func newInsightCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insight <year>",
		Short: "Plain-text findings and quoting recommendations for a year",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("year must be a number, got %q", args[0])
			}
			svc, done, err := root.service(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			rep, err := svc.YearReport(cmd.Context(), year)
			if err != nil {
				return describe(err)
			}
			in := services.RuleInsight(rep)
			w := cmd.OutOrStdout()
			if root.format != FormatTable {
				return emit(w, root.format, in)
			}
			fmt.Fprintln(w, in.Headline)
			for _, f := range in.Findings {
				fmt.Fprintln(w, "  -", f)
			}
			if len(in.Recommendations) > 0 {
				fmt.Fprintln(w, "Recommendations:")
				for _, r := range in.Recommendations {
					fmt.Fprintln(w, "  -", r)
				}
			}
			return nil
		},
	}
}

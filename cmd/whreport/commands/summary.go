package commands

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newSummaryCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "All-time summary with the per-year breakdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, done, err := root.service(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			full, err := svc.FullSummary(cmd.Context())
			if err != nil {
				return describe(err)
			}
			w := cmd.OutOrStdout()
			if root.format != FormatTable {
				return emit(w, root.format, full)
			}
			renderSummary(w, "All time", full.Summary)

			tbl := newTable(w, "By year")
			tbl.AppendHeader(table.Row{"Year", "Jobs", "Operations", "Planned", "Actual", "Overrun", "NCR", "Actual cost"})
			for _, y := range full.YearlyBreakdown {
				tbl.AppendRow(table.Row{y.Year, count(y.JobCount), count(y.OperationCount), hours(y.PlannedHours),
					hours(y.ActualHours), hours(y.OverrunHours), hours(y.NCRHours), money(y.ActualCost)})
			}
			rightAlign(tbl, 2, 3, 4, 5, 6, 7, 8)
			tbl.Render()

			renderWorkCenters(w, "Work centers", full.WorkCenterBreakdown)
			return nil
		},
	}
}

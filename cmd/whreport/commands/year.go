package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

func newYearCommand(root *rootOptions) *cobra.Command {
	var (
		top    int
		sortBy string
	)
	cmd := &cobra.Command{
		Use:   "year <year>",
		Short: "Yearly dashboard: summary, quarters, top overruns, work centers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("year must be a number, got %q", args[0])
			}
			metric, err := wh.ParseMetric(sortBy)
			if err != nil {
				return err
			}
			svc, done, err := root.service(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			rep, err := svc.YearReport(cmd.Context(), year, wh.WithTopN(top), wh.WithWorkCenterSort(metric))
			if err != nil {
				return describe(err)
			}
			w := cmd.OutOrStdout()
			if root.format != FormatTable {
				return emit(w, root.format, rep)
			}
			renderSummary(w, fmt.Sprintf("Work history %d", year), rep.Summary)
			renderQuarters(w, rep.QuarterlySummary)
			renderOverruns(w, rep.TopOverruns)
			renderWorkCenters(w, "Work centers", rep.WorkCenterSummary)
			if n := excludedTotal(rep.Excluded); n > 0 {
				fmt.Fprintf(w, "%s rows excluded (no valid work center or date)\n", count(n))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", wh.DefaultTopN, "number of top overrun rows")
	cmd.Flags().StringVar(&sortBy, "sort", string(wh.MetricOverrunCost), "work center sort metric")
	return cmd
}

func excludedTotal(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

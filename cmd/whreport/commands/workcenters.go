package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

func newWorkCentersCommand(root *rootOptions) *cobra.Command {
	var (
		year   int
		sortBy string
	)
	cmd := &cobra.Command{
		Use:     "workcenters",
		Aliases: []string{"wc"},
		Short:   "Work-center utilization and overrun cost",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			metric, err := wh.ParseMetric(sortBy)
			if err != nil {
				return err
			}
			svc, done, err := root.service(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			rep, err := svc.WorkCenters(cmd.Context(), year, wh.WithWorkCenterSort(metric))
			if err != nil {
				return describe(err)
			}
			w := cmd.OutOrStdout()
			if root.format != FormatTable {
				return emit(w, root.format, rep)
			}
			renderWorkCenters(w, "Work centers", rep.WorkCenters)
			fmt.Fprintf(w, "Most used: %s | Highest overrun: %s | Avg utilization: %s\n",
				rep.MostUsed, rep.HighestOverrun, pct(rep.AvgUtilization))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "limit to one year (0 = all)")
	cmd.Flags().StringVar(&sortBy, "sort", string(wh.MetricOverrunCost), "sort metric")
	return cmd
}

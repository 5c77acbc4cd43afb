package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

func newCustomersCommand(root *rootOptions) *cobra.Command {
	var (
		year   int
		sortBy string
	)
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Customer profitability (one year with --year, otherwise all time)",
		Args:  cobra.NoArgs,
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

			rep, err := svc.Customers(cmd.Context(), year, wh.WithCustomerSort(metric))
			if err != nil {
				return describe(err)
			}
			w := cmd.OutOrStdout()
			if root.format != FormatTable {
				return emit(w, root.format, rep)
			}
			tbl := newTable(w, "Customers")
			tbl.AppendHeader(table.Row{"Customer", "Jobs", "Actual", "Overrun", "Cost", "Revenue", "Profit", "Margin"})
			for _, c := range rep.Customers {
				tbl.AppendRow(table.Row{c.ListName, count(c.JobCount), hours(c.ActualHours), hours(c.OverrunHours),
					money(c.ActualCost), money(c.Revenue), money(c.Profit), pct(c.ProfitMargin)})
			}
			tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(rep.Customers))})
			rightAlign(tbl, 2, 3, 4, 5, 6, 7, 8)
			tbl.Render()
			fmt.Fprintf(w, "Top customer: %s | Highest overrun: %s | Repeat rate: %s | Avg margin: %s\n",
				rep.TopCustomer, rep.OverrunCustomer, pct(rep.RepeatRate), pct(rep.AvgMargin))
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "limit to one year (0 = all)")
	cmd.Flags().StringVar(&sortBy, "sort", string(wh.MetricActualHours), "sort metric")
	return cmd
}

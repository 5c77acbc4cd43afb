package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

// emit writes v as JSON or YAML. YAML goes through the JSON form so that
// custom encodings such as the "N/A" percent are kept.
func emit(w io.Writer, format string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if format == FormatJSON {
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func newTable(w io.Writer, title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(title)
	return tbl
}

// rightAlign aligns the given 1-based columns to the right.
func rightAlign(tbl table.Writer, cols ...int) {
	cfgs := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		cfgs = append(cfgs, table.ColumnConfig{Number: c, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	tbl.SetColumnConfigs(cfgs)
}

func hours(v float64) string { return humanize.CommafWithDigits(v, 1) }

func money(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func count(n int) string { return humanize.Comma(int64(n)) }

func pct(p wh.Percent) string { return p.String() }

func renderSummary(w io.Writer, title string, s wh.Summary) {
	tbl := newTable(w, title)
	tbl.AppendHeader(table.Row{"Metric", "Value"})
	tbl.AppendRows([]table.Row{
		{"Jobs", count(s.TotalJobs)},
		{"Operations", count(s.TotalOperations)},
		{"Parts", count(s.TotalUniqueParts)},
		{"Customers", count(s.TotalCustomers)},
		{"Planned hours", hours(s.TotalPlannedHours)},
		{"Actual hours", hours(s.TotalActualHours)},
		{"Overrun hours", hours(s.TotalOverrunHours)},
		{"Overrun", pct(s.OverrunPercent)},
		{"NCR hours", hours(s.TotalNCRHours)},
		{"Ghost hours", hours(s.GhostHours)},
		{"Actual cost", money(s.TotalActualCost)},
		{"Opportunity cost", money(s.OpportunityCostDollars)},
		{"Recommended buffer", fmt.Sprintf("%.1f%%", s.RecommendedBufferPercent)},
	})
	rightAlign(tbl, 2)
	tbl.Render()
}

func renderWorkCenters(w io.Writer, title string, rows []wh.WorkCenterRow) {
	tbl := newTable(w, title)
	tbl.AppendHeader(table.Row{"Work center", "Jobs", "Planned", "Actual", "Overrun", "Overrun cost", "Utilization"})
	for _, r := range rows {
		tbl.AppendRow(table.Row{r.WorkCenter, count(r.JobCount), hours(r.PlannedHours), hours(r.ActualHours),
			hours(r.OverrunHours), money(r.OverrunCost), pct(r.Utilization)})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(rows))})
	rightAlign(tbl, 2, 3, 4, 5, 6, 7)
	tbl.Render()
}

func renderQuarters(w io.Writer, rows []wh.QuarterRow) {
	tbl := newTable(w, "Quarters")
	tbl.AppendHeader(table.Row{"Quarter", "Jobs", "Planned", "Actual", "Overrun", "Overrun cost"})
	for _, q := range rows {
		tbl.AppendRow(table.Row{q.Label, count(q.TotalJobs), hours(q.PlannedHours), hours(q.ActualHours),
			hours(q.OverrunHours), money(q.OverrunCost)})
	}
	rightAlign(tbl, 2, 3, 4, 5, 6)
	tbl.Render()
}

func renderOverruns(w io.Writer, rows []wh.OverrunRow) {
	tbl := newTable(w, "Top overruns")
	tbl.AppendHeader(table.Row{"#", "Job", "Part", "Work center", "Task", "Planned", "Actual", "Overrun", "Cost"})
	for i, r := range rows {
		tbl.AppendRow(table.Row{i + 1, r.JobNumber, r.PartName, r.WorkCenter, r.TaskDescription,
			hours(r.PlannedHours), hours(r.ActualHours), hours(r.OverrunHours), money(r.OverrunCost)})
	}
	rightAlign(tbl, 1, 6, 7, 8, 9)
	tbl.Render()
}

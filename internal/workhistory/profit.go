package workhistory

import (
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

// Loss categories, in display order.
const (
	LossOvertime          = "Overtime"
	LossMaterialOverrun   = "Material Overrun"
	LossLaborInefficiency = "Labor Inefficiency"
	LossThirdPartyDelays  = "Third-party Delays"
	LossOther             = "Other"
)

var lossCategories = []string{LossOvertime, LossMaterialOverrun, LossLaborInefficiency, LossThirdPartyDelays, LossOther}

// LossSplit attributes Share of a job loss to Primary and the rest to Secondary.
type LossSplit struct {
	Primary   string
	Share     decimal.Decimal
	Secondary string
}

// LossWeights decides how a losing job's shortfall is attributed.
// A job is overtime when actual hours exceed planned hours times OvertimeRatio;
// otherwise material notes win over delay notes, and anything else falls back.
type LossWeights struct {
	OvertimeRatio decimal.Decimal
	Overtime      LossSplit
	Material      LossSplit
	Delay         LossSplit
	Fallback      LossSplit
}

var DefaultLossWeights = LossWeights{
	OvertimeRatio: decimal.RequireFromString("1.5"),
	Overtime:      LossSplit{Primary: LossOvertime, Share: decimal.RequireFromString("0.6"), Secondary: LossLaborInefficiency},
	Material:      LossSplit{Primary: LossMaterialOverrun, Share: decimal.RequireFromString("0.7"), Secondary: LossOther},
	Delay:         LossSplit{Primary: LossThirdPartyDelays, Share: decimal.RequireFromString("0.8"), Secondary: LossOther},
	Fallback:      LossSplit{Primary: LossLaborInefficiency, Share: decimal.RequireFromString("0.6"), Secondary: LossOther},
}

type LossShare struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// ProfitAnalysis is the per-job profit roll-up of a record set.
type ProfitAnalysis struct {
	TotalJobs       int         `json:"total_jobs"`
	ProfitableJobs  int         `json:"profitable_jobs"`
	LossJobs        int         `json:"loss_jobs"`
	TotalRevenue    float64     `json:"total_revenue"`
	TotalCost       float64     `json:"total_cost"`
	NetProfit       float64     `json:"net_profit"`
	AvgProfitMargin Percent     `json:"avg_profit_margin"`
	LossByCategory  []LossShare `json:"loss_by_category"`
}

type jobNotes struct{ material, delay bool }

// BuildProfitAnalysis prices each job with the pricing model and attributes losses.
// Revenue and cost are sums of per-record figures, so mixed rates inside one job are honored.
func BuildProfitAnalysis(records []Record, pricing PricingModel, w LossWeights, c Classifier) ProfitAnalysis {
	if pricing == nil {
		pricing = DefaultPricing
	}
	if !w.OvertimeRatio.IsPositive() {
		w = DefaultLossWeights
	}

	notes := map[string]jobNotes{}
	for _, r := range records {
		if !r.Eligible() {
			continue
		}
		n := notes[r.JobID]
		switch NoteCategory(r) {
		case NoteMaterial:
			n.material = true
		case NoteDelay:
			n.delay = true
		}
		notes[r.JobID] = n
	}

	losses := map[string]decimal.Decimal{}
	var revenue, cost decimal.Decimal
	out := ProfitAnalysis{}
	for _, g := range SortGroups(AggregateWith(records, ByJob, c), MetricOverrunCost, 0) {
		rev := pricing.Revenue(g)
		profit := rev.Sub(g.ActualCost)
		revenue = revenue.Add(rev)
		cost = cost.Add(g.ActualCost)
		out.TotalJobs++
		if !profit.IsNegative() {
			out.ProfitableJobs++
			continue
		}
		out.LossJobs++

		split := w.Fallback
		n := notes[g.Key]
		switch {
		case g.ActualHours.GreaterThan(g.PlannedHours.Mul(w.OvertimeRatio)):
			split = w.Overtime
		case n.material:
			split = w.Material
		case n.delay:
			split = w.Delay
		}
		loss := profit.Abs()
		primary := loss.Mul(split.Share)
		losses[split.Primary] = losses[split.Primary].Add(primary)
		losses[split.Secondary] = losses[split.Secondary].Add(loss.Sub(primary))
	}

	out.TotalRevenue = money(revenue)
	out.TotalCost = money(cost)
	out.NetProfit = money(revenue.Sub(cost))
	out.AvgProfitMargin = ProfitMargin(revenue, cost)
	out.LossByCategory = make([]LossShare, 0, len(lossCategories))
	for _, cat := range lossCategories {
		out.LossByCategory = append(out.LossByCategory, LossShare{Category: cat, Amount: money(losses[cat])})
	}
	extra := make([]string, 0)
	for cat := range losses {
		if !slices.Contains(lossCategories, cat) {
			extra = append(extra, cat)
		}
	}
	sort.Strings(extra)
	for _, cat := range extra {
		out.LossByCategory = append(out.LossByCategory, LossShare{Category: cat, Amount: money(losses[cat])})
	}
	return out
}

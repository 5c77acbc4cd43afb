package workhistory

import (
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// NotApplicable is the JSON sentinel for a ratio with a zero denominator.
const NotApplicable = "N/A"

var (
	hundred          = decimal.NewFromInt(100)
	bufferMultiplier = decimal.RequireFromString("1.2")
	bufferCap        = decimal.NewFromInt(30)
)

// Percent is a ratio scaled to 100. Valid is false when the denominator was zero;
// such a value marshals as "N/A" and never as NaN or Inf.
type Percent struct {
	Value decimal.Decimal
	Valid bool
}

func ratioPercent(num, den decimal.Decimal) Percent {
	if den.IsZero() {
		return Percent{}
	}
	return Percent{Value: num.Mul(hundred).Div(den), Valid: true}
}

func (p Percent) Float() float64 {
	if !p.Valid {
		return 0
	}
	return p.Value.Round(2).InexactFloat64()
}

func (p Percent) String() string {
	if !p.Valid {
		return NotApplicable
	}
	return p.Value.StringFixed(1) + "%"
}

func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return json.Marshal(NotApplicable)
	}
	return []byte(strconv.FormatFloat(p.Value.Round(2).InexactFloat64(), 'f', -1, 64)), nil
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	var s string
	if json.Unmarshal(b, &s) == nil {
		*p = Percent{}
		if s != NotApplicable {
			if d, err := decimal.NewFromString(s); err == nil {
				*p = Percent{Value: d, Valid: true}
			}
		}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*p = Percent{Value: d, Valid: true}
	return nil
}

// OverrunPercent is total overrun over total planned hours.
func OverrunPercent(g Group) Percent { return ratioPercent(g.OverrunHours, g.PlannedHours) }

// Utilization is actual over planned hours for a work center (or any group).
func Utilization(g Group) Percent { return ratioPercent(g.ActualHours, g.PlannedHours) }

// OpportunityCost re-exposes the per-record overrun cost already summed in the group.
func OpportunityCost(g Group) decimal.Decimal { return g.OverrunCost }

// RecommendedBuffer is min(overrun% * 1.2, 30). Values under the cap pass through
// unchanged; an undefined overrun percent recommends no buffer.
func RecommendedBuffer(p Percent) decimal.Decimal {
	if !p.Valid {
		return decimal.Zero
	}
	return decimal.Min(p.Value.Mul(bufferMultiplier), bufferCap)
}

// SuggestedIncrease is overrun over planned; unlike OverrunPercent it reports 0 when
// nothing was planned, matching the adjustment tables.
func SuggestedIncrease(overrun, planned decimal.Decimal) decimal.Decimal {
	if planned.IsZero() {
		return decimal.Zero
	}
	return overrun.Mul(hundred).Div(planned)
}

// ProfitMargin is (revenue - cost) / revenue * 100.
func ProfitMargin(revenue, cost decimal.Decimal) Percent {
	return ratioPercent(revenue.Sub(cost), revenue)
}

// PricingModel estimates revenue for a group. It is a business policy of the caller.
type PricingModel interface {
	Revenue(g Group) decimal.Decimal
}

// MarkupPricing prices work at planned cost times a markup.
type MarkupPricing struct {
	Markup decimal.Decimal
}

// DefaultPricing is planned cost plus 20%.
var DefaultPricing = MarkupPricing{Markup: bufferMultiplier}

func (m MarkupPricing) Revenue(g Group) decimal.Decimal {
	markup := m.Markup
	if !markup.IsPositive() {
		markup = bufferMultiplier
	}
	return g.PlannedCost.Mul(markup)
}

// PricingFunc adapts a function to PricingModel.
type PricingFunc func(g Group) decimal.Decimal

func (f PricingFunc) Revenue(g Group) decimal.Decimal { return f(g) }

func f64(d decimal.Decimal) float64 { return d.InexactFloat64() }

// money rounds to cents for output only.
func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

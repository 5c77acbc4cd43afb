package workhistory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

var dateLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
}

// Normalizer coerces raw rows into Records. The zero value uses StandardLaborRate.
type Normalizer struct {
	DefaultLaborRate decimal.Decimal
}

var defaultNormalizer = Normalizer{}

// Normalize coerces one raw row with the standard shop rate. It never fails.
func Normalize(raw RawRecord) Record { return defaultNormalizer.Normalize(raw) }

func (n Normalizer) defaultRate() decimal.Decimal {
	if n.DefaultLaborRate.IsPositive() {
		return n.DefaultLaborRate
	}
	return decimal.NewFromInt(StandardLaborRate)
}

// Normalize parses numbers, resolves the effective work center and fills defaults.
// Unparsable hours become 0 and an unusable rate becomes the default rate.
func (n Normalizer) Normalize(raw RawRecord) Record {
	rec := Record{
		JobID:           raw.JobID.String(),
		JobNumber:       raw.JobNumber.String(),
		WorkOrderNumber: raw.WorkOrderNumber.String(),
		OperationNumber: raw.OperationNumber.String(),
		PartID:          raw.PartID.String(),
		PartName:        raw.PartName.String(),
		BaseWorkCenter:  raw.WorkCenter.String(),
		OperWorkCenter:  raw.OperWorkCenter.String(),
		Customer:        raw.CompanyName.String(),
		TaskDescription: raw.TaskDescription.String(),
		OperShortText:   raw.OperShortText.String(),
		Notes:           raw.Notes.String(),
		PlannedHours:    parseHours(raw.PlannedHours),
		ActualHours:     parseHours(raw.ActualHours),
		LaborRate:       parseRate(raw.LaborRate, n.defaultRate()),
	}
	rec.WorkCenter = EffectiveWorkCenter(rec.OperWorkCenter, rec.BaseWorkCenter)
	rec.Date, rec.HasDate = parseDate(raw.Date.String())

	if rec.JobID == "" {
		rec.JobID = rec.JobNumber
	}
	if rec.JobNumber == "" {
		rec.JobNumber = rec.JobID
	}
	if rec.PartName == "" {
		rec.PartName = UnknownPart
	}
	if rec.Customer == "" {
		rec.Customer = raw.CustomerName.String()
	}
	if rec.Customer == "" {
		rec.Customer = UnknownCustomer
	}
	return rec
}

// NormalizeAll normalizes a batch. Rows without any job identity are dropped and
// reported through a *ValidationError; every other row is returned.
func (n Normalizer) NormalizeAll(raws []RawRecord) ([]Record, error) {
	out := make([]Record, 0, len(raws))
	verr := &ValidationError{}
	for i, raw := range raws {
		if raw.JobID.String() == "" && raw.JobNumber.String() == "" {
			verr.add(i, "job_id", "missing job_id and job_number")
			continue
		}
		out = append(out, n.Normalize(raw))
	}
	if verr.HasIssues() {
		return out, verr
	}
	return out, nil
}

// EffectiveWorkCenter is the one precedence rule: oper_work_center, then work_center.
func EffectiveWorkCenter(operWorkCenter, workCenter string) string {
	if wc := strings.TrimSpace(operWorkCenter); wc != "" {
		return wc
	}
	return strings.TrimSpace(workCenter)
}

// ValidWorkCenter rejects empty names and the spreadsheet "Grand Total" row (exact, case-sensitive).
func ValidWorkCenter(wc string) bool {
	wc = strings.TrimSpace(wc)
	return wc != "" && wc != GrandTotalLabel
}

// Exclusion reasons reported alongside every view.
const (
	ExcludedInvalidWorkCenter = "invalid_work_center"
	ExcludedMissingDate       = "missing_date"
)

// ExclusionReason returns "" for eligible records. Every view uses this one policy.
func (r Record) ExclusionReason() string {
	if !ValidWorkCenter(r.WorkCenter) {
		return ExcludedInvalidWorkCenter
	}
	if !r.HasDate {
		return ExcludedMissingDate
	}
	return ""
}

func (r Record) Eligible() bool { return r.ExclusionReason() == "" }

// Eligible splits records into the eligible subset and per-reason exclusion counts.
func Eligible(records []Record) ([]Record, map[string]int) {
	out := make([]Record, 0, len(records))
	excluded := map[string]int{}
	for _, r := range records {
		if reason := r.ExclusionReason(); reason != "" {
			excluded[reason]++
			continue
		}
		out = append(out, r)
	}
	return out, excluded
}

// Inputs outside these bounds are treated as unparsable.
var (
	maxExponent  int32 = 18
	maxMagnitude       = decimal.NewFromInt(1_000_000_000)
)

func parseDecimal(f Flex) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(f.String(), ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	// check the exponent before any arithmetic on d
	if e := d.Exponent(); e > maxExponent || e < -maxExponent {
		return decimal.Zero, false
	}
	if d.Abs().GreaterThan(maxMagnitude) {
		return decimal.Zero, false
	}
	return d, true
}

func parseHours(f Flex) decimal.Decimal {
	d, ok := parseDecimal(f)
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func parseRate(f Flex, def decimal.Decimal) decimal.Decimal {
	d, ok := parseDecimal(f)
	if !ok || !d.IsPositive() {
		return def
	}
	return d
}

// parseDate keeps the calendar date as written, dropping time of day and zone.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

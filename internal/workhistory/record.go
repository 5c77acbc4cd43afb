// internal/workhistory/record.go
// Work-history record shapes: the raw ingestion row and the normalized canonical row.

package workhistory

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// StandardLaborRate is the shop rate applied when a record carries no usable rate.
	StandardLaborRate = 199

	UnknownPart     = "Unknown Part"
	UnknownCustomer = "Unknown Customer"

	// GrandTotalLabel marks spreadsheet subtotal rows that leak into exports.
	GrandTotalLabel = "Grand Total"
)

// Flex is a loosely typed scalar from an upload. It accepts JSON strings,
// numbers and null, and keeps the text as received.
type Flex string

// UnmarshalJSON never fails for scalars; objects and arrays are kept as raw text.
func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*f = Flex(b)
			return nil
		}
		*f = Flex(s)
		return nil
	}
	*f = Flex(b)
	return nil
}

// MarshalJSON writes numeric text as a JSON number, everything else as a string.
func (f Flex) MarshalJSON() ([]byte, error) {
	s := strings.TrimSpace(string(f))
	if s == "" {
		return []byte("null"), nil
	}
	if _, err := decimal.NewFromString(s); err == nil && json.Valid([]byte(s)) {
		return []byte(s), nil
	}
	return json.Marshal(string(f))
}

func (f Flex) String() string { return strings.TrimSpace(string(f)) }

// RawRecord is one operation/task line as produced by the ingestion layer.
// Every field is optional; Normalize decides the defaults.
type RawRecord struct {
	Date            Flex `json:"date"`
	JobID           Flex `json:"job_id"`
	JobNumber       Flex `json:"job_number"`
	WorkOrderNumber Flex `json:"work_order_number,omitempty"`
	OperationNumber Flex `json:"operation_number,omitempty"`
	PartID          Flex `json:"part_id"`
	PartName        Flex `json:"part_name"`
	WorkCenter      Flex `json:"work_center"`
	OperWorkCenter  Flex `json:"oper_work_center"`
	CompanyName     Flex `json:"company_name"`
	CustomerName    Flex `json:"customer_name,omitempty"`
	TaskDescription Flex `json:"task_description"`
	OperShortText   Flex `json:"oper_short_text"`
	PlannedHours    Flex `json:"planned_hours"`
	ActualHours     Flex `json:"actual_hours"`
	LaborRate       Flex `json:"labor_rate"`
	Notes           Flex `json:"notes"`
}

// Record is the normalized, fully defaulted shape every downstream stage works on.
type Record struct {
	Date    time.Time
	HasDate bool

	JobID           string
	JobNumber       string
	WorkOrderNumber string
	OperationNumber string
	PartID          string
	PartName        string

	// WorkCenter is the effective work center; the two source columns are kept for classification.
	WorkCenter     string
	BaseWorkCenter string
	OperWorkCenter string

	Customer        string
	TaskDescription string
	OperShortText   string
	Notes           string

	PlannedHours decimal.Decimal
	ActualHours  decimal.Decimal
	LaborRate    decimal.Decimal
}

// OverrunHours is max(0, actual - planned).
func (r Record) OverrunHours() decimal.Decimal {
	d := r.ActualHours.Sub(r.PlannedHours)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func (r Record) OverrunCost() decimal.Decimal { return r.OverrunHours().Mul(r.LaborRate) }
func (r Record) PlannedCost() decimal.Decimal { return r.PlannedHours.Mul(r.LaborRate) }
func (r Record) ActualCost() decimal.Decimal  { return r.ActualHours.Mul(r.LaborRate) }

// GhostHours returns the planned hours of an operation nobody logged time against.
func (r Record) GhostHours() decimal.Decimal {
	if r.ActualHours.IsZero() && r.PlannedHours.IsPositive() {
		return r.PlannedHours
	}
	return decimal.Zero
}

func (r Record) Year() int {
	if !r.HasDate {
		return 0
	}
	return r.Date.Year()
}

// Quarter maps Jan-Mar to 1 ... Oct-Dec to 4; 0 when the record is undated.
func (r Record) Quarter() int {
	if !r.HasDate {
		return 0
	}
	return (int(r.Date.Month())-1)/3 + 1
}

// FailureReason is the first non-empty of oper short text, task description and notes.
func (r Record) FailureReason() string {
	for _, s := range []string{r.OperShortText, r.TaskDescription, r.Notes} {
		if s != "" {
			return s
		}
	}
	return ""
}

// Raw converts a normalized record back to the ingestion shape.
func (r Record) Raw() RawRecord {
	out := RawRecord{
		JobID:           Flex(r.JobID),
		JobNumber:       Flex(r.JobNumber),
		WorkOrderNumber: Flex(r.WorkOrderNumber),
		OperationNumber: Flex(r.OperationNumber),
		PartID:          Flex(r.PartID),
		PartName:        Flex(r.PartName),
		WorkCenter:      Flex(r.BaseWorkCenter),
		OperWorkCenter:  Flex(r.OperWorkCenter),
		CompanyName:     Flex(r.Customer),
		TaskDescription: Flex(r.TaskDescription),
		OperShortText:   Flex(r.OperShortText),
		PlannedHours:    Flex(r.PlannedHours.String()),
		ActualHours:     Flex(r.ActualHours.String()),
		LaborRate:       Flex(r.LaborRate.String()),
		Notes:           Flex(r.Notes),
	}
	if r.HasDate {
		out.Date = Flex(r.Date.Format(dateLayout))
	}
	return out
}

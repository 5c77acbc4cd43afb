// internal/workhistory/aggregate.go
// Grouping & aggregation: one accumulator per grouping key, finalized after the pass.

package workhistory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// KeyFunc maps a record to its group key. ok=false leaves the record out of the grouping.
type KeyFunc func(Record) (key string, ok bool)

const compositeSep = "\x1f"

func ByAll(Record) (string, bool) { return "all", true }

func ByYear(r Record) (string, bool) {
	if !r.HasDate {
		return "", false
	}
	return strconv.Itoa(r.Year()), true
}

func ByQuarter(r Record) (string, bool) {
	if !r.HasDate {
		return "", false
	}
	return strconv.Itoa(r.Quarter()), true
}

func ByWorkCenter(r Record) (string, bool) { return r.WorkCenter, true }
func ByPart(r Record) (string, bool)       { return r.PartName, true }
func ByCustomer(r Record) (string, bool)   { return r.Customer, true }
func ByJob(r Record) (string, bool)        { return r.JobID, true }

// ByJobNumber groups by the display label, which may span several job ids.
func ByJobNumber(r Record) (string, bool) { return r.JobNumber, true }

// ByPartTask groups by (part, task description); use SplitKey to recover both parts.
func ByPartTask(r Record) (string, bool) {
	return r.PartName + compositeSep + r.TaskDescription, true
}

// ByJobWorkOrder groups by (job number, work order number).
func ByJobWorkOrder(r Record) (string, bool) {
	return r.JobNumber + compositeSep + r.WorkOrderNumber, true
}

// SplitKey splits a composite key built by ByPartTask or ByJobWorkOrder.
func SplitKey(key string) (string, string) {
	a, b, _ := strings.Cut(key, compositeSep)
	return a, b
}

// Group is a finalized aggregate. It is a value and is never mutated after Finalize.
type Group struct {
	Key string

	PlannedHours decimal.Decimal
	ActualHours  decimal.Decimal
	OverrunHours decimal.Decimal
	GhostHours   decimal.Decimal
	NCRHours     decimal.Decimal

	PlannedCost decimal.Decimal
	ActualCost  decimal.Decimal
	OverrunCost decimal.Decimal
	NCRCost     decimal.Decimal

	Operations     int
	NCROperations  int
	JobCount       int
	PartCount      int
	CustomerCount  int
	WorkOrderCount int

	// JobIDs is sorted.
	JobIDs []string
}

type groupAcc struct {
	key string

	planned, actual, overrun, ghost, ncrHours  decimal.Decimal
	plannedCost, actualCost, overrunCost, ncrCost decimal.Decimal

	operations, ncrOperations int

	jobs       map[string]struct{}
	parts      map[string]struct{}
	customers  map[string]struct{}
	workOrders map[string]struct{}
}

func newGroupAcc(key string) *groupAcc {
	return &groupAcc{
		key:        key,
		jobs:       map[string]struct{}{},
		parts:      map[string]struct{}{},
		customers:  map[string]struct{}{},
		workOrders: map[string]struct{}{},
	}
}

func (g *groupAcc) add(r Record, ncr bool) {
	g.planned = g.planned.Add(r.PlannedHours)
	g.actual = g.actual.Add(r.ActualHours)
	g.overrun = g.overrun.Add(r.OverrunHours())
	g.ghost = g.ghost.Add(r.GhostHours())
	g.plannedCost = g.plannedCost.Add(r.PlannedCost())
	g.actualCost = g.actualCost.Add(r.ActualCost())
	g.overrunCost = g.overrunCost.Add(r.OverrunCost())
	g.operations++
	if ncr {
		g.ncrHours = g.ncrHours.Add(r.ActualHours)
		g.ncrCost = g.ncrCost.Add(r.ActualCost())
		g.ncrOperations++
	}
	g.jobs[r.JobID] = struct{}{}
	g.parts[r.PartName] = struct{}{}
	g.customers[r.Customer] = struct{}{}
	if r.WorkOrderNumber != "" {
		g.workOrders[r.WorkOrderNumber] = struct{}{}
	}
}

func (g *groupAcc) merge(o *groupAcc) {
	g.planned = g.planned.Add(o.planned)
	g.actual = g.actual.Add(o.actual)
	g.overrun = g.overrun.Add(o.overrun)
	g.ghost = g.ghost.Add(o.ghost)
	g.ncrHours = g.ncrHours.Add(o.ncrHours)
	g.plannedCost = g.plannedCost.Add(o.plannedCost)
	g.actualCost = g.actualCost.Add(o.actualCost)
	g.overrunCost = g.overrunCost.Add(o.overrunCost)
	g.ncrCost = g.ncrCost.Add(o.ncrCost)
	g.operations += o.operations
	g.ncrOperations += o.ncrOperations
	for k := range o.jobs {
		g.jobs[k] = struct{}{}
	}
	for k := range o.parts {
		g.parts[k] = struct{}{}
	}
	for k := range o.customers {
		g.customers[k] = struct{}{}
	}
	for k := range o.workOrders {
		g.workOrders[k] = struct{}{}
	}
}

func (g *groupAcc) finalize() Group {
	ids := make([]string, 0, len(g.jobs))
	for id := range g.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return Group{
		Key:            g.key,
		PlannedHours:   g.planned,
		ActualHours:    g.actual,
		OverrunHours:   g.overrun,
		GhostHours:     g.ghost,
		NCRHours:       g.ncrHours,
		PlannedCost:    g.plannedCost,
		ActualCost:     g.actualCost,
		OverrunCost:    g.overrunCost,
		NCRCost:        g.ncrCost,
		Operations:     g.operations,
		NCROperations:  g.ncrOperations,
		JobCount:       len(ids),
		PartCount:      len(g.parts),
		CustomerCount:  len(g.customers),
		WorkOrderCount: len(g.workOrders),
		JobIDs:         ids,
	}
}

// Accumulator folds records into groups for one grouping dimension.
// Ineligible records are skipped during the fold. Not safe for concurrent use;
// parallel callers use one Accumulator per shard and Merge them.
type Accumulator struct {
	key        KeyFunc
	classifier Classifier
	groups     map[string]*groupAcc
}

func NewAccumulator(key KeyFunc, c Classifier) *Accumulator {
	return &Accumulator{key: key, classifier: c, groups: map[string]*groupAcc{}}
}

func (a *Accumulator) Add(r Record) {
	if !r.Eligible() {
		return
	}
	k, ok := a.key(r)
	if !ok {
		return
	}
	g := a.groups[k]
	if g == nil {
		g = newGroupAcc(k)
		a.groups[k] = g
	}
	g.add(r, a.classifier.IsNCR(r))
}

func (a *Accumulator) AddAll(records []Record) {
	for _, r := range records {
		a.Add(r)
	}
}

// Merge folds another shard into a. Sums add and job sets union.
func (a *Accumulator) Merge(o *Accumulator) {
	for k, og := range o.groups {
		g := a.groups[k]
		if g == nil {
			g = newGroupAcc(k)
			a.groups[k] = g
		}
		g.merge(og)
	}
}

// Finalize derives job counts from the collected sets. Call once, after every record is in.
func (a *Accumulator) Finalize() map[string]Group {
	out := make(map[string]Group, len(a.groups))
	for k, g := range a.groups {
		out[k] = g.finalize()
	}
	return out
}

// Aggregate is a single pass over records for one dimension. Empty input yields an empty map.
func Aggregate(records []Record, key KeyFunc) map[string]Group {
	return AggregateWith(records, key, defaultClassifier)
}

func AggregateWith(records []Record, key KeyFunc, c Classifier) map[string]Group {
	acc := NewAccumulator(key, c)
	acc.AddAll(records)
	return acc.Finalize()
}

// Dimension names one grouping of a multi-dimension run.
type Dimension struct {
	Name string
	Key  KeyFunc
}

// StandardDimensions are the five groupings every dashboard view draws on.
var StandardDimensions = []Dimension{
	{Name: "year", Key: ByYear},
	{Name: "quarter", Key: ByQuarter},
	{Name: "work_center", Key: ByWorkCenter},
	{Name: "part", Key: ByPart},
	{Name: "customer", Key: ByCustomer},
}

// AggregateDimensions runs one pass per dimension and checks ctx between dimensions,
// so a cancelled caller stops before the next pass starts.
func AggregateDimensions(ctx context.Context, records []Record, c Classifier, dims ...Dimension) (map[string]map[string]Group, error) {
	out := make(map[string]map[string]Group, len(dims))
	for _, d := range dims {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("aggregate %s: %w", d.Name, err)
		}
		out[d.Name] = AggregateWith(records, d.Key, c)
	}
	return out, nil
}

// AggregateSharded folds contiguous shards in parallel and merges them before
// finalizing. The result equals Aggregate on the same records.
func AggregateSharded(ctx context.Context, records []Record, key KeyFunc, c Classifier, shards int) (map[string]Group, error) {
	if shards < 1 {
		shards = 1
	}
	if shards > len(records) {
		shards = max(len(records), 1)
	}
	accs := make([]*Accumulator, shards)
	size := (len(records) + shards - 1) / shards

	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		lo := i * size
		hi := min(lo+size, len(records))
		acc := NewAccumulator(key, c)
		accs[i] = acc
		if lo >= hi {
			continue
		}
		part := records[lo:hi]
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			acc.AddAll(part)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("aggregate shards: %w", err)
	}

	root := accs[0]
	for _, a := range accs[1:] {
		root.Merge(a)
	}
	return root.Finalize(), nil
}

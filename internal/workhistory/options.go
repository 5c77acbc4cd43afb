package workhistory

import "github.com/shopspring/decimal"

// ============================================================================
// REPORT OPTIONS: functional options for the report builders
// ============================================================================

const (
	DefaultTopN           = 20
	DefaultRepeatN        = 20
	DefaultPartOverrunN   = 20
	DefaultPartReportN    = 100
	DefaultFilterLimit    = 1000
	DefaultListNameLength = 12
)

// DefaultExcludedOverrunTasks are task descriptions kept out of the top-overrun ranking:
// teardown work is quoted after inspection, so planned hours are not comparable.
var DefaultExcludedOverrunTasks = []string{"Dismantling & Inspection"}

// Options holds the business parameters of a report run.
type Options struct {
	TopN          int
	RepeatN       int
	PartOverrunN  int
	WorkCenterBy  Metric
	CustomerBy    Metric
	Pricing       PricingModel
	Classifier    Classifier
	ExcludedTasks []string
	LossWeights   LossWeights
}

// Option configures Options.
type Option func(*Options)

func WithTopN(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.TopN = n
		}
	}
}

func WithRepeatN(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.RepeatN = n
		}
	}
}

func WithPartOverrunN(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.PartOverrunN = n
		}
	}
}

// WithWorkCenterSort sets the metric the work-center breakdown is ordered by.
func WithWorkCenterSort(m Metric) Option {
	return func(o *Options) {
		if m.Valid() {
			o.WorkCenterBy = m
		}
	}
}

func WithCustomerSort(m Metric) Option {
	return func(o *Options) {
		if m.Valid() {
			o.CustomerBy = m
		}
	}
}

func WithPricing(p PricingModel) Option {
	return func(o *Options) {
		if p != nil {
			o.Pricing = p
		}
	}
}

// WithMarkup prices revenue at planned cost times markup.
func WithMarkup(markup float64) Option {
	return func(o *Options) {
		if markup > 0 {
			o.Pricing = MarkupPricing{Markup: decimal.NewFromFloat(markup)}
		}
	}
}

func WithNCRTokens(tokens []string) Option {
	return func(o *Options) {
		if len(tokens) > 0 {
			o.Classifier = NewClassifier(tokens)
		}
	}
}

// WithExcludedTasks replaces the task descriptions left out of the top-overrun ranking.
// An empty, non-nil slice excludes nothing.
func WithExcludedTasks(tasks []string) Option {
	return func(o *Options) {
		if tasks != nil {
			o.ExcludedTasks = tasks
		}
	}
}

func WithLossWeights(w LossWeights) Option {
	return func(o *Options) { o.LossWeights = w }
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	o := Options{
		TopN:          DefaultTopN,
		RepeatN:       DefaultRepeatN,
		PartOverrunN:  DefaultPartOverrunN,
		WorkCenterBy:  MetricOverrunCost,
		CustomerBy:    MetricActualHours,
		Pricing:       DefaultPricing,
		Classifier:    defaultClassifier,
		ExcludedTasks: DefaultExcludedOverrunTasks,
		LossWeights:   DefaultLossWeights,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Resolved fills zero fields with defaults, so a literal Options{} behaves like NewOptions().
func (o Options) Resolved() Options {
	d := NewOptions()
	if o.TopN <= 0 {
		o.TopN = d.TopN
	}
	if o.RepeatN <= 0 {
		o.RepeatN = d.RepeatN
	}
	if o.PartOverrunN <= 0 {
		o.PartOverrunN = d.PartOverrunN
	}
	if !o.WorkCenterBy.Valid() {
		o.WorkCenterBy = d.WorkCenterBy
	}
	if !o.CustomerBy.Valid() {
		o.CustomerBy = d.CustomerBy
	}
	if o.Pricing == nil {
		o.Pricing = d.Pricing
	}
	if len(o.Classifier.tokens) == 0 {
		o.Classifier = d.Classifier
	}
	if o.ExcludedTasks == nil {
		o.ExcludedTasks = d.ExcludedTasks
	}
	if !o.LossWeights.OvertimeRatio.IsPositive() {
		o.LossWeights = d.LossWeights
	}
	return o
}

// Context carries cross-request figures a report needs but cannot derive from its own
// slice of records, such as all-time NCR averages. It is passed explicitly.
type Context struct {
	NCRAverages NCRAverages
}

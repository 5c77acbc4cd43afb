// internal/handlers/http/workhistory_handler.go
// Endpoint dashboard work-history: summary per tahun, customer, work center, part, filter, NCR.

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/util/sse"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

const (
	maxTopN        = 500
	maxPartRows    = 1000
	maxFilterRows  = 5000
	requestTimeout = 15 * time.Second
	insightTimeout = 45 * time.Second
)

type WorkHistoryHandler struct {
	Reports  *services.ReportService
	Insights *services.InsightService
	Logger   *zap.Logger
}

func (h *WorkHistoryHandler) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// fail renders err and logs anything that is not the caller's fault.
func (h *WorkHistoryHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if util.HTTPStatus(err) >= http.StatusInternalServerError {
		h.log().Error("workhistory request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	util.WriteError(w, err)
}

// parseYear accepts "", "0" and "all" as every year.
func parseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return 0, nil
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, util.BadInput("year must be a number, got " + strconv.Quote(s))
	}
	return y, nil
}

// queryLimit reads a positive int, falling back to def and capping at ceiling.
func queryLimit(q url.Values, key string, def, ceiling int) int {
	n := def
	if v := q.Get(key); v != "" {
		if x, _ := strconv.Atoi(v); x > 0 {
			n = x
		}
	}
	if n > ceiling {
		n = ceiling
	}
	return n
}

func metricOption(q url.Values, key string, with func(wh.Metric) wh.Option) (wh.Option, error) {
	v := q.Get(key)
	if v == "" {
		return nil, nil
	}
	m, err := wh.ParseMetric(v)
	if err != nil {
		return nil, util.BadInput(err.Error())
	}
	return with(m), nil
}

// YearSummary: GET /api/workhistory/summary/year/{year}?top=&sort=&customer_sort=
func (h *WorkHistoryHandler) YearSummary(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(mux.Vars(r)["year"])
	if err != nil {
		util.WriteError(w, util.BadInput("year must be a number"))
		return
	}
	q := r.URL.Query()
	opts := []wh.Option{wh.WithTopN(queryLimit(q, "top", wh.DefaultTopN, maxTopN))}
	if opt, err := metricOption(q, "sort", wh.WithWorkCenterSort); err != nil {
		util.WriteError(w, err)
		return
	} else if opt != nil {
		opts = append(opts, opt)
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rep, err := h.Reports.YearReport(ctx, year, opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, rep)
}

// FullSummary: GET /api/workhistory/summary/full
func (h *WorkHistoryHandler) FullSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	out, err := h.Reports.FullSummary(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, out)
}

// Yearly: GET /api/workhistory/summary/yearly
func (h *WorkHistoryHandler) Yearly(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rows, err := h.Reports.Yearly(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"years": rows})
}

// Customers: GET /api/workhistory/summary/customers?year=&sort=
func (h *WorkHistoryHandler) Customers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := parseYear(q.Get("year"))
	if err != nil {
		util.WriteError(w, err)
		return
	}
	var opts []wh.Option
	if opt, err := metricOption(q, "sort", wh.WithCustomerSort); err != nil {
		util.WriteError(w, err)
		return
	} else if opt != nil {
		opts = append(opts, opt)
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	out, err := h.Reports.Customers(ctx, year, opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, out)
}

// WorkCenters: GET /api/workhistory/summary/workcenters?year=&sort=
func (h *WorkHistoryHandler) WorkCenters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := parseYear(q.Get("year"))
	if err != nil {
		util.WriteError(w, err)
		return
	}
	var opts []wh.Option
	if opt, err := metricOption(q, "sort", wh.WithWorkCenterSort); err != nil {
		util.WriteError(w, err)
		return
	} else if opt != nil {
		opts = append(opts, opt)
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	out, err := h.Reports.WorkCenters(ctx, year, opts...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, out)
}

// Parts: GET /api/workhistory/summary/parts?year=&limit=
func (h *WorkHistoryHandler) Parts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := parseYear(q.Get("year"))
	if err != nil {
		util.WriteError(w, err)
		return
	}
	limit := queryLimit(q, "limit", wh.DefaultPartReportN, maxPartRows)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rows, err := h.Reports.Parts(ctx, year, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"parts": rows, "count": len(rows)})
}

// Metric: GET /api/workhistory/metric/{metric}?limit=
func (h *WorkHistoryHandler) Metric(w http.ResponseWriter, r *http.Request) {
	metric := strings.ToLower(strings.TrimSpace(mux.Vars(r)["metric"]))
	limit := queryLimit(r.URL.Query(), "limit", wh.DefaultFilterLimit, maxFilterRows)

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	out, err := h.Reports.MetricDetail(ctx, metric, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, out)
}

// Trends: GET /api/workhistory/trends
func (h *WorkHistoryHandler) Trends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	points, err := h.Reports.Trends(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"trends": points})
}

type filterReq struct {
	Year       string `json:"year,omitempty"`
	Customer   string `json:"customer,omitempty"`
	Part       string `json:"part,omitempty"`
	WorkCenter string `json:"work_center,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// Filter: GET /api/workhistory/filter?year=&customer=&part=&work_center=&limit=
// POST dengan body JSON yang sama dipakai bila query kosong.
func (h *WorkHistoryHandler) Filter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := filterReq{
		Year:       q.Get("year"),
		Customer:   strings.TrimSpace(q.Get("customer")),
		Part:       strings.TrimSpace(q.Get("part")),
		WorkCenter: strings.TrimSpace(q.Get("work_center")),
		Limit:      queryLimit(q, "limit", wh.DefaultFilterLimit, maxFilterRows),
	}
	if in.WorkCenter == "" {
		in.WorkCenter = strings.TrimSpace(q.Get("wc"))
	}

	if r.Method == http.MethodPost && in.Year == "" && in.Customer == "" && in.Part == "" && in.WorkCenter == "" {
		var body filterReq
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			util.WriteError(w, util.BadInput("invalid JSON body"))
			return
		}
		in.Year = body.Year
		in.Customer = strings.TrimSpace(body.Customer)
		in.Part = strings.TrimSpace(body.Part)
		in.WorkCenter = strings.TrimSpace(body.WorkCenter)
		if body.Limit > 0 {
			in.Limit = min(body.Limit, maxFilterRows)
		}
	}

	year, err := parseYear(in.Year)
	if err != nil {
		util.WriteError(w, err)
		return
	}
	f := wh.Filter{Year: year, Customer: in.Customer, Part: in.Part, WorkCenter: in.WorkCenter, Limit: in.Limit}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rows, err := h.Reports.Filter(ctx, f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"rows": rows, "count": len(rows), "input": in})
}

// NCRDetails: GET /api/workhistory/ncr/details?year=&part=
// Tanpa year dipakai tahun terakhir yang punya data.
func (h *WorkHistoryHandler) NCRDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	part := strings.TrimSpace(q.Get("part"))
	if part == "" {
		part = strings.TrimSpace(q.Get("part_name"))
	}
	year, err := parseYear(q.Get("year"))
	if err != nil {
		util.WriteError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	if year == 0 {
		if year, err = h.Reports.DefaultYear(ctx); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	out, err := h.Reports.NCRDetails(ctx, part, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"part": part, "year": year, "job_data": out.JobData, "all_time_averages": out.AllTimeAverages})
}

// Years: GET /api/workhistory/years
func (h *WorkHistoryHandler) Years(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	years, err := h.Reports.Years(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	def, err := h.Reports.DefaultYear(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"years": years, "default_year": def})
}

// Breakdown: GET /api/workhistory/breakdown/{dimension}?year=&sort=&limit=
func (h *WorkHistoryHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := parseYear(q.Get("year"))
	if err != nil {
		util.WriteError(w, err)
		return
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		if n, _ := strconv.Atoi(v); n > 0 {
			limit = n
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	rows, err := h.Reports.Breakdown(ctx, mux.Vars(r)["dimension"], year, q.Get("sort"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]any{"groups": rows, "count": len(rows)})
}

// YearInsights: GET /api/workhistory/insights/year/{year}
func (h *WorkHistoryHandler) YearInsights(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(mux.Vars(r)["year"])
	if err != nil {
		util.WriteError(w, util.BadInput("year must be a number"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), insightTimeout)
	defer cancel()

	rep, err := h.Reports.YearReport(ctx, year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ins := h.Insights
	if ins == nil {
		ins = &services.InsightService{Logger: h.Logger}
	}
	out, err := ins.Explain(ctx, rep)
	if err != nil {
		h.fail(w, r, util.Wrap(err, "explain report"))
		return
	}
	util.WriteJSON(w, http.StatusOK, out)
}

// Stream: GET /api/workhistory/stream
// SSE: satu event "year" per tahun (lama ke baru), lalu "summary", lalu "done".
func (h *WorkHistoryHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*requestTimeout)
	defer cancel()

	reports, full, err := h.Reports.AllYearReports(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	years := make([]int, 0, len(reports))
	for y := range reports {
		years = append(years, y)
	}
	sort.Ints(years)

	stream, ok := sse.Prepare(w)
	if !ok {
		h.log().Warn("response writer cannot flush; sse events are buffered")
	}
	for _, y := range years {
		if ctx.Err() != nil {
			return
		}
		if err := stream.Event("year", reports[y]); err != nil {
			h.log().Warn("sse write failed", zap.Error(err))
			return
		}
	}
	_ = stream.Event("summary", full)
	_ = stream.Event("done", map[string]any{"years": years})
}

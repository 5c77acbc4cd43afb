// internal/services/insight_service.go
// Narasi laporan tahunan: LLM bila tersedia, aturan deterministik sebagai fallback.

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/llm"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

const (
	SourceLLM   = "llm"
	SourceRules = "rules"

	maxFindings = 6
)

type Insight struct {
	Year            int      `json:"year"`
	Source          string   `json:"source"`
	Model           string   `json:"model,omitempty"`
	Headline        string   `json:"headline"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
}

type InsightService struct {
	LLM    llm.Client // nil = rules only
	Logger *zap.Logger
}

const insightSystem = `You are a manufacturing operations analyst. You receive a yearly work-history
report as JSON (planned vs actual labor hours, overruns, NCR quality cost, work centers, parts).
Reply with one JSON object: {"headline": string, "findings": [string], "recommendations": [string]}.
Use only numbers present in the report. At most 6 findings and 6 recommendations.`

// Explain narrates r. LLM failures fall back to the rule-based narrative and are only logged.
func (s *InsightService) Explain(ctx context.Context, r wh.YearReport) (Insight, error) {
	fallback := RuleInsight(r)
	if s.LLM == nil {
		return fallback, nil
	}
	out, err := s.fromLLM(ctx, r)
	if err != nil {
		if ctx.Err() != nil {
			return Insight{}, ctx.Err()
		}
		s.logger().Warn("llm insight failed, using rules", zap.Int("year", r.Year), zap.Error(err))
		return fallback, nil
	}
	return out, nil
}

func (s *InsightService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *InsightService) fromLLM(ctx context.Context, r wh.YearReport) (Insight, error) {
	payload, err := json.Marshal(compactReport(r))
	if err != nil {
		return Insight{}, fmt.Errorf("marshal report: %w", err)
	}
	raw, err := s.LLM.AnswerJSON(ctx, insightSystem, string(payload))
	if err != nil {
		return Insight{}, err
	}
	var ans struct {
		Headline        string   `json:"headline"`
		Findings        []string `json:"findings"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(raw), &ans); err != nil {
		return Insight{}, fmt.Errorf("decode llm answer: %w", err)
	}
	if strings.TrimSpace(ans.Headline) == "" {
		return Insight{}, errors.New("llm answer has no headline")
	}
	return Insight{
		Year:            r.Year,
		Source:          SourceLLM,
		Model:           s.LLM.Model(),
		Headline:        ans.Headline,
		Findings:        clip(ans.Findings, maxFindings),
		Recommendations: clip(ans.Recommendations, maxFindings),
	}, nil
}

// compactReport keeps the prompt small: headline sections and the first rows of each ranking.
func compactReport(r wh.YearReport) map[string]any {
	return map[string]any{
		"year":               r.Year,
		"summary":            r.Summary,
		"quarterly_summary":  r.QuarterlySummary,
		"top_overruns":       head(r.TopOverruns, 5),
		"workcenter_summary": head(r.WorkCenterSummary, 5),
		"ncr_by_part":        head(r.NCRByPart, 5),
		"repeat_failures":    head(r.RepeatNCRFailures, 5),
		"part_overruns":      head(r.PartOverruns, 5),
		"job_profitability":  r.JobProfitability,
		"ncr_averages":       r.NCRAverages,
	}
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func clip(s []string, n int) []string {
	out := make([]string, 0, n)
	for _, v := range s {
		if v = strings.TrimSpace(v); v != "" && len(out) < n {
			out = append(out, v)
		}
	}
	return out
}

// RuleInsight is the deterministic narrative: same report, same text.
func RuleInsight(r wh.YearReport) Insight {
	in := Insight{Year: r.Year, Source: SourceRules, Findings: []string{}, Recommendations: []string{}}
	sum := r.Summary
	if sum.TotalOperations == 0 {
		in.Headline = fmt.Sprintf("No work history recorded for %d.", r.Year)
		return in
	}

	if sum.OverrunPercent.Valid {
		in.Headline = fmt.Sprintf("%d: %d jobs logged %.1f actual vs %.1f planned hours (%s overrun).",
			r.Year, sum.TotalJobs, sum.TotalActualHours, sum.TotalPlannedHours, sum.OverrunPercent)
	} else {
		in.Headline = fmt.Sprintf("%d: %d jobs logged %.1f actual hours with no planned hours to compare.",
			r.Year, sum.TotalJobs, sum.TotalActualHours)
	}

	if sum.OpportunityCostDollars > 0 {
		in.Findings = append(in.Findings, fmt.Sprintf("Overruns cost $%.2f across %.1f hours.",
			sum.OpportunityCostDollars, sum.OpportunityCostHours))
	}
	if len(r.WorkCenterSummary) > 0 && r.WorkCenterSummary[0].OverrunCost > 0 {
		wc := r.WorkCenterSummary[0]
		in.Findings = append(in.Findings, fmt.Sprintf("Work center %s leads with $%.2f of overrun cost.", wc.WorkCenter, wc.OverrunCost))
	}
	if worst := worstQuarter(r.QuarterlySummary); worst != nil {
		in.Findings = append(in.Findings, fmt.Sprintf("%s had the most overrun hours (%.1f).", worst.Label, worst.OverrunHours))
	}
	if sum.TotalNCRHours > 0 {
		in.Findings = append(in.Findings, fmt.Sprintf("NCR work took %.1f hours.", sum.TotalNCRHours))
	}
	if len(r.RepeatNCRFailures) > 0 {
		rf := r.RepeatNCRFailures[0]
		in.Findings = append(in.Findings, fmt.Sprintf("%s failed on %d separate jobs.", rf.PartName, rf.JobCount))
	}
	if sum.GhostHours > 0 {
		in.Findings = append(in.Findings, fmt.Sprintf("%.1f planned hours were never booked.", sum.GhostHours))
	}
	in.Findings = clip(in.Findings, maxFindings)

	if sum.RecommendedBufferPercent > 0 {
		in.Recommendations = append(in.Recommendations,
			fmt.Sprintf("Add a %.1f%% buffer to quoted hours.", sum.RecommendedBufferPercent))
	}
	for _, p := range head(r.PartOverruns, 3) {
		if p.SuggestedPercentIncrease > 0 {
			in.Recommendations = append(in.Recommendations,
				fmt.Sprintf("Raise planned hours for %s by %.1f%%.", p.PartName, p.SuggestedPercentIncrease))
		}
	}
	if len(r.RepeatNCRFailures) > 0 {
		in.Recommendations = append(in.Recommendations,
			fmt.Sprintf("Review the root cause of repeat NCRs on %s.", r.RepeatNCRFailures[0].PartName))
	}
	in.Recommendations = clip(in.Recommendations, maxFindings)
	return in
}

func worstQuarter(rows []wh.QuarterRow) *wh.QuarterRow {
	var worst *wh.QuarterRow
	for i := range rows {
		if rows[i].OverrunHours <= 0 {
			continue
		}
		if worst == nil || rows[i].OverrunHours > worst.OverrunHours {
			worst = &rows[i]
		}
	}
	return worst
}

package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

type stubLLM struct {
	answer string
	err    error
	prompt string
}

func (s *stubLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	return s.AnswerJSON(ctx, system, prompt)
}

func (s *stubLLM) AnswerJSON(_ context.Context, _, prompt string) (string, error) {
	s.prompt = prompt
	return s.answer, s.err
}

func (s *stubLLM) Model() string { return "stub-1" }

func yearReport(t *testing.T) wh.YearReport {
	t.Helper()
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, sample())
	require.NoError(t, err)
	rep, err := svc.YearReport(ctx, 2024)
	require.NoError(t, err)
	return rep
}

func TestRuleInsight(t *testing.T) {
	rep := yearReport(t)
	in := services.RuleInsight(rep)
	assert.Equal(t, services.SourceRules, in.Source)
	assert.Equal(t, "2024: 2 jobs logged 23.0 actual vs 23.0 planned hours (8.7% overrun).", in.Headline)
	assert.NotEmpty(t, in.Findings)
	assert.NotEmpty(t, in.Recommendations)

	// deterministic
	assert.Equal(t, in, services.RuleInsight(rep))

	empty := services.RuleInsight(wh.YearReport{Year: 2001})
	assert.Equal(t, "No work history recorded for 2001.", empty.Headline)
	assert.Empty(t, empty.Findings)
}

func TestExplainWithoutLLM(t *testing.T) {
	rep := yearReport(t)
	s := &services.InsightService{}
	in, err := s.Explain(context.Background(), rep)
	require.NoError(t, err)
	assert.Equal(t, services.SourceRules, in.Source)
}

func TestExplainUsesLLM(t *testing.T) {
	rep := yearReport(t)
	stub := &stubLLM{answer: `{"headline":"Welding ran long.","findings":["a","  ","b"],"recommendations":["quote more"]}`}
	s := &services.InsightService{LLM: stub}

	in, err := s.Explain(context.Background(), rep)
	require.NoError(t, err)
	assert.Equal(t, services.SourceLLM, in.Source)
	assert.Equal(t, "stub-1", in.Model)
	assert.Equal(t, "Welding ran long.", in.Headline)
	assert.Equal(t, []string{"a", "b"}, in.Findings)
	assert.True(t, strings.Contains(stub.prompt, `"year":2024`), "prompt carries the report")
}

func TestExplainFallsBack(t *testing.T) {
	rep := yearReport(t)
	for name, stub := range map[string]*stubLLM{
		"error":       {err: errors.New("429 rate limited")},
		"not json":    {answer: "Sure! Here is your analysis"},
		"no headline": {answer: `{"findings":["x"]}`},
	} {
		t.Run(name, func(t *testing.T) {
			s := &services.InsightService{LLM: stub}
			in, err := s.Explain(context.Background(), rep)
			require.NoError(t, err)
			assert.Equal(t, services.RuleInsight(rep), in)
		})
	}
}

func TestExplainCancelled(t *testing.T) {
	rep := yearReport(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &services.InsightService{LLM: &stubLLM{err: context.Canceled}}
	_, err := s.Explain(ctx, rep)
	assert.ErrorIs(t, err, context.Canceled)
}

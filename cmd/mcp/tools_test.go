package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var today = time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)

type candidatesStub struct {
	filter  domain.CandidateFilter
	signals []domain.SqueezeSignal
	err     error
}

func (s *candidatesStub) TopCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error) {
	s.filter = f
	return s.signals, s.err
}

type warningsStub struct {
	level   domain.WarningLevel
	limit   int
	records []domain.TriggerTrackingRecord
}

func (s *warningsStub) Warnings(ctx context.Context, date time.Time, minLevel domain.WarningLevel, limit int) ([]domain.TriggerTrackingRecord, error) {
	s.level, s.limit = minLevel, limit
	return s.records, nil
}

func newToolset(c *candidatesStub, w *warningsStub) *toolset {
	return &toolset{
		candidates: c,
		warnings:   w,
		timeout:    time.Second,
		today:      func() time.Time { return today },
		minScore:   70,
		limit:      20,
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("expected one content block, got %+v", res)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

func TestTopCandidatesDefaults(t *testing.T) {
	c := &candidatesStub{signals: []domain.SqueezeSignal{{Ticker: "2330", Score: 88, Trend: domain.TrendBullish, Rationale: "high squeeze potential"}}}
	ts := newToolset(c, &warningsStub{})

	res, _, err := ts.topCandidates(context.Background(), nil, topCandidatesInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if !c.filter.TradeDate.Equal(today) || c.filter.MinScore != 70 || c.filter.Limit != 20 {
		t.Fatalf("unexpected filter: %+v", c.filter)
	}
	text := resultText(t, res)
	if !strings.Contains(text, "| 2330 | 88 | BULLISH |") || !strings.Contains(text, "high squeeze potential") {
		t.Fatalf("unexpected text:\n%s", text)
	}
}

func TestTopCandidatesOverridesAndErrors(t *testing.T) {
	c := &candidatesStub{}
	ts := newToolset(c, &warningsStub{})

	zero := 0
	res, _, _ := ts.topCandidates(context.Background(), nil, topCandidatesInput{Date: "2026-01-16", MinScore: &zero, Limit: 1000})
	if res.IsError || c.filter.MinScore != 0 || c.filter.Limit != maxToolLimit {
		t.Fatalf("unexpected filter: %+v", c.filter)
	}
	if !strings.Contains(resultText(t, res), "No candidates.") {
		t.Fatal("expected empty marker")
	}

	res, _, _ = ts.topCandidates(context.Background(), nil, topCandidatesInput{Date: "yesterday"})
	if !res.IsError {
		t.Fatal("expected bad date to be a tool error")
	}

	c.err = errors.New("db down")
	res, _, _ = ts.topCandidates(context.Background(), nil, topCandidatesInput{})
	if !res.IsError || !strings.Contains(resultText(t, res), "db down") {
		t.Fatal("expected query error surfaced as tool error")
	}
}

func TestRedemptionWarnings(t *testing.T) {
	w := &warningsStub{records: []domain.TriggerTrackingRecord{
		{BondTicker: "23301", UnderlyingTicker: "2330", WarningLevel: domain.WarningCritical, ConsecutiveDaysAbove: 30, PriceRatio: 131.2, RedemptionScore: 100},
	}}
	ts := newToolset(&candidatesStub{}, w)

	res, _, err := ts.redemptionWarnings(context.Background(), nil, warningsInput{MinLevel: "warning", Limit: 5})
	if err != nil || res.IsError {
		t.Fatalf("unexpected failure: %v", err)
	}
	if w.level != domain.WarningWarning || w.limit != 5 {
		t.Fatalf("unexpected query: level=%s limit=%d", w.level, w.limit)
	}
	if !strings.Contains(resultText(t, res), "| 23301 | 2330 | CRITICAL | 30 | 0 | 131.2 | 100 |") {
		t.Fatalf("unexpected text:\n%s", resultText(t, res))
	}

	res, _, _ = ts.redemptionWarnings(context.Background(), nil, warningsInput{MinLevel: "PANIC"})
	if !res.IsError {
		t.Fatal("expected unknown level to be a tool error")
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	if newServer(newToolset(&candidatesStub{}, &warningsStub{})) == nil {
		t.Fatal("expected server")
	}
}

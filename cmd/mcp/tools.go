package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const maxToolLimit = 100

type candidateSource interface {
	TopCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error)
}

type warningSource interface {
	Warnings(ctx context.Context, date time.Time, minLevel domain.WarningLevel, limit int) ([]domain.TriggerTrackingRecord, error)
}

type toolset struct {
	candidates candidateSource
	warnings   warningSource
	timeout    time.Duration
	today      func() time.Time
	minScore   int
	limit      int
}

type topCandidatesInput struct {
	Date     string `json:"date,omitempty" jsonschema:"trading date as YYYY-MM-DD, defaults to today"`
	MinScore *int   `json:"min_score,omitempty" jsonschema:"minimum composite score from 0 to 100"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of candidates"`
}

type warningsInput struct {
	Date     string `json:"date,omitempty" jsonschema:"trading date as YYYY-MM-DD, defaults to today"`
	MinLevel string `json:"min_level,omitempty" jsonschema:"SAFE, CAUTION, WARNING or CRITICAL; defaults to CAUTION"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of bonds"`
}

func textResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}

func (t *toolset) resolveDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return t.today(), nil
	}
	return domain.ParseDate(s)
}

func (t *toolset) resolveLimit(n int) int {
	if n <= 0 {
		return t.limit
	}
	if n > maxToolLimit {
		return maxToolLimit
	}
	return n
}

func (t *toolset) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t *toolset) topCandidates(ctx context.Context, _ *mcp.CallToolRequest, in topCandidatesInput) (*mcp.CallToolResult, any, error) {
	date, err := t.resolveDate(in.Date)
	if err != nil {
		return textResult("Error: "+err.Error(), true), nil, nil
	}
	minScore := t.minScore
	if in.MinScore != nil {
		if *in.MinScore < 0 || *in.MinScore > 100 {
			return textResult("Error: min_score must be between 0 and 100", true), nil, nil
		}
		minScore = *in.MinScore
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	signals, err := t.candidates.TopCandidates(ctx, domain.CandidateFilter{
		TradeDate: date,
		MinScore:  minScore,
		Limit:     t.resolveLimit(in.Limit),
	})
	if err != nil {
		return textResult(fmt.Sprintf("Query error: %v", err), true), nil, nil
	}
	return textResult(formatCandidates(date, minScore, signals), false), nil, nil
}

func (t *toolset) redemptionWarnings(ctx context.Context, _ *mcp.CallToolRequest, in warningsInput) (*mcp.CallToolResult, any, error) {
	date, err := t.resolveDate(in.Date)
	if err != nil {
		return textResult("Error: "+err.Error(), true), nil, nil
	}
	level := domain.WarningCaution
	if in.MinLevel != "" {
		level, err = domain.ParseWarningLevel(in.MinLevel)
		if err != nil {
			return textResult("Error: "+err.Error(), true), nil, nil
		}
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	records, err := t.warnings.Warnings(ctx, date, level, t.resolveLimit(in.Limit))
	if err != nil {
		return textResult(fmt.Sprintf("Query error: %v", err), true), nil, nil
	}
	return textResult(formatWarnings(date, level, records), false), nil, nil
}

func formatCandidates(date time.Time, minScore int, signals []domain.SqueezeSignal) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Squeeze candidates %s (score >= %d)\n\n", date.Format(domain.DateLayout), minScore)
	if len(signals) == 0 {
		sb.WriteString("No candidates.\n")
		return sb.String()
	}
	sb.WriteString("| Ticker | Score | Trend | Borrow | Gamma | Margin | Momentum |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, s := range signals {
		fmt.Fprintf(&sb, "| %s | %d | %s | %.1f | %.1f | %.1f | %.1f |\n",
			s.Ticker, s.Score, s.Trend, s.Factors.Borrow, s.Factors.Gamma, s.Factors.Margin, s.Factors.Momentum)
	}
	sb.WriteString("\n")
	for _, s := range signals {
		fmt.Fprintf(&sb, "- %s: %s\n", s.Ticker, s.Rationale)
	}
	return sb.String()
}

func formatWarnings(date time.Time, level domain.WarningLevel, records []domain.TriggerTrackingRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# CB redemption warnings %s (level >= %s)\n\n", date.Format(domain.DateLayout), level)
	if len(records) == 0 {
		sb.WriteString("No bonds at this level.\n")
		return sb.String()
	}
	sb.WriteString("| Bond | Underlying | Level | Days above | Remaining | Ratio % | Pressure |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, r := range records {
		fmt.Fprintf(&sb, "| %s | %s | %s | %d | %d | %.1f | %.0f |\n",
			r.BondTicker, r.UnderlyingTicker, r.WarningLevel, r.ConsecutiveDaysAbove, r.DaysRemaining, r.PriceRatio, r.RedemptionScore)
	}
	return sb.String()
}

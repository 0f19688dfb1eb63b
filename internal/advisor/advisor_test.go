package advisor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/openai/openai-go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func completion(text string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: text}},
		},
	}
}

func TestWriteUsesLLM(t *testing.T) {
	llm := &stubLLMClient{response: completion("2330 leads the board; 23301 is one day from redemption.")}
	w := NewBriefWriter(testTracer, quietLogger(), llm, stubCandidates{signals: []domain.SqueezeSignal{{Ticker: "2330", Score: 82}}},
		&stubWarnings{records: []domain.TriggerTrackingRecord{{BondTicker: "23301", UnderlyingTicker: "2330", WarningLevel: domain.WarningWarning}}},
		"", 70)

	brief, err := w.Write(context.Background(), briefDay.Add(9*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if brief.Source != SourceLLM {
		t.Fatalf("expected llm source, got %s", brief.Source)
	}
	if len(brief.Mentioned) != 2 || brief.Mentioned[0] != "2330" || brief.Mentioned[1] != "23301" {
		t.Fatalf("unexpected mentions: %v", brief.Mentioned)
	}
	if llm.params.Model != "gpt-4o-mini" || len(llm.params.Messages) != 2 {
		t.Fatalf("unexpected request: model=%s messages=%d", llm.params.Model, len(llm.params.Messages))
	}
	if !brief.TradeDate.Equal(briefDay) {
		t.Fatalf("expected truncated date, got %s", brief.TradeDate)
	}
}

func TestWriteFallsBackOnLLMError(t *testing.T) {
	llm := &stubLLMClient{err: errors.New("api down")}
	w := NewBriefWriter(testTracer, quietLogger(), llm, stubCandidates{}, &stubWarnings{}, "gpt-4o-mini", 70)

	brief, err := w.Write(context.Background(), briefDay)
	if err != nil {
		t.Fatalf("llm failure should be non-fatal, got: %v", err)
	}
	if brief.Source != SourceHeuristic || brief.Text == "" {
		t.Fatalf("expected heuristic brief, got %+v", brief)
	}
}

func TestWriteFallsBackOnEmptyChoices(t *testing.T) {
	llm := &stubLLMClient{response: &openai.ChatCompletion{}}
	w := NewBriefWriter(testTracer, quietLogger(), llm, stubCandidates{}, &stubWarnings{}, "", 70)

	brief, err := w.Write(context.Background(), briefDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if brief.Source != SourceHeuristic {
		t.Fatalf("expected heuristic source, got %s", brief.Source)
	}
}

func TestWriteWithoutLLM(t *testing.T) {
	w := NewBriefWriter(testTracer, quietLogger(), nil, stubCandidates{signals: []domain.SqueezeSignal{{Ticker: "2330", Score: 82}}}, nil, "", 70)

	brief, err := w.Write(context.Background(), briefDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if brief.Source != SourceHeuristic || len(brief.Mentioned) != 1 {
		t.Fatalf("expected heuristic brief mentioning 2330, got %+v", brief)
	}
}

func TestWriteReturnsDataErrors(t *testing.T) {
	w := NewBriefWriter(testTracer, quietLogger(), nil, stubCandidates{err: errors.New("db down")}, nil, "", 70)
	if _, err := w.Write(context.Background(), briefDay); err == nil {
		t.Fatal("expected candidate load error")
	}

	w = NewBriefWriter(testTracer, quietLogger(), nil, nil, &stubWarnings{summaryErr: errors.New("db down")}, "", 70)
	if _, err := w.Write(context.Background(), briefDay); err == nil {
		t.Fatal("expected summary load error")
	}
}

func TestWritePassesMinScore(t *testing.T) {
	cands := &recordingCandidates{}
	w := NewBriefWriter(testTracer, quietLogger(), nil, cands, nil, "", 65)
	if _, err := w.Write(context.Background(), briefDay); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cands.filter.MinScore != 65 || cands.filter.Limit != defaultBriefCandidates {
		t.Fatalf("unexpected filter: %+v", cands.filter)
	}
}

// --- stubs ---

type stubLLMClient struct {
	response *openai.ChatCompletion
	err      error
	params   openai.ChatCompletionNewParams
}

func (s *stubLLMClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	s.params = params
	return s.response, s.err
}

type stubCandidates struct {
	signals []domain.SqueezeSignal
	err     error
}

func (s stubCandidates) TopCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error) {
	return s.signals, s.err
}

type recordingCandidates struct {
	filter domain.CandidateFilter
}

func (s *recordingCandidates) TopCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error) {
	s.filter = f
	return nil, nil
}

type stubWarnings struct {
	records    []domain.TriggerTrackingRecord
	summary    domain.WarningSummary
	summaryErr error
}

func (s *stubWarnings) Warnings(ctx context.Context, date time.Time, minLevel domain.WarningLevel, limit int) ([]domain.TriggerTrackingRecord, error) {
	return s.records, nil
}

func (s *stubWarnings) WarningSummary(ctx context.Context, date time.Time) (domain.WarningSummary, error) {
	return s.summary, s.summaryErr
}

package advisor

import (
	"context"
	"fmt"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	SourceLLM       = "llm"
	SourceHeuristic = "heuristic"

	defaultBriefCandidates = 10
	defaultBriefWarnings   = 10
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type CandidateQuerier interface {
	TopCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error)
}

type WarningQuerier interface {
	Warnings(ctx context.Context, date time.Time, minLevel domain.WarningLevel, limit int) ([]domain.TriggerTrackingRecord, error)
	WarningSummary(ctx context.Context, date time.Time) (domain.WarningSummary, error)
}

// Brief is the daily market note built from stored signals and tracking records.
type Brief struct {
	TradeDate  time.Time                      `json:"tradeDate"`
	Source     string                         `json:"source"`
	Text       string                         `json:"text"`
	Mentioned  []string                       `json:"mentioned,omitempty"`
	Candidates []domain.SqueezeSignal         `json:"candidates"`
	Warnings   []domain.TriggerTrackingRecord `json:"warnings"`
	Summary    domain.WarningSummary          `json:"summary"`
}

type BriefWriter struct {
	tracer     trace.Tracer
	logger     *logrus.Logger
	llm        LLMClient
	candidates CandidateQuerier
	warnings   WarningQuerier
	model      string
	minScore   int
}

// NewBriefWriter builds a writer; a nil llm always produces the heuristic brief.
func NewBriefWriter(
	tracer trace.Tracer,
	logger *logrus.Logger,
	llm LLMClient,
	candidates CandidateQuerier,
	warnings WarningQuerier,
	model string,
	minScore int,
) *BriefWriter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &BriefWriter{
		tracer:     tracer,
		logger:     logger,
		llm:        llm,
		candidates: candidates,
		warnings:   warnings,
		model:      model,
		minScore:   minScore,
	}
}

// Write gathers the date's candidates and CB warnings and phrases them as a brief.
// LLM failures fall back to the heuristic text; only data loading errors are returned.
func (w *BriefWriter) Write(ctx context.Context, date time.Time) (Brief, error) {
	ctx, span := w.tracer.Start(ctx, "advisor.write-brief")
	defer span.End()

	date = domain.TruncateDate(date)
	span.SetAttributes(attribute.String("trade_date", date.Format(domain.DateLayout)))

	brief := Brief{TradeDate: date, Summary: domain.WarningSummary{TradeDate: date}}
	if w.candidates != nil {
		top, err := w.candidates.TopCandidates(ctx, domain.CandidateFilter{
			TradeDate: date,
			MinScore:  w.minScore,
			Limit:     defaultBriefCandidates,
		})
		if err != nil {
			return Brief{}, fmt.Errorf("load candidates: %w", err)
		}
		brief.Candidates = top
	}
	if w.warnings != nil {
		recs, err := w.warnings.Warnings(ctx, date, domain.WarningCaution, defaultBriefWarnings)
		if err != nil {
			return Brief{}, fmt.Errorf("load warnings: %w", err)
		}
		brief.Warnings = recs
		summary, err := w.warnings.WarningSummary(ctx, date)
		if err != nil {
			return Brief{}, fmt.Errorf("load warning summary: %w", err)
		}
		brief.Summary = summary
	}

	brief.Source, brief.Text = SourceHeuristic, HeuristicBrief(date, brief.Candidates, brief.Warnings, brief.Summary)
	if w.llm != nil {
		text, err := w.callLLM(ctx, date, FormatMarketContext(brief.Candidates, brief.Warnings, brief.Summary))
		if err != nil {
			span.RecordError(err)
			w.logger.WithError(err).WithField("trade_date", date.Format(domain.DateLayout)).Warn("llm brief failed, using heuristic")
		} else {
			brief.Source, brief.Text = SourceLLM, text
		}
	}
	brief.Mentioned = ExtractTickers(brief.Text, knownTickers(brief.Candidates, brief.Warnings))
	return brief, nil
}

func (w *BriefWriter) callLLM(ctx context.Context, date time.Time, marketContext string) (string, error) {
	ctx, span := w.tracer.Start(ctx, "advisor.llm-call")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", w.model))

	completion, err := w.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: w.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildSystemPrompt(date, marketContext)),
			openai.UserMessage("Write today's brief."),
		},
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	if reply == "" {
		return "", fmt.Errorf("empty LLM reply")
	}
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

func knownTickers(candidates []domain.SqueezeSignal, warnings []domain.TriggerTrackingRecord) []string {
	out := make([]string, 0, len(candidates)+2*len(warnings))
	for _, c := range candidates {
		out = append(out, c.Ticker)
	}
	for _, r := range warnings {
		out = append(out, r.BondTicker, r.UnderlyingTicker)
	}
	return out
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}

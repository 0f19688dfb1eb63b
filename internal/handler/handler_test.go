package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alpha-squeeze/internal/advisor"
	"alpha-squeeze/internal/degraded"
	"alpha-squeeze/internal/domain"
	"alpha-squeeze/internal/service"
	"alpha-squeeze/internal/squeeze"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

var day = time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)

type evaluationStub struct {
	runErr     error
	run        domain.EvaluationRunResult
	runDates   []time.Time
	signals    []domain.SqueezeSignal
	filter     domain.CandidateFilter
	minLevel   domain.WarningLevel
	records    []domain.TriggerTrackingRecord
	summary    domain.WarningSummary
	metric     domain.InstrumentDailyMetric
	metricErr  error
	ingested   []domain.InstrumentDailyMetric
	bonds      []domain.ConvertibleBond
	ingestFail []string
}

func (s *evaluationStub) RunDate(ctx context.Context, date time.Time) (domain.EvaluationRunResult, error) {
	s.runDates = append(s.runDates, date)
	return s.run, s.runErr
}

func (s *evaluationStub) SignalsForDate(ctx context.Context, date time.Time) ([]domain.SqueezeSignal, error) {
	return s.signals, nil
}

func (s *evaluationStub) TopCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error) {
	s.filter = f
	return s.signals, nil
}

func (s *evaluationStub) Warnings(ctx context.Context, date time.Time, minLevel domain.WarningLevel, limit int) ([]domain.TriggerTrackingRecord, error) {
	s.minLevel = minLevel
	return s.records, nil
}

func (s *evaluationStub) WarningSummary(ctx context.Context, date time.Time) (domain.WarningSummary, error) {
	return s.summary, nil
}

func (s *evaluationStub) StoredMetric(ctx context.Context, ticker string, date time.Time) (domain.InstrumentDailyMetric, error) {
	return s.metric, s.metricErr
}

func (s *evaluationStub) IngestMetrics(ctx context.Context, metrics []domain.InstrumentDailyMetric) (int, []string, error) {
	s.ingested = append(s.ingested, metrics...)
	return len(metrics) - len(s.ingestFail), s.ingestFail, nil
}

func (s *evaluationStub) IngestBonds(ctx context.Context, bonds []domain.ConvertibleBond) (int, []string, error) {
	s.bonds = append(s.bonds, bonds...)
	return len(bonds), nil, nil
}

type weightsStub struct {
	current domain.WeightConfig
}

func (w *weightsStub) Current() domain.WeightConfig { return w.current }

func (w *weightsStub) Update(ctx context.Context, cfg domain.WeightConfig) (domain.WeightConfig, error) {
	if err := squeeze.ValidateWeights(cfg); err != nil {
		return domain.WeightConfig{}, err
	}
	cfg.Version = w.current.Version + 1
	w.current = cfg
	return cfg, nil
}

type evaluatorStub struct {
	signal domain.SqueezeSignal
	err    error
	got    domain.InstrumentDailyMetric
}

func (e *evaluatorStub) EvaluateMetric(ctx context.Context, m domain.InstrumentDailyMetric) (domain.SqueezeSignal, error) {
	e.got = m
	return e.signal, e.err
}

type briefStub struct {
	err error
}

func (b briefStub) Write(ctx context.Context, date time.Time) (advisor.Brief, error) {
	return advisor.Brief{TradeDate: date, Source: advisor.SourceHeuristic, Text: "quiet day"}, b.err
}

func newRouter(deps Deps, opts Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	r := gin.New()
	New(trace.NewNoopTracerProvider().Tracer("handler-test"), logger, deps, opts).RegisterRoutes(r)
	return r
}

func do(r *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesUnavailableWithoutDeps(t *testing.T) {
	r := newRouter(Deps{}, Options{})
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/squeeze/2026-01-19", ""},
		{http.MethodGet, "/api/squeeze/2026-01-19/top", ""},
		{http.MethodPost, "/api/squeeze/evaluate", `{"ticker":"2330","tradeDate":"2026-01-19"}`},
		{http.MethodPost, "/api/evaluate/2026-01-19", ""},
		{http.MethodGet, "/api/cb/2026-01-19/warnings", ""},
		{http.MethodGet, "/api/cb/2026-01-19/summary", ""},
		{http.MethodGet, "/api/config/weights", ""},
		{http.MethodGet, "/api/brief/2026-01-19", ""},
	} {
		if w := do(r, tc.method, tc.path, tc.body); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: expected 503, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestBadDateIs400(t *testing.T) {
	r := newRouter(Deps{Evaluations: &evaluationStub{}}, Options{})
	if w := do(r, http.MethodGet, "/api/squeeze/19-01-2026", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestGetTopCandidatesDefaultsAndOverrides(t *testing.T) {
	stub := &evaluationStub{signals: []domain.SqueezeSignal{{Ticker: "2330", Score: 88, Trend: domain.TrendBullish}}}
	r := newRouter(Deps{Evaluations: stub}, Options{TopMinScore: 70, TopLimit: 20})

	w := do(r, http.MethodGet, "/api/squeeze/2026-01-19/top", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stub.filter.MinScore != 70 || stub.filter.Limit != 20 || !stub.filter.TradeDate.Equal(day) {
		t.Fatalf("unexpected default filter: %+v", stub.filter)
	}
	if !strings.Contains(w.Body.String(), `"trend":"BULLISH"`) {
		t.Fatalf("expected trend serialised as text: %s", w.Body.String())
	}

	do(r, http.MethodGet, "/api/squeeze/2026-01-19/top?min_score=50&limit=5", "")
	if stub.filter.MinScore != 50 || stub.filter.Limit != 5 {
		t.Fatalf("unexpected override filter: %+v", stub.filter)
	}

	if w := do(r, http.MethodGet, "/api/squeeze/2026-01-19/top?min_score=abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad min_score, got %d", w.Code)
	}
}

func TestGetWarningsParsesLevel(t *testing.T) {
	stub := &evaluationStub{records: []domain.TriggerTrackingRecord{{BondTicker: "23301", WarningLevel: domain.WarningCritical}}}
	r := newRouter(Deps{Evaluations: stub}, Options{})

	w := do(r, http.MethodGet, "/api/cb/2026-01-19/warnings?min_level=critical", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stub.minLevel != domain.WarningCritical {
		t.Fatalf("expected CRITICAL filter, got %s", stub.minLevel)
	}
	if !strings.Contains(w.Body.String(), `"warningLevel":"CRITICAL"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	if w := do(r, http.MethodGet, "/api/cb/2026-01-19/warnings?min_level=PANIC", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown level, got %d", w.Code)
	}
}

func TestGetWarningSummary(t *testing.T) {
	stub := &evaluationStub{summary: domain.WarningSummary{TradeDate: day, TotalCount: 3, CriticalCount: 1}}
	r := newRouter(Deps{Evaluations: stub}, Options{})

	w := do(r, http.MethodGet, "/api/cb/2026-01-19/summary", "")
	var body domain.WarningSummary
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.TotalCount != 3 || body.CriticalCount != 1 {
		t.Fatalf("unexpected summary: %+v", body)
	}
}

func TestRunEvaluationStatusMapping(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code int
	}{
		{nil, http.StatusOK},
		{service.ErrRunInProgress, http.StatusConflict},
		{service.ErrNotConfigured, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	} {
		stub := &evaluationStub{runErr: tc.err, run: domain.EvaluationRunResult{RunID: "r1", SignalsWritten: 4}}
		r := newRouter(Deps{Evaluations: stub}, Options{})
		if w := do(r, http.MethodPost, "/api/evaluate/2026-01-19", ""); w.Code != tc.code {
			t.Errorf("err=%v: expected %d, got %d", tc.err, tc.code, w.Code)
		}
	}
}

func TestMutatingRoutesRequireAPIKey(t *testing.T) {
	stub := &evaluationStub{}
	r := newRouter(Deps{Evaluations: stub}, Options{APIKey: "secret"})

	if w := do(r, http.MethodPost, "/api/evaluate/2026-01-19", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/evaluate/2026-01-19", "", "X-API-Key", "wrong"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/evaluate/2026-01-19", "", "X-API-Key", "secret"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	// reads stay open
	if w := do(r, http.MethodGet, "/api/squeeze/2026-01-19", ""); w.Code != http.StatusOK {
		t.Fatalf("expected open read, got %d", w.Code)
	}
}

func TestMutatingRoutesRateLimited(t *testing.T) {
	r := newRouter(Deps{Evaluations: &evaluationStub{}}, Options{RateLimitPerMin: 1, RateLimitBurst: 2})

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodPost, "/api/evaluate/2026-01-19", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	if w := do(r, http.MethodPost, "/api/evaluate/2026-01-19", ""); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestUpdateWeights(t *testing.T) {
	weights := &weightsStub{current: domain.DefaultWeightConfig()}
	r := newRouter(Deps{Weights: weights}, Options{})

	bad := `{"borrowWeight":0.5,"gammaWeight":0.25,"marginWeight":0.2,"momentumWeight":0.2,"bullishCutoff":70,"bearishCutoff":40}`
	if w := do(r, http.MethodPut, "/api/config/weights", bad); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for weights summing to 1.15, got %d", w.Code)
	}
	if weights.current.Version != 0 {
		t.Fatal("rejected config was applied")
	}

	good := `{"borrowWeight":0.4,"gammaWeight":0.2,"marginWeight":0.2,"momentumWeight":0.2,"bullishCutoff":75,"bearishCutoff":35}`
	w := do(r, http.MethodPut, "/api/config/weights", good)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body domain.WeightConfig
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Version != 1 || body.BorrowWeight != 0.4 {
		t.Fatalf("unexpected response: %+v", body)
	}

	w = do(r, http.MethodGet, "/api/config/weights", "")
	if !strings.Contains(w.Body.String(), `"bullishCutoff":75`) {
		t.Fatalf("expected new config served: %s", w.Body.String())
	}
}

func TestEvaluateInstrumentFallsBackWhenEngineDown(t *testing.T) {
	stub := &evaluationStub{metric: domain.InstrumentDailyMetric{Ticker: "2330", TradeDate: day, Close: 1105, MarginRatio: 25}}
	eval := &evaluatorStub{}
	adapter := degraded.NewAdapter(eval, degraded.AvailabilityFunc(func(context.Context) bool { return false }), time.Second)
	r := newRouter(Deps{Evaluations: stub, Scorer: adapter}, Options{})

	w := do(r, http.MethodPost, "/api/squeeze/evaluate", `{"ticker":"2330","tradeDate":"2026-01-19"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Signal   domain.SqueezeSignal `json:"signal"`
		Degraded bool                 `json:"degraded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if !body.Degraded || body.Signal.Trend != domain.TrendDegraded || body.Signal.Score != 0 {
		t.Fatalf("expected degraded signal, got %+v", body)
	}
}

func TestEvaluateInstrumentWithSuppliedMetric(t *testing.T) {
	eval := &evaluatorStub{signal: domain.SqueezeSignal{Ticker: "2330", Score: 81, Trend: domain.TrendBullish}}
	adapter := degraded.NewAdapter(eval, degraded.AvailabilityFunc(func(context.Context) bool { return true }), time.Second)
	r := newRouter(Deps{Scorer: adapter}, Options{})

	body := `{"ticker":"2330","tradeDate":"2026-01-19","metric":{"close":1105,"marginRatio":25,"borrowBalanceChange":-900}}`
	w := do(r, http.MethodPost, "/api/squeeze/evaluate", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if eval.got.Ticker != "2330" || eval.got.Close != 1105 || !eval.got.TradeDate.Equal(day) {
		t.Fatalf("metric not forwarded: %+v", eval.got)
	}
	if !strings.Contains(w.Body.String(), `"degraded":false`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestEvaluateInstrumentStorageErrorSkipsEngine(t *testing.T) {
	stub := &evaluationStub{metricErr: errors.New("conn reset")}
	eval := &evaluatorStub{signal: domain.SqueezeSignal{Ticker: "2330", Score: 30, Trend: domain.TrendBearish}}
	adapter := degraded.NewAdapter(eval, degraded.AvailabilityFunc(func(context.Context) bool { return true }), time.Second)
	r := newRouter(Deps{Evaluations: stub, Scorer: adapter}, Options{})

	w := do(r, http.MethodPost, "/api/squeeze/evaluate", `{"ticker":"2330","tradeDate":"2026-01-19"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Signal   domain.SqueezeSignal `json:"signal"`
		Degraded bool                 `json:"degraded"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if !body.Degraded || body.Signal.Trend != domain.TrendDegraded || body.Signal.Score != 0 {
		t.Fatalf("expected degraded signal, got %+v", body)
	}
	if body.Signal.Ticker != "2330" || !body.Signal.TradeDate.Equal(day) {
		t.Fatalf("fallback lost its key: %+v", body.Signal)
	}
	if eval.got.Ticker != "" {
		t.Fatalf("engine must not score a zeroed metric, got %+v", eval.got)
	}
}

func TestEvaluateInstrumentRejectsNegativeSuppliedMetric(t *testing.T) {
	eval := &evaluatorStub{}
	adapter := degraded.NewAdapter(eval, degraded.AvailabilityFunc(func(context.Context) bool { return true }), time.Second)
	r := newRouter(Deps{Scorer: adapter}, Options{})

	for _, metric := range []string{
		`{"close":1105,"volume":-10}`,
		`{"close":1105,"historicalVolatility20d":-0.2}`,
		`{"close":1105,"impliedVolatility":-0.1}`,
	} {
		body := `{"ticker":"2330","tradeDate":"2026-01-19","metric":` + metric + `}`
		if w := do(r, http.MethodPost, "/api/squeeze/evaluate", body); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", metric, w.Code)
		}
	}
	if eval.got.Ticker != "" {
		t.Fatalf("invalid metric reached the engine: %+v", eval.got)
	}
}

func TestEvaluateInstrumentUnknownMetric(t *testing.T) {
	stub := &evaluationStub{metricErr: service.ErrNoMetricForDate}
	adapter := degraded.NewAdapter(&evaluatorStub{}, nil, time.Second)
	r := newRouter(Deps{Evaluations: stub, Scorer: adapter}, Options{})

	if w := do(r, http.MethodPost, "/api/squeeze/evaluate", `{"ticker":"0000","tradeDate":"2026-01-19"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/squeeze/evaluate", `{"tradeDate":"2026-01-19"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without ticker, got %d", w.Code)
	}
}

func TestIngestMetrics(t *testing.T) {
	stub := &evaluationStub{ingestFail: []string{"BAD: rejected"}}
	r := newRouter(Deps{Evaluations: stub}, Options{})

	body := `[{"ticker":"2330","tradeDate":"2026-01-19","close":1105},{"ticker":"BAD","tradeDate":"2026-01-19"}]`
	w := do(r, http.MethodPost, "/api/metrics", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(stub.ingested) != 2 || !stub.ingested[0].TradeDate.Equal(day) {
		t.Fatalf("unexpected ingested rows: %+v", stub.ingested)
	}
	if !strings.Contains(w.Body.String(), `"written":1`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	if w := do(r, http.MethodPost, "/api/metrics", `[{"ticker":"2330","tradeDate":"Jan 19"}]`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/metrics", `[]`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", w.Code)
	}
}

func TestIngestBonds(t *testing.T) {
	stub := &evaluationStub{}
	r := newRouter(Deps{Evaluations: stub}, Options{})

	body := `[{"bondTicker":"23301","underlyingTicker":"2330","conversionPrice":850,"outstandingBalance":35,"maturityDate":"2028-06-30"}]`
	w := do(r, http.MethodPost, "/api/bonds", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(stub.bonds) != 1 || stub.bonds[0].MaturityDate.Year() != 2028 {
		t.Fatalf("unexpected bonds: %+v", stub.bonds)
	}

	if w := do(r, http.MethodPost, "/api/bonds", `[{"bondTicker":"23301","underlyingTicker":"2330","conversionPrice":0}]`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero conversion price, got %d", w.Code)
	}
}

func TestGetBrief(t *testing.T) {
	r := newRouter(Deps{Briefs: briefStub{}}, Options{})
	w := do(r, http.MethodGet, "/api/brief/2026-01-19", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "quiet day") {
		t.Fatalf("unexpected response %d: %s", w.Code, w.Body.String())
	}

	r = newRouter(Deps{Briefs: briefStub{err: fmt.Errorf("load candidates: %w", errors.New("db down"))}}, Options{})
	if w := do(r, http.MethodGet, "/api/brief/2026-01-19", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

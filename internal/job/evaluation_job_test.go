package job

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

type runnerStub struct {
	mu    sync.Mutex
	dates []time.Time
	err   error
}

func (s *runnerStub) RunDate(ctx context.Context, date time.Time) (domain.EvaluationRunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dates = append(s.dates, date)
	return domain.EvaluationRunResult{RunID: "r"}, s.err
}

func (s *runnerStub) calls() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.dates...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestEvaluationJobRunsOnStart(t *testing.T) {
	runner := &runnerStub{}
	taipei := time.FixedZone("CST", 8*3600)
	job := NewEvaluationJob(testTracer, quietLogger(), runner, "0 30 14 * * 1-5", taipei, true)
	// 17:00 UTC on the 19th is already the 20th in Taipei
	job.now = func() time.Time { return time.Date(2026, 1, 19, 17, 0, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- job.Start(ctx) }()

	deadline := time.After(time.Second)
	for len(runner.calls()) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected a run on start")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := runner.calls()[0]
	want := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected trade date %s, got %s", want, got)
	}
}

func TestEvaluationJobRejectsBadSchedule(t *testing.T) {
	job := NewEvaluationJob(testTracer, quietLogger(), &runnerStub{}, "not a schedule", nil, false)
	if err := job.Start(context.Background()); err == nil {
		t.Fatal("expected schedule parse error")
	}
}

func TestEvaluationJobWithoutRunnerWaits(t *testing.T) {
	job := NewEvaluationJob(testTracer, quietLogger(), nil, "0 * * * * *", nil, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := job.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEvaluationJobSurvivesRunnerError(t *testing.T) {
	runner := &runnerStub{err: errors.New("db down")}
	job := NewEvaluationJob(testTracer, quietLogger(), runner, "0 * * * * *", nil, false)
	job.runOnce(context.Background())
	if len(runner.calls()) != 1 {
		t.Fatal("expected runner to be invoked")
	}
}

func TestLoadLocationFallsBackToUTC(t *testing.T) {
	if LoadLocation("") != time.UTC || LoadLocation("Mars/Olympus") != time.UTC {
		t.Fatal("expected UTC fallback")
	}
}

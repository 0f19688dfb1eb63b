package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestEngineProbe(t *testing.T) {
	ok := NewEngineProbe(pingFunc(func(context.Context) error { return nil }), time.Second)
	if !ok.Available(context.Background()) {
		t.Fatal("expected probe to report available")
	}

	down := NewEngineProbe(pingFunc(func(context.Context) error { return errors.New("refused") }), time.Second)
	if down.Available(context.Background()) {
		t.Fatal("expected probe to report unavailable")
	}

	slow := NewEngineProbe(pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), 10*time.Millisecond)
	if slow.Available(context.Background()) {
		t.Fatal("expected timed out ping to report unavailable")
	}

	var nilProbe *EngineProbe
	if nilProbe.Available(context.Background()) || NewEngineProbe(nil, 0).Available(context.Background()) {
		t.Fatal("expected nil probe to report unavailable")
	}
}

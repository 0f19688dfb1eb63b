package service

import (
	"context"
	"time"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// EngineProbe reports the scoring engine as available when its database answers a ping
// within the timeout.
type EngineProbe struct {
	db      Pinger
	timeout time.Duration
}

func NewEngineProbe(db Pinger, timeout time.Duration) *EngineProbe {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &EngineProbe{db: db, timeout: timeout}
}

func (p *EngineProbe) Available(ctx context.Context) bool {
	if p == nil || p.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.db.Ping(ctx) == nil
}

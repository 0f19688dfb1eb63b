package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"alpha-squeeze/internal/domain"
	"alpha-squeeze/internal/repository"
	"alpha-squeeze/internal/squeeze"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

type WeightStore interface {
	Insert(ctx context.Context, w domain.WeightConfig) (domain.WeightConfig, error)
	Latest(ctx context.Context) (domain.WeightConfig, error)
}

type WeightCache interface {
	GetWeights(ctx context.Context) (domain.WeightConfig, bool, error)
	SetWeights(ctx context.Context, w domain.WeightConfig) error
}

// ConfigService owns the active weight config. Each accepted update becomes a new
// immutable version; readers get a copy and never observe a partial update.
type ConfigService struct {
	tracer trace.Tracer
	logger *logrus.Logger
	store  WeightStore
	cache  WeightCache

	current atomic.Pointer[domain.WeightConfig]
	now     func() time.Time
}

func NewConfigService(tracer trace.Tracer, logger *logrus.Logger, store WeightStore, cache WeightCache) *ConfigService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &ConfigService{tracer: tracer, logger: logger, store: store, cache: cache, now: time.Now}
	def := domain.DefaultWeightConfig()
	s.current.Store(&def)
	return s
}

func (s *ConfigService) Current() domain.WeightConfig {
	return *s.current.Load()
}

// Load restores the active config at startup: cache first, then the latest stored
// version, then seed. The seed is always validated, even when a stored version wins,
// and is persisted as the first version when nothing is stored.
func (s *ConfigService) Load(ctx context.Context, seed domain.WeightConfig) (domain.WeightConfig, error) {
	ctx, span := s.tracer.Start(ctx, "config-service.load")
	defer span.End()

	if err := squeeze.ValidateWeights(seed); err != nil {
		return domain.WeightConfig{}, fmt.Errorf("seed: %w", err)
	}

	if s.cache != nil {
		w, ok, err := s.cache.GetWeights(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("weight cache read failed")
		}
		if ok && squeeze.ValidateWeights(w) == nil {
			s.current.Store(&w)
			return w, nil
		}
	}

	if s.store != nil {
		w, err := s.store.Latest(ctx)
		switch {
		case err == nil:
			if verr := squeeze.ValidateWeights(w); verr != nil {
				s.logger.WithError(verr).WithField("version", w.Version).Warn("stored weight config is invalid, using seed")
				break
			}
			s.current.Store(&w)
			s.cacheWeights(ctx, w)
			return w, nil
		case !errors.Is(err, repository.ErrNotFound):
			s.logger.WithError(err).Warn("weight config store unavailable, using seed")
		}
	}

	return s.Update(ctx, seed)
}

// Update validates w and, if accepted, persists and activates it as a new version.
// Rejected configs leave the active config untouched.
func (s *ConfigService) Update(ctx context.Context, w domain.WeightConfig) (domain.WeightConfig, error) {
	ctx, span := s.tracer.Start(ctx, "config-service.update")
	defer span.End()

	if err := squeeze.ValidateWeights(w); err != nil {
		return domain.WeightConfig{}, err
	}

	if s.store != nil {
		stored, err := s.store.Insert(ctx, w)
		if err != nil {
			return domain.WeightConfig{}, fmt.Errorf("persist weight config: %w", err)
		}
		w = stored
	} else {
		w.Version = s.Current().Version + 1
		w.UpdatedAt = s.now().UTC()
	}

	s.current.Store(&w)
	s.cacheWeights(ctx, w)
	s.logger.WithField("version", w.Version).Info("weight config activated")
	return w, nil
}

func (s *ConfigService) cacheWeights(ctx context.Context, w domain.WeightConfig) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetWeights(ctx, w); err != nil {
		s.logger.WithError(err).Warn("weight cache write failed")
	}
}

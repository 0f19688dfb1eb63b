package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	weightsKey = "squeeze:weights:current"
	topPrefix  = "squeeze:top:"
	genPrefix  = "squeeze:topgen:"

	// generationTTL outlives any candidate hash so a date's counter never resets
	// while an older generation could still be read.
	generationTTL = 7 * 24 * time.Hour
)

// KV is the subset of the redis client the store uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Store caches the active weight config and top-candidate queries. A Store with a nil
// client misses on every read and drops every write.
type Store struct {
	kv  KV
	ttl time.Duration
}

func NewStore(kv KV, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl}
}

func (s *Store) enabled() bool {
	return s != nil && s.kv != nil
}

func (s *Store) GetWeights(ctx context.Context) (domain.WeightConfig, bool, error) {
	var w domain.WeightConfig
	if !s.enabled() {
		return w, false, nil
	}
	ok, err := s.getJSON(ctx, s.kv.Get(ctx, weightsKey), &w)
	return w, ok, err
}

// SetWeights stores the config without expiry; it is replaced on every accepted update.
func (s *Store) SetWeights(ctx context.Context, w domain.WeightConfig) error {
	if !s.enabled() {
		return nil
	}
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, weightsKey, data, 0).Err()
}

// TopGeneration returns the date's candidate cache generation. Callers read it before
// querying the database and pass it to SetTopCandidates, so a result computed before an
// invalidation lands in a generation nobody reads any more.
func (s *Store) TopGeneration(ctx context.Context, date time.Time) (int64, error) {
	if !s.enabled() {
		return 0, nil
	}
	gen, err := s.kv.Get(ctx, genKey(date)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (s *Store) GetTopCandidates(ctx context.Context, f domain.CandidateFilter, gen int64) ([]domain.SqueezeSignal, bool, error) {
	if !s.enabled() {
		return nil, false, nil
	}
	var out []domain.SqueezeSignal
	ok, err := s.getJSON(ctx, s.kv.HGet(ctx, topKey(f.TradeDate, gen), topField(f)), &out)
	return out, ok, err
}

func (s *Store) SetTopCandidates(ctx context.Context, f domain.CandidateFilter, gen int64, signals []domain.SqueezeSignal) error {
	if !s.enabled() {
		return nil
	}
	data, err := json.Marshal(signals)
	if err != nil {
		return err
	}
	key := topKey(f.TradeDate, gen)
	if err := s.kv.HSet(ctx, key, topField(f), data).Err(); err != nil {
		return err
	}
	if s.ttl > 0 {
		return s.kv.Expire(ctx, key, s.ttl).Err()
	}
	return nil
}

// InvalidateDate moves the date to a new generation and drops the previous one.
// Writes still in flight for the old generation are never read.
func (s *Store) InvalidateDate(ctx context.Context, date time.Time) error {
	if !s.enabled() {
		return nil
	}
	key := genKey(date)
	gen, err := s.kv.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if err := s.kv.Expire(ctx, key, generationTTL).Err(); err != nil {
		return err
	}
	return s.kv.Del(ctx, topKey(date, gen-1)).Err()
}

func (s *Store) getJSON(_ context.Context, cmd *redis.StringCmd, dst any) (bool, error) {
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cached value: %w", err)
	}
	return true, nil
}

func topKey(date time.Time, gen int64) string {
	return fmt.Sprintf("%s%s:%d", topPrefix, domain.TruncateDate(date).Format(domain.DateLayout), gen)
}

func genKey(date time.Time) string {
	return genPrefix + domain.TruncateDate(date).Format(domain.DateLayout)
}

func topField(f domain.CandidateFilter) string {
	return fmt.Sprintf("%d:%d", f.MinScore, f.Limit)
}

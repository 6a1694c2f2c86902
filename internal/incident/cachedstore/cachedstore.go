// Package cachedstore layers the cache tier over a durable incident.Store.
// The durable tier is always authoritative: a save writes the cache first
// (non-fatal) and the durable store second as the blocking step, so a crash
// between the two can leave the cache stale but never corrupts durable
// state.
package cachedstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/remedy/internal/cache"
	"github.com/linnemanlabs/remedy/internal/incident"
)

// DefaultTTL is the cache-entry lifetime when the caller passes zero.
const DefaultTTL = time.Hour

// Store implements incident.Store with cache-aside reads and write-through
// saves.
type Store struct {
	durable incident.Store
	cache   cache.Cache
	ttl     time.Duration
	logger  log.Logger
}

// New wraps durable with the given cache tier.
func New(durable incident.Store, c cache.Cache, ttl time.Duration, logger log.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Store{durable: durable, cache: c, ttl: ttl, logger: logger}
}

func cacheKey(id string) string { return "incident:" + id }

// Save writes through the cache, then upserts the durable tier.
func (s *Store) Save(ctx context.Context, r *incident.Report) error {
	if blob, err := json.Marshal(r); err == nil {
		if err := s.cache.Set(ctx, cacheKey(r.IncidentID), string(blob), s.ttl); err != nil {
			s.logger.Warn(ctx, "cache write failed", "incident_id", r.IncidentID, "error", err)
		}
	}
	return s.durable.Save(ctx, r)
}

// Get prefers the cache tier and falls back to the durable tier, back-filling
// the cache on a durable hit. A cache entry that fails to decode is ignored.
func (s *Store) Get(ctx context.Context, id string) (*incident.Report, bool, error) {
	if blob, ok, err := s.cache.Get(ctx, cacheKey(id)); err == nil && ok {
		var r incident.Report
		if err := json.Unmarshal([]byte(blob), &r); err == nil {
			return &r, true, nil
		}
		s.logger.Warn(ctx, "discarding undecodable cache entry", "incident_id", id)
	} else if err != nil {
		s.logger.Warn(ctx, "cache read failed", "incident_id", id, "error", err)
	}

	r, ok, err := s.durable.Get(ctx, id)
	if err != nil || !ok {
		return nil, false, err
	}

	if blob, merr := json.Marshal(r); merr == nil {
		if cerr := s.cache.Set(ctx, cacheKey(id), string(blob), s.ttl); cerr != nil {
			s.logger.Warn(ctx, "cache backfill failed", "incident_id", id, "error", cerr)
		}
	}
	return r, true, nil
}

// List always goes to the durable tier; listings are not cached.
func (s *Store) List(ctx context.Context) ([]incident.Summary, error) {
	return s.durable.List(ctx)
}

package rulestore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/arabot777/idea2product-guard/internal/permit"
)

// CacheKey is the cache entry holding the serialized rule snapshot.
const CacheKey = "permission_rules:v1"

// RuleSource is the authoritative backing store for permission rules.
// It is queried only on load and reload.
type RuleSource interface {
	Load(ctx context.Context) ([]permit.PermissionRule, error)
}

// Store owns the process-wide rule map. It loads lazily with
// single-flight semantics, serves reads from an immutable snapshot,
// and persists snapshots through an optional cache so warm restarts
// skip the backing store.
type Store struct {
	source   RuleSource
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger

	group singleflight.Group
	snap  atomic.Pointer[snapshot]
}

type snapshot struct {
	rules map[string]permit.PermissionRule
}

type Option func(*Store)

// WithCache adds a snapshot cache in front of the rule source. Cache
// failures degrade to a source load and are logged, never fatal.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Store) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(source RuleSource, opts ...Option) *Store {
	s := &Store{
		source:   source,
		cacheTTL: 5 * time.Minute,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// EnsureLoaded makes the rule map available. Concurrent callers on a
// cold store share a single load; a failed load is not cached, so the
// next caller retries.
func (s *Store) EnsureLoaded(ctx context.Context) error {
	if s.snap.Load() != nil {
		return nil
	}
	_, err, _ := s.group.Do("load", func() (any, error) {
		if s.snap.Load() != nil {
			return nil, nil
		}
		snap, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		s.snap.Store(snap)
		return nil, nil
	})
	return err
}

// load reads the cached snapshot when present and fresh, otherwise
// queries the rule source and writes the result back to the cache.
func (s *Store) load(ctx context.Context) (*snapshot, error) {
	if s.cache != nil {
		if snap, ok := s.loadFromCache(ctx); ok {
			return snap, nil
		}
	}

	rules, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load permission rules: %w", err)
	}
	snap, err := buildSnapshot(rules)
	if err != nil {
		return nil, err
	}
	s.logger.Info("permission rules loaded", "source", "store", "rules", len(snap.rules))

	if s.cache != nil {
		data, err := json.Marshal(rules)
		if err == nil {
			err = s.cache.Set(ctx, CacheKey, data, s.cacheTTL)
		}
		if err != nil {
			s.logger.Warn("rule cache write failed", "err", err)
		}
	}
	return snap, nil
}

func (s *Store) loadFromCache(ctx context.Context) (*snapshot, bool) {
	data, ok, err := s.cache.Get(ctx, CacheKey)
	if err != nil {
		s.logger.Warn("rule cache read failed, falling back to store", "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var rules []permit.PermissionRule
	if err := json.Unmarshal(data, &rules); err != nil {
		s.logger.Warn("rule cache entry malformed, falling back to store", "err", err)
		return nil, false
	}
	snap, err := buildSnapshot(rules)
	if err != nil {
		s.logger.Warn("rule cache entry invalid, falling back to store", "err", err)
		return nil, false
	}
	s.logger.Info("permission rules loaded", "source", "cache", "rules", len(snap.rules))
	return snap, true
}

func buildSnapshot(rules []permit.PermissionRule) (*snapshot, error) {
	m := make(map[string]permit.PermissionRule, len(rules))
	for i := range rules {
		r := rules[i]
		if err := r.Validate(); err != nil {
			return nil, err
		}
		key := r.Key()
		if _, dup := m[key]; dup {
			return nil, &permit.RuleError{Key: key, Field: "key", Reason: "duplicate rule key"}
		}
		m[key] = r
	}
	return &snapshot{rules: m}, nil
}

// Reload drops the in-memory snapshot and the persisted cache entry.
// The next access triggers a fresh load from the rule source.
func (s *Store) Reload(ctx context.Context) {
	s.snap.Store(nil)
	if s.cache != nil {
		if err := s.cache.Del(ctx, CacheKey); err != nil {
			s.logger.Warn("rule cache delete failed", "err", err)
		}
	}
	s.logger.Info("permission rules invalidated")
}

// Get returns the rule for an exact key, or ok=false.
func (s *Store) Get(ctx context.Context, key string) (*permit.PermissionRule, bool, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, false, err
	}
	r, ok := snap.rules[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

// Resolve finds the best-matching rule for a concrete request, or nil
// when no rule is configured for it.
func (s *Store) Resolve(ctx context.Context, scope permit.Scope, path, method string) (*permit.PermissionRule, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	key, ok := permit.MatchKey(snap.rules, scope, path, method)
	if !ok {
		return nil, nil
	}
	r := snap.rules[key]
	return &r, nil
}

// AllRules returns the loaded rules sorted by key.
func (s *Store) AllRules(ctx context.Context) ([]permit.PermissionRule, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]permit.PermissionRule, 0, len(snap.rules))
	for _, r := range snap.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *Store) snapshot(ctx context.Context) (*snapshot, error) {
	if snap := s.snap.Load(); snap != nil {
		return snap, nil
	}
	if err := s.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	snap := s.snap.Load()
	if snap == nil {
		// Reload raced us between EnsureLoaded and here; load again.
		return s.snapshot(ctx)
	}
	return snap, nil
}

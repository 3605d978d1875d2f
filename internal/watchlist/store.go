// Package watchlist holds the user's set of followed token slugs.
package watchlist

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"astrotoken/internal/market"
	"astrotoken/internal/metrics"
)

// Store is an insertion-ordered set of slugs. Every mutation re-persists the
// whole set before returning.
type Store struct {
	mu        sync.RWMutex
	slugs     []string
	members   map[string]struct{}
	persister Persister
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithMetrics records saves and the set size.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New loads the persisted set once. A missing or unreadable payload starts the
// store empty; the failure is logged, never returned.
func New(ctx context.Context, persister Persister, logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		members:   make(map[string]struct{}),
		persister: persister,
		logger:    logger.With().Str("component", "watchlist").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded, err := persister.Load(ctx)
	switch {
	case errors.Is(err, ErrMalformed):
		s.logger.Warn().Err(err).Msg("persisted watchlist is malformed; starting empty")
	case err != nil:
		s.logger.Warn().Err(err).Msg("could not load watchlist; starting empty")
	default:
		for _, slug := range loaded {
			s.insert(slug)
		}
	}

	s.metrics.SetWatchlistSize(len(s.slugs))
	s.logger.Debug().Int("size", len(s.slugs)).Msg("watchlist loaded")
	return s
}

// normalize is applied to every slug entering the store.
func normalize(slug string) string {
	return strings.TrimSpace(slug)
}

func (s *Store) insert(slug string) bool {
	slug = normalize(slug)
	if slug == "" {
		return false
	}
	if _, ok := s.members[slug]; ok {
		return false
	}
	s.members[slug] = struct{}{}
	s.slugs = append(s.slugs, slug)
	return true
}

func (s *Store) delete(slug string) bool {
	slug = normalize(slug)
	if _, ok := s.members[slug]; !ok {
		return false
	}
	delete(s.members, slug)
	kept := s.slugs[:0]
	for _, existing := range s.slugs {
		if existing != slug {
			kept = append(kept, existing)
		}
	}
	s.slugs = kept
	return true
}

// Contains reports membership.
func (s *Store) Contains(slug string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[normalize(slug)]
	return ok
}

// Add inserts slug and persists. Adding a present slug is a no-op.
func (s *Store) Add(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.insert(slug) {
		return nil
	}
	return s.persistLocked(ctx, "add", normalize(slug))
}

// Remove deletes slug and persists. Removing an absent slug is a no-op.
func (s *Store) Remove(ctx context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.delete(slug) {
		return nil
	}
	return s.persistLocked(ctx, "remove", normalize(slug))
}

// Toggle adds slug when absent and removes it otherwise, returning the new
// membership. A blank slug is never a member.
func (s *Store) Toggle(ctx context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.delete(slug) {
		return false, s.persistLocked(ctx, "remove", normalize(slug))
	}
	if !s.insert(slug) {
		return false, nil
	}
	return true, s.persistLocked(ctx, "add", normalize(slug))
}

// Slugs returns a copy of the members in insertion order.
func (s *Store) Slugs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.slugs))
	copy(out, s.slugs)
	return out
}

// Len returns the number of members.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slugs)
}

// persistLocked must be called with s.mu held so saves land in mutation order.
// The in-memory change is kept even if the save fails.
func (s *Store) persistLocked(ctx context.Context, op, slug string) error {
	snapshot := make([]string, len(s.slugs))
	copy(snapshot, s.slugs)

	err := s.persister.Save(ctx, snapshot)
	s.metrics.WatchlistSaved(len(snapshot), err)
	if err != nil {
		s.logger.Error().Err(err).Str("op", op).Str("slug", slug).Msg("failed to persist watchlist")
		return err
	}
	s.logger.Debug().Str("op", op).Str("slug", slug).Int("size", len(snapshot)).Msg("watchlist saved")
	return nil
}

// Filter keeps the tokens whose slug is in slugs, preserving listing order.
func Filter(tokens []market.Token, slugs []string) []market.Token {
	if len(slugs) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		set[slug] = struct{}{}
	}
	out := make([]market.Token, 0, len(slugs))
	for _, t := range tokens {
		if _, ok := set[t.Slug]; ok {
			out = append(out, t)
		}
	}
	return out
}

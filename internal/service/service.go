package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"astrotoken/internal/alerting"
	"astrotoken/internal/cache"
	"astrotoken/internal/fetcher"
	"astrotoken/internal/market"
	"astrotoken/internal/metrics"
)

const (
	opListings = "markets"
	opDetail   = "coin"
	opHistory  = "chart"

	DefaultPerPage  = 50
	DefaultCacheTTL = 60 * time.Second
)

var fallbackMessages = map[string]string{
	opListings: "Failed to fetch cryptocurrency data. Using sample data instead.",
	opDetail:   "Failed to fetch cryptocurrency details",
	opHistory:  "Failed to fetch historical price data",
}

// Options tune the market service.
type Options struct {
	PerPage  int
	CacheTTL time.Duration
	// Now and Rand are overridable for tests.
	Now  func() time.Time
	Rand market.Rand
}

// Market serves listings, token detail and price history. Provider failures are
// masked with sample data so callers never see an error.
type Market struct {
	provider fetcher.Provider
	cache    cache.Cache
	notifier alerting.Notifier
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	perPage int
	ttl     time.Duration
	now     func() time.Time
	rng     market.Rand
}

// New constructs the market service. cache, notifier and m may be nil.
func New(provider fetcher.Provider, c cache.Cache, notifier alerting.Notifier, m *metrics.Metrics, logger zerolog.Logger, opts Options) *Market {
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = newLockedRand()
	}

	return &Market{
		provider: provider,
		cache:    c,
		notifier: notifier,
		metrics:  m,
		logger:   logger.With().Str("component", "service").Logger(),
		perPage:  opts.PerPage,
		ttl:      opts.CacheTTL,
		now:      opts.Now,
		rng:      opts.Rand,
	}
}

// ListTokens returns the top tokens by market cap.
func (s *Market) ListTokens(ctx context.Context) []market.Token {
	key := cache.Key(opListings, strconv.Itoa(s.perPage))
	res := fetch(ctx, s, opListings, key, func(ctx context.Context) ([]market.Token, error) {
		return s.provider.ListMarkets(ctx, s.perPage)
	})
	return resolve(ctx, s, opListings, "", res, market.SampleTokens)
}

// GetToken returns a single token. The boolean is false when the token is unknown
// to the provider, or when the provider failed and no sample token matches.
func (s *Market) GetToken(ctx context.Context, slug string) (market.Token, bool) {
	if slug == "" {
		return market.Token{}, false
	}
	res := fetch(ctx, s, opDetail, cache.Key(opDetail, slug), func(ctx context.Context) (detail, error) {
		token, err := s.provider.GetCoin(ctx, slug)
		if errors.Is(err, fetcher.ErrNotFound) {
			s.logger.Debug().Str("slug", slug).Msg("token not found")
			return detail{}, nil
		}
		return detail{Token: token, Found: err == nil}, err
	})
	d := resolve(ctx, s, opDetail, slug, res, func() detail {
		token, ok := market.SampleToken(slug)
		return detail{Token: token, Found: ok}
	})
	return d.Token, d.Found
}

// detail carries a lookup outcome through the cache so not-found answers are
// remembered too.
type detail struct {
	Token market.Token `json:"token"`
	Found bool         `json:"found"`
}

// GetPriceHistory returns an ascending price series for the period.
func (s *Market) GetPriceHistory(ctx context.Context, slug string, period market.Period) []market.PricePoint {
	key := cache.Key(opHistory, slug, period.String())
	res := fetch(ctx, s, opHistory, key, func(ctx context.Context) ([]market.PricePoint, error) {
		return s.provider.GetMarketChart(ctx, slug, period)
	})
	return resolve(ctx, s, opHistory, slug, res, func() []market.PricePoint {
		return market.SyntheticSeries(market.BasePrice(slug), period, s.now(), s.rng)
	})
}

// Warm refreshes the cached listing from the provider. It matches the
// scheduler's tick signature.
func (s *Market) Warm(ctx context.Context, at time.Time) error {
	started := time.Now()
	tokens, err := s.provider.ListMarkets(ctx, s.perPage)
	s.metrics.ObserveProvider(opListings, err, time.Since(started))
	if err != nil {
		return err
	}
	s.store(ctx, cache.Key(opListings, strconv.Itoa(s.perPage)), tokens)
	s.logger.Debug().Time("at", at).Int("tokens", len(tokens)).Msg("listing cache warmed")
	return nil
}

type result[T any] struct {
	value T
	err   error
}

func fetch[T any](ctx context.Context, s *Market, op, key string, call func(context.Context) (T, error)) result[T] {
	if s.cache != nil {
		cached, ok, err := cache.GetJSON[T](ctx, s.cache, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache lookup failed")
		}
		s.metrics.CacheLookup(op, ok)
		if ok {
			return result[T]{value: cached}
		}
	}

	started := time.Now()
	value, err := call(ctx)
	s.metrics.ObserveProvider(op, err, time.Since(started))
	if err == nil && ctx.Err() == nil {
		s.store(ctx, key, value)
	}
	return result[T]{value: value, err: err}
}

func (s *Market) store(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache store failed")
	}
}

// resolve is the only place a provider failure is logged, counted, notified and
// replaced with fallback data. A caller whose context is already done still gets
// the fallback, but no notice is raised for it.
func resolve[T any](ctx context.Context, s *Market, op, subject string, res result[T], fallback func() T) T {
	if res.err == nil {
		return res.value
	}

	s.metrics.Fallback(op)
	if ctx.Err() != nil {
		s.logger.Debug().Err(res.err).Str("op", op).Str("slug", subject).Msg("request abandoned; serving fallback")
		return fallback()
	}

	s.logger.Warn().Err(res.err).Str("op", op).Str("slug", subject).Msg("provider request failed; serving fallback")
	if s.notifier != nil {
		note := alerting.Notification{
			Time:    s.now().UTC(),
			Level:   alerting.LevelError,
			Op:      op,
			Subject: subject,
			Message: fallbackMessages[op],
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("op", op).Msg("failed to dispatch notice")
		}
	}
	return fallback()
}

type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand() *lockedRand {
	return &lockedRand{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

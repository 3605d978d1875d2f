package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"astrotoken/internal/alerting"
	"astrotoken/internal/cache"
	"astrotoken/internal/config"
	"astrotoken/internal/fetcher"
	"astrotoken/internal/format"
	"astrotoken/internal/metrics"
	"astrotoken/internal/service"
	"astrotoken/internal/storage"
	"astrotoken/internal/watchlist"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

// runtime is the wired object graph shared by every command.
type runtime struct {
	metrics    *metrics.Metrics
	cache      cache.Cache
	slot       storage.Slot
	watchlist  *watchlist.Store
	notices    *alerting.Recorder
	dispatcher *alerting.Dispatcher
	market     *service.Market
	formatter  *format.Formatter
}

// open wires the runtime. interactive selects where fallback notices go: the
// dashboard banner when serving, the log otherwise. The banner recorder is
// written synchronously so the page that triggered a notice can show it;
// log and Telegram delivery go through the dispatcher.
func (a *App) open(ctx context.Context, interactive bool) (*runtime, func(), error) {
	rt := &runtime{
		metrics:   metrics.New(),
		formatter: format.New(a.Config.Display.Locale),
	}

	slot, err := a.openSlot(ctx)
	if err != nil {
		return nil, nil, err
	}
	rt.slot = slot
	rt.cache = a.openCache(ctx)

	var notifier alerting.Notifier
	if a.Config.Alerting.Enabled {
		var chain, async alerting.Multi
		if interactive {
			rt.notices = alerting.NewRecorder(5)
			chain = append(chain, rt.notices)
		} else {
			async = append(async, alerting.NewLogNotifier(a.Logger))
		}
		if tg := a.newTelegram(); tg != nil {
			async = append(async, tg)
		}
		if len(async) > 0 {
			rt.dispatcher = alerting.NewDispatcher(async, a.Config.Alerting.Buffer, a.Logger)
			chain = append(chain, rt.dispatcher)
		}
		notifier = chain
	}

	rt.watchlist = watchlist.New(ctx, watchlist.NewSlotPersister(slot), a.Logger, watchlist.WithMetrics(rt.metrics))
	rt.market = service.New(a.newProvider(), rt.cache, notifier, rt.metrics, a.Logger, service.Options{
		PerPage:  a.Config.Provider.PerPage,
		CacheTTL: a.Config.Cache.TTL,
	})

	closer := func() {
		if rt.dispatcher != nil {
			rt.dispatcher.Close()
		}
		if rt.cache != nil {
			if err := rt.cache.Close(); err != nil {
				a.Logger.Warn().Err(err).Msg("failed to close cache")
			}
		}
		if err := rt.slot.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close watchlist storage")
		}
	}
	return rt, closer, nil
}

func (a *App) newProvider() *fetcher.CoinGecko {
	cfg := a.Config.Provider
	return fetcher.NewCoinGecko(fetcher.CoinGeckoOptions{
		BaseURL:      cfg.BaseURL,
		APIKey:       cfg.APIKey,
		APIKeyHeader: cfg.APIKeyHeader,
		Timeout:      cfg.RequestTimeout,
		UserAgent:    cfg.UserAgent,
	}, a.Logger)
}

func (a *App) newTelegram() alerting.Notifier {
	if !a.Config.Alerting.Telegram.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.Telegram
	return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
}

// openCache never fails: an unreachable Redis degrades to the in-memory cache.
func (a *App) openCache(ctx context.Context) cache.Cache {
	cfg := a.Config.Cache
	switch cfg.Backend {
	case "none":
		return nil
	case "redis":
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		rc, err := cache.NewRedis(pingCtx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
		if err != nil {
			a.Logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable; using in-memory cache")
			return cache.NewMemory()
		}
		return rc
	default:
		return cache.NewMemory()
	}
}

func (a *App) openSlot(ctx context.Context) (storage.Slot, error) {
	cfg := a.Config.Watchlist
	switch cfg.Backend {
	case "memory":
		return storage.NewMemorySlot(), nil
	case "sqlite":
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create watchlist dir: %w", err)
		}
		return storage.NewSQLiteSlot(filepath.Join(cfg.Path, "astrotoken.db"))
	case "postgres":
		pool, err := storage.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		slot, err := storage.NewPostgresSlot(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return slot, nil
	default:
		return storage.NewFileSlot(cfg.Path)
	}
}

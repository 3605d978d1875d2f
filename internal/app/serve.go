package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"astrotoken/internal/scheduler"
	"astrotoken/internal/web"
)

// ServeOptions override server settings from the command line.
type ServeOptions struct {
	Addr string
}

// Serve runs the dashboard and, when enabled, the listing refresher until
// interrupted.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rt, closeRuntime, err := a.open(ctx, true)
	if err != nil {
		return err
	}
	defer closeRuntime()

	deps := web.Deps{
		Market:    rt.market,
		Watchlist: rt.watchlist,
		Notices:   rt.notices,
		Formatter: rt.formatter,
		BaseURL:   a.Config.Server.BaseURL,
		Logger:    a.Logger,
	}
	if a.Config.Metrics.Enabled {
		deps.Metrics = rt.metrics.Handler()
		deps.MetricsPath = a.Config.Metrics.Path
	}
	handler, err := web.NewHandler(deps)
	if err != nil {
		return err
	}

	addr := a.Config.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return web.Serve(groupCtx, handler.Routes(), web.ServerOptions{
			Addr:         addr,
			ReadTimeout:  a.Config.Server.ReadTimeout,
			WriteTimeout: a.Config.Server.WriteTimeout,
		}, a.Logger)
	})

	if a.Config.Refresh.Enabled {
		sched, err := scheduler.New(scheduler.Options{
			Interval:     a.Config.Refresh.Interval,
			AlignToStart: a.Config.Refresh.AlignToStart,
			StartupDelay: a.Config.Refresh.StartupDelay,
			Immediate:    true,
		}, a.Logger)
		if err != nil {
			return err
		}
		group.Go(func() error {
			err := sched.Run(groupCtx, rt.market.Warm)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	a.Logger.Info().Str("addr", addr).Bool("refresh", a.Config.Refresh.Enabled).Msg("starting dashboard")
	if err := group.Wait(); err != nil {
		a.Logger.Error().Err(err).Msg("dashboard terminated with error")
		return err
	}
	a.Logger.Info().Msg("dashboard stopped")
	return nil
}

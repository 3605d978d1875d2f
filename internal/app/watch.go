package app

import (
	"context"
	"fmt"
)

// WatchList prints the watchlist slugs in insertion order.
func (a *App) WatchList(ctx context.Context) error {
	rt, closeRuntime, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	defer closeRuntime()

	slugs := rt.watchlist.Slugs()
	if len(slugs) == 0 {
		fmt.Fprintln(a.Out, "watchlist is empty")
		return nil
	}
	for _, slug := range slugs {
		fmt.Fprintln(a.Out, slug)
	}
	return nil
}

// WatchAdd adds slugs to the watchlist.
func (a *App) WatchAdd(ctx context.Context, slugs []string) error {
	return a.mutateWatchlist(ctx, slugs, true)
}

// WatchRemove removes slugs from the watchlist.
func (a *App) WatchRemove(ctx context.Context, slugs []string) error {
	return a.mutateWatchlist(ctx, slugs, false)
}

func (a *App) mutateWatchlist(ctx context.Context, slugs []string, add bool) error {
	rt, closeRuntime, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	defer closeRuntime()

	for _, slug := range slugs {
		if add {
			err = rt.watchlist.Add(ctx, slug)
		} else {
			err = rt.watchlist.Remove(ctx, slug)
		}
		if err != nil {
			return fmt.Errorf("update watchlist: %w", err)
		}
	}
	fmt.Fprintf(a.Out, "watchlist now has %d token(s)\n", rt.watchlist.Len())
	return nil
}

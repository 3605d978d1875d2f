package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"astrotoken/internal/market"
)

// ErrNotFound is returned when the provider does not know the requested coin.
var ErrNotFound = errors.New("coin not found")

// Provider retrieves market data from an upstream source.
type Provider interface {
	ListMarkets(ctx context.Context, perPage int) ([]market.Token, error)
	GetCoin(ctx context.Context, slug string) (market.Token, error)
	GetMarketChart(ctx context.Context, slug string, period market.Period) ([]market.PricePoint, error)
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("coingecko api error (%d)", e.Status)
	}
	return fmt.Sprintf("coingecko api error (%d): %s", e.Status, e.Message)
}

// Unwrap maps a 404 onto ErrNotFound.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

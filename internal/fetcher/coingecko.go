package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"astrotoken/internal/market"
	"astrotoken/internal/version"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	defaultPerPage = 50
)

// CoinGeckoOptions parameterise the CoinGecko client.
type CoinGeckoOptions struct {
	BaseURL      string
	APIKey       string
	APIKeyHeader string
	Timeout      time.Duration
	UserAgent    string
}

// CoinGecko fetches listings, coin detail and market charts from CoinGecko v3.
type CoinGecko struct {
	opts    CoinGeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewCoinGecko constructs a CoinGecko client.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &CoinGecko{
		opts:    opts,
		logger:  logger.With().Str("component", "coingecko").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// ListMarkets returns the top coins by market cap, ranked by page position.
func (c *CoinGecko) ListMarkets(ctx context.Context, perPage int) ([]market.Token, error) {
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("order", "market_cap_desc")
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("page", "1")
	query.Set("sparkline", "false")
	query.Set("price_change_percentage", "24h,7d")

	var coins []marketCoin
	if err := c.get(ctx, "/coins/markets", query, &coins); err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}

	tokens := make([]market.Token, 0, len(coins))
	for _, coin := range coins {
		tokens = append(tokens, coin.token())
	}
	market.AssignRanks(tokens)
	return tokens, nil
}

// GetCoin returns the detail record for one coin.
func (c *CoinGecko) GetCoin(ctx context.Context, slug string) (market.Token, error) {
	if slug == "" {
		return market.Token{}, ErrNotFound
	}
	query := url.Values{}
	query.Set("localization", "false")
	query.Set("tickers", "false")
	query.Set("market_data", "true")
	query.Set("community_data", "false")
	query.Set("developer_data", "false")
	query.Set("sparkline", "false")

	var detail coinDetail
	if err := c.get(ctx, "/coins/"+url.PathEscape(slug), query, &detail); err != nil {
		return market.Token{}, fmt.Errorf("get coin %s: %w", slug, err)
	}
	if detail.ID == "" {
		return market.Token{}, fmt.Errorf("get coin %s: %w", slug, ErrNotFound)
	}

	tok := detail.token()
	if raw := detail.Platforms["ethereum"]; raw != "" {
		addr, err := NormalizeAddress(raw)
		if err != nil {
			c.logger.Debug().Err(err).Str("slug", slug).Msg("ignoring invalid contract address")
		} else {
			tok.ContractAddress = addr
		}
	}
	return tok, nil
}

// GetMarketChart returns the USD price history of a coin for period.
func (c *CoinGecko) GetMarketChart(ctx context.Context, slug string, period market.Period) ([]market.PricePoint, error) {
	if slug == "" {
		return nil, ErrNotFound
	}
	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("days", period.Days())
	if interval := period.Interval(); interval != "" {
		query.Set("interval", interval)
	}

	var chart marketChart
	if err := c.get(ctx, "/coins/"+url.PathEscape(slug)+"/market_chart", query, &chart); err != nil {
		return nil, fmt.Errorf("get market chart %s: %w", slug, err)
	}
	return chartPoints(chart.Prices, period), nil
}

func (c *CoinGecko) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", version.UserAgent())
	}
	if c.opts.APIKey != "" {
		header := c.opts.APIKeyHeader
		if header == "" {
			header = "x-cg-demo-api-key"
		}
		req.Header.Set(header, c.opts.APIKey)
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	c.logger.Debug().Str("path", path).Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).Msg("provider response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseHTTPError(resp.StatusCode, payload)
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error  string `json:"error"`
	Status struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Error != "" {
			return &StatusError{Status: status, Message: apiErr.Error}
		}
		if apiErr.Status.ErrorMessage != "" {
			return &StatusError{Status: status, Message: apiErr.Status.ErrorMessage}
		}
	}
	msg := strings.TrimSpace(string(payload))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return &StatusError{Status: status, Message: msg}
}

// IsStatus reports whether err carries a provider response with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

var _ Provider = (*CoinGecko)(nil)

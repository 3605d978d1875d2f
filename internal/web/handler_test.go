package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"astrotoken/internal/alerting"
	"astrotoken/internal/market"
	"astrotoken/internal/metrics"
	"astrotoken/internal/service"
	"astrotoken/internal/watchlist"
)

type constRand float64

func (r constRand) Float64() float64 { return float64(r) }

type fakeMarket struct {
	tokens []market.Token

	mu           sync.Mutex
	historyCalls int
}

func (f *fakeMarket) ListTokens(context.Context) []market.Token { return f.tokens }

func (f *fakeMarket) GetToken(_ context.Context, slug string) (market.Token, bool) {
	return market.FindBySlug(f.tokens, slug)
}

func (f *fakeMarket) GetPriceHistory(_ context.Context, slug string, period market.Period) []market.PricePoint {
	f.mu.Lock()
	f.historyCalls++
	f.mu.Unlock()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	return market.SyntheticSeries(market.BasePrice(slug), period, now, constRand(0.5))
}

func (f *fakeMarket) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.historyCalls
}

type fixture struct {
	server  *httptest.Server
	market  *fakeMarket
	store   *watchlist.Store
	notices *alerting.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens := market.SampleTokens()[:2]
	store := watchlist.New(context.Background(), watchlist.NewMemoryPersister(), zerolog.Nop())
	notices := alerting.NewRecorder(5)
	fm := &fakeMarket{tokens: tokens}

	h, err := NewHandler(Deps{
		Market:    fm,
		Watchlist: store,
		Notices:   notices,
		Metrics:   metrics.New().Handler(),
		BaseURL:   "https://astro.example/",
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &fixture{server: srv, market: fm, store: store, notices: notices}
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func get(t *testing.T, f *fixture, path string) (int, string, http.Header) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return resp.StatusCode, string(body), resp.Header
}

func TestListing(t *testing.T) {
	f := newFixture(t)
	status, body, _ := get(t, f, "/")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	for _, want := range []string{"Bitcoin", "Ethereum", "$61,245.32", "+2.15%"} {
		if !strings.Contains(body, want) {
			t.Fatalf("listing missing %q", want)
		}
	}
}

func TestDetail(t *testing.T) {
	f := newFixture(t)
	status, body, _ := get(t, f, "/token/bitcoin?period=7d")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	for _, want := range []string{"Bitcoin", "Price Chart (7D)", "Add to Watchlist", "chart.png?period=7D", "Max Supply", "21.00M", "data:image/png;base64,"} {
		if !strings.Contains(body, want) {
			t.Fatalf("detail missing %q", want)
		}
	}
	if calls := f.market.calls(); calls != 1 {
		t.Fatalf("detail should chart and summarise one series, fetched %d", calls)
	}

	if _, body, _ := get(t, f, "/token/ethereum"); strings.Contains(body, "Max Supply") {
		t.Fatal("uncapped token should not list a max supply")
	}
}

func TestDetailUnknownTokenAndPeriod(t *testing.T) {
	f := newFixture(t)
	if status, body, _ := get(t, f, "/token/pepe"); status != http.StatusNotFound || !strings.Contains(body, "Token not found") {
		t.Fatalf("unknown token: status=%d", status)
	}
	if status, _, _ := get(t, f, "/token/bitcoin?period=5Y"); status != http.StatusBadRequest {
		t.Fatalf("unknown period: status=%d", status)
	}
}

func TestNotFoundRoute(t *testing.T) {
	f := newFixture(t)
	status, body, _ := get(t, f, "/moon/lambo")
	if status != http.StatusNotFound || !strings.Contains(body, "vanished into the digital ether") {
		t.Fatalf("status=%d", status)
	}
}

func TestWatchlistToggleFlow(t *testing.T) {
	f := newFixture(t)
	client := noRedirect()

	form := url.Values{"action": {"add"}, "return": {"/token/bitcoin?period=30D"}}
	resp, err := client.PostForm(f.server.URL+"/watchlist/bitcoin", form)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/token/bitcoin?period=30D" {
		t.Fatalf("redirect = %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
	if !f.store.Contains("bitcoin") {
		t.Fatal("bitcoin should be watched")
	}

	_, body, _ := get(t, f, "/watchlist")
	if !strings.Contains(body, "Bitcoin") || strings.Contains(body, "Ethereum") {
		t.Fatal("watchlist page should show exactly the watched tokens")
	}
	if _, detail, _ := get(t, f, "/token/bitcoin"); !strings.Contains(detail, "Remove from Watchlist") {
		t.Fatal("detail should offer removal once watched")
	}

	resp, err = client.PostForm(f.server.URL+"/watchlist/bitcoin", url.Values{"action": {"remove"}, "return": {"//evil.example"}})
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "/token/bitcoin" {
		t.Fatalf("open redirect not rejected: %s", loc)
	}
	if f.store.Contains("bitcoin") {
		t.Fatal("bitcoin should be removed")
	}

	_, body, _ = get(t, f, "/watchlist")
	if !strings.Contains(body, "Your watchlist is empty") {
		t.Fatal("empty watchlist message missing")
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	_, body, _ := get(t, f, "/search?q=eth")
	if !strings.Contains(body, "Ethereum") || strings.Contains(body, "Bitcoin</strong>") {
		t.Fatal("search should match only Ethereum")
	}
}

func TestShare(t *testing.T) {
	f := newFixture(t)
	status, body, header := get(t, f, "/token/ethereum/share")
	if status != http.StatusOK || header.Get("Content-Type") != "application/json" {
		t.Fatalf("status=%d type=%s", status, header.Get("Content-Type"))
	}
	var payload SharePayload
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Title != "Ethereum (ETH)" || payload.URL != "https://astro.example/token/ethereum" {
		t.Fatalf("payload = %+v", payload)
	}
	if !strings.Contains(payload.Text, "$3,059.87") {
		t.Fatalf("share text = %s", payload.Text)
	}
}

func TestChartPNG(t *testing.T) {
	f := newFixture(t)
	status, body, header := get(t, f, "/token/bitcoin/chart.png?period=1D")
	if status != http.StatusOK || header.Get("Content-Type") != "image/png" {
		t.Fatalf("status=%d type=%s", status, header.Get("Content-Type"))
	}
	if !strings.HasPrefix(body, "\x89PNG") {
		t.Fatal("body is not a PNG")
	}
}

func TestNoticesShownOnce(t *testing.T) {
	f := newFixture(t)
	_ = f.notices.Notify(context.Background(), alerting.Notification{
		Level:   alerting.LevelError,
		Message: "Failed to fetch cryptocurrency data. Using sample data instead.",
	})

	if _, body, _ := get(t, f, "/"); !strings.Contains(body, "Using sample data instead") {
		t.Fatal("notice banner missing")
	}
	if _, body, _ := get(t, f, "/"); strings.Contains(body, "Using sample data instead") {
		t.Fatal("notice should be shown only once")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	if status, body, _ := get(t, f, "/healthz"); status != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("healthz status=%d body=%s", status, body)
	}
	if status, body, _ := get(t, f, "/metrics"); status != http.StatusOK || !strings.Contains(body, "astrotoken_") {
		t.Fatalf("metrics status=%d", status)
	}
}

func TestSafeReturn(t *testing.T) {
	cases := map[string]string{
		"/watchlist":     "/watchlist",
		"//evil.example": "/fallback",
		"https://evil":   "/fallback",
		"/\\evil":        "/fallback",
		"":               "/fallback",
	}
	for in, want := range cases {
		if got := safeReturn(in, "/fallback"); got != want {
			t.Fatalf("safeReturn(%q) = %q", in, got)
		}
	}
}

type downProvider struct{}

func (downProvider) ListMarkets(context.Context, int) ([]market.Token, error) {
	return nil, errors.New("upstream unavailable")
}

func (downProvider) GetCoin(context.Context, string) (market.Token, error) {
	return market.Token{}, errors.New("upstream unavailable")
}

func (downProvider) GetMarketChart(context.Context, string, market.Period) ([]market.PricePoint, error) {
	return nil, errors.New("upstream unavailable")
}

func TestFallbackNoticeOnTriggeringPage(t *testing.T) {
	notices := alerting.NewRecorder(5)
	dispatcher := alerting.NewDispatcher(alerting.NewLogNotifier(zerolog.Nop()), 4, zerolog.Nop())
	defer dispatcher.Close()

	svc := service.New(downProvider{}, nil, alerting.Multi{notices, dispatcher}, nil, zerolog.Nop(), service.Options{})
	h, err := NewHandler(Deps{
		Market:    svc,
		Watchlist: watchlist.New(context.Background(), watchlist.NewMemoryPersister(), zerolog.Nop()),
		Notices:   notices,
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()
	f := &fixture{server: srv}

	_, body, _ := get(t, f, "/")
	if !strings.Contains(body, "Bitcoin") || !strings.Contains(body, "Using sample data instead") {
		t.Fatal("page serving sample data should carry the fallback notice")
	}
	if _, body, _ := get(t, f, "/watchlist"); !strings.Contains(body, "Using sample data instead") {
		t.Fatal("each fallback render raises its own notice")
	}

	_, body, _ = get(t, f, "/token/bitcoin")
	for _, want := range []string{"Failed to fetch cryptocurrency details", "Failed to fetch historical price data"} {
		if !strings.Contains(body, want) {
			t.Fatalf("detail page missing notice %q", want)
		}
	}
	if strings.Count(body, `class="notice"`) != 2 {
		t.Fatalf("detail view should raise one notice per failed fetch, got %d", strings.Count(body, `class="notice"`))
	}
}

// Package web serves the dashboard as server-rendered HTML.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"astrotoken/internal/alerting"
	"astrotoken/internal/chart"
	"astrotoken/internal/format"
	"astrotoken/internal/market"
	"astrotoken/internal/watchlist"
)

//go:embed templates/*.html
var templateFS embed.FS

// Market is the data the dashboard renders.
type Market interface {
	ListTokens(ctx context.Context) []market.Token
	GetToken(ctx context.Context, slug string) (market.Token, bool)
	GetPriceHistory(ctx context.Context, slug string, period market.Period) []market.PricePoint
}

// Deps wires the handler's collaborators. Notices, Formatter and Metrics are optional.
type Deps struct {
	Market      Market
	Watchlist   *watchlist.Store
	Notices     *alerting.Recorder
	Formatter   *format.Formatter
	Metrics     http.Handler
	MetricsPath string
	BaseURL     string
	Logger      zerolog.Logger
}

// Handler renders the dashboard pages.
type Handler struct {
	deps   Deps
	pages  map[string]*template.Template
	logger zerolog.Logger
}

// NewHandler parses the embedded templates.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Formatter == nil {
		deps.Formatter = format.New("")
	}
	if deps.MetricsPath == "" {
		deps.MetricsPath = "/metrics"
	}
	deps.BaseURL = strings.TrimRight(deps.BaseURL, "/")

	h := &Handler{deps: deps, logger: deps.Logger.With().Str("component", "web").Logger()}
	pages, err := h.parseTemplates()
	if err != nil {
		return nil, err
	}
	h.pages = pages
	return h, nil
}

func (h *Handler) parseTemplates() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"currency": h.deps.Formatter.Currency,
		"number":   format.Number,
		"percent":  format.Percent,
	}

	base, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/card.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template)
	for _, name := range []string{"listing", "detail", "watchlist", "notfound"} {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = clone
	}
	return pages, nil
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.listing)
	mux.HandleFunc("GET /search", h.search)
	mux.HandleFunc("GET /watchlist", h.watchlistPage)
	mux.HandleFunc("POST /watchlist/{slug}", h.toggleWatch)
	mux.HandleFunc("GET /token/{slug}", h.detail)
	mux.HandleFunc("GET /token/{slug}/chart.png", h.chartPNG)
	mux.HandleFunc("GET /token/{slug}/share", h.share)
	mux.HandleFunc("GET /healthz", h.health)
	if h.deps.Metrics != nil {
		mux.Handle("GET "+h.deps.MetricsPath, h.deps.Metrics)
	}
	mux.HandleFunc("/", h.notFound)

	return requestLogger(h.logger, mux)
}

type page struct {
	Title      string
	Query      string
	WatchCount int
	Notices    []alerting.Notification
}

type card struct {
	Token   market.Token
	Watched bool
}

type listingPage struct {
	page
	Cards []card
}

type detailPage struct {
	page
	Token   market.Token
	Period  market.Period
	Periods []market.Period
	Watched bool
	Range   *priceRange
	// Chart is the PNG of the same series Range describes, inlined as a data URL.
	Chart template.URL
}

type priceRange struct {
	Low, High float64
	Points    int
}

func seriesRange(points []market.PricePoint) *priceRange {
	pr := &priceRange{Low: points[0].Price, High: points[0].Price, Points: len(points)}
	for _, p := range points[1:] {
		pr.Low = min(pr.Low, p.Price)
		pr.High = max(pr.High, p.Price)
	}
	return pr
}

type notFoundPage struct {
	page
	Message string
}

func (h *Handler) newPage(title string) page {
	p := page{Title: title, WatchCount: h.deps.Watchlist.Len()}
	if h.deps.Notices != nil {
		p.Notices = h.deps.Notices.Drain()
	}
	return p
}

func (h *Handler) cards(tokens []market.Token) []card {
	out := make([]card, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, card{Token: t, Watched: h.deps.Watchlist.Contains(t.Slug)})
	}
	return out
}

func (h *Handler) listing(w http.ResponseWriter, r *http.Request) {
	tokens := h.deps.Market.ListTokens(r.Context())
	h.render(w, http.StatusOK, "listing", listingPage{
		page:  h.newPage("Tokens"),
		Cards: h.cards(tokens),
	})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	matches := market.Search(h.deps.Market.ListTokens(r.Context()), query)
	p := h.newPage("Search")
	p.Query = query
	h.render(w, http.StatusOK, "listing", listingPage{page: p, Cards: h.cards(matches)})
}

func (h *Handler) watchlistPage(w http.ResponseWriter, r *http.Request) {
	tokens := watchlist.Filter(h.deps.Market.ListTokens(r.Context()), h.deps.Watchlist.Slugs())
	h.render(w, http.StatusOK, "watchlist", listingPage{
		page:  h.newPage("Watchlist"),
		Cards: h.cards(tokens),
	})
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	period, err := market.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, ok := h.deps.Market.GetToken(r.Context(), slug)
	if !ok {
		h.renderNotFound(w, "Token not found")
		return
	}

	// Fetch before newPage drains notices so this view shows its own fallbacks.
	points := h.deps.Market.GetPriceHistory(r.Context(), slug, period)
	data := detailPage{
		page:    h.newPage(token.Name),
		Token:   token,
		Period:  period,
		Periods: market.Periods(),
		Watched: h.deps.Watchlist.Contains(slug),
	}
	if len(points) > 0 {
		data.Range = seriesRange(points)
	}
	png, err := h.renderChart(token, period, points)
	switch {
	case err == nil:
		data.Chart = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	case !errors.Is(err, chart.ErrTooFewPoints):
		h.logger.Error().Err(err).Str("slug", slug).Str("period", period.String()).Msg("failed to render chart")
	}
	h.render(w, http.StatusOK, "detail", data)
}

func (h *Handler) renderChart(token market.Token, period market.Period, points []market.PricePoint) ([]byte, error) {
	var buf bytes.Buffer
	err := chart.RenderPNG(&buf, points, chart.Options{
		Title:  fmt.Sprintf("%s (%s)", token.Name, period),
		Period: period,
		Rising: token.Rising(),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (h *Handler) chartPNG(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	period, err := market.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	token, ok := h.deps.Market.GetToken(r.Context(), slug)
	if !ok {
		http.NotFound(w, r)
		return
	}
	png, err := h.renderChart(token, period, h.deps.Market.GetPriceHistory(r.Context(), slug, period))
	if err != nil {
		h.logger.Error().Err(err).Str("slug", slug).Str("period", period.String()).Msg("failed to render chart")
		http.Error(w, "chart unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=60")
	_, _ = w.Write(png)
}

// SharePayload is what a client hands to a share sheet.
type SharePayload struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

func (h *Handler) share(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	token, ok := h.deps.Market.GetToken(r.Context(), slug)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "token not found"})
		return
	}
	writeJSON(w, http.StatusOK, SharePayload{
		Title: fmt.Sprintf("%s (%s)", token.Name, token.Symbol),
		Text: fmt.Sprintf("%s is trading at %s (%s in 24h)",
			token.Name, h.deps.Formatter.Currency(token.Price), format.Percent(token.PercentChange24h)),
		URL: h.deps.BaseURL + "/token/" + token.Slug,
	})
}

func (h *Handler) toggleWatch(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.PathValue("slug"))
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var err error
	switch action := r.PostForm.Get("action"); action {
	case "add":
		err = h.deps.Watchlist.Add(r.Context(), slug)
	case "remove":
		err = h.deps.Watchlist.Remove(r.Context(), slug)
	case "", "toggle":
		_, err = h.deps.Watchlist.Toggle(r.Context(), slug)
	default:
		http.Error(w, "unknown action "+action, http.StatusBadRequest)
		return
	}
	if err != nil && h.deps.Notices != nil {
		_ = h.deps.Notices.Notify(r.Context(), alerting.Notification{
			Level:   alerting.LevelError,
			Op:      "watchlist",
			Subject: slug,
			Message: "Could not save your watchlist",
		})
	}

	http.Redirect(w, r, safeReturn(r.PostForm.Get("return"), "/token/"+slug), http.StatusSeeOther)
}

func safeReturn(target, fallback string) string {
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\") {
		return target
	}
	return fallback
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"watchlist": h.deps.Watchlist.Len(),
	})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("path", r.URL.Path).Msg("route not found")
	h.renderNotFound(w, "This crypto token has vanished into the digital ether")
}

func (h *Handler) renderNotFound(w http.ResponseWriter, message string) {
	h.render(w, http.StatusNotFound, "notfound", notFoundPage{page: h.newPage("Not found"), Message: message})
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.logger.Error().Err(err).Str("page", name).Msg("failed to render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

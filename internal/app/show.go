package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"astrotoken/internal/format"
	"astrotoken/internal/market"
	"astrotoken/internal/watchlist"
)

// ListOptions configure the list command.
type ListOptions struct {
	Limit int
	// WatchedOnly restricts the table to watchlist members.
	WatchedOnly bool
}

// List prints the token listing.
func (a *App) List(ctx context.Context, opts ListOptions) error {
	rt, closeRuntime, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	defer closeRuntime()

	tokens := rt.market.ListTokens(ctx)
	if opts.WatchedOnly {
		tokens = watchlist.Filter(tokens, rt.watchlist.Slugs())
	}
	if opts.Limit > 0 && len(tokens) > opts.Limit {
		tokens = tokens[:opts.Limit]
	}
	return a.printTokens(rt.formatter, tokens, rt.watchlist.Contains)
}

// Search prints listing tokens matching query.
func (a *App) Search(ctx context.Context, query string) error {
	rt, closeRuntime, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	defer closeRuntime()

	matches := market.Search(rt.market.ListTokens(ctx), query)
	return a.printTokens(rt.formatter, matches, rt.watchlist.Contains)
}

func (a *App) printTokens(f *format.Formatter, tokens []market.Token, watched func(string) bool) error {
	if len(tokens) == 0 {
		fmt.Fprintln(a.Out, "no tokens found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "#\tToken\tSymbol\tPrice\t24h\t7d\tMarket Cap\tVolume 24h\t★")
	for _, t := range tokens {
		star := ""
		if watched(t.Slug) {
			star = "★"
		}
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.Rank,
			sanitizeInline(t.Name),
			t.Symbol,
			f.Currency(t.Price),
			format.Percent(t.PercentChange24h),
			format.Percent(t.PercentChange7d),
			format.Number(t.MarketCap),
			format.Number(t.Volume24h),
			star,
		)
	}
	return writer.Flush()
}

// Show prints one token's detail.
func (a *App) Show(ctx context.Context, slug string) error {
	rt, closeRuntime, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	defer closeRuntime()

	token, ok := rt.market.GetToken(ctx, slug)
	if !ok {
		return fmt.Errorf("token %q not found", slug)
	}

	maxSupply := "∞"
	if token.Capped() {
		maxSupply = format.Number(*token.MaxSupply) + " " + token.Symbol
	}
	watched := "no"
	if rt.watchlist.Contains(token.Slug) {
		watched = "yes"
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Name", fmt.Sprintf("%s (%s)", sanitizeInline(token.Name), token.Symbol)},
		{"Rank", fmt.Sprintf("#%d", token.Rank)},
		{"Price", rt.formatter.Currency(token.Price)},
		{"24h Change", format.Percent(token.PercentChange24h)},
		{"7d Change", format.Percent(token.PercentChange7d)},
		{"Market Cap", rt.formatter.Currency(token.MarketCap)},
		{"24h Volume", rt.formatter.Currency(token.Volume24h)},
		{"Circulating Supply", format.Number(token.CirculatingSupply) + " " + token.Symbol},
		{"Total Supply", format.Number(token.TotalSupply) + " " + token.Symbol},
		{"Max Supply", maxSupply},
		{"Contract", token.ContractAddress},
		{"Last Updated", token.LastUpdated},
		{"Watched", watched},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(writer, "%s\t%s\n", row[0], row[1])
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}

package app

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"astrotoken/internal/chart"
	"astrotoken/internal/market"
)

// HistoryOptions configure the history command.
type HistoryOptions struct {
	Slug    string
	Period  market.Period
	CSVPath string
	PNGPath string
}

// History prints a price series, or exports it as CSV and/or PNG.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	if opts.Slug == "" {
		return errors.New("token slug is required")
	}

	rt, closeRuntime, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	defer closeRuntime()

	points := rt.market.GetPriceHistory(ctx, opts.Slug, opts.Period)
	if len(points) == 0 {
		fmt.Fprintln(a.Out, "no price history available")
		return nil
	}
	a.Logger.Info().Str("slug", opts.Slug).Str("period", opts.Period.String()).Int("points", len(points)).Msg("price history loaded")

	if opts.CSVPath == "" && opts.PNGPath == "" {
		writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Date\tPrice")
		for _, p := range points {
			fmt.Fprintf(writer, "%s\t%s\n", p.Date, rt.formatter.Currency(p.Price))
		}
		return writer.Flush()
	}

	if opts.CSVPath != "" {
		if err := chart.WriteCSVFile(opts.CSVPath, points); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "wrote %d points to %s\n", len(points), opts.CSVPath)
	}

	if opts.PNGPath != "" {
		title := opts.Slug
		rising := true
		if token, ok := rt.market.GetToken(ctx, opts.Slug); ok {
			title = token.Name
			rising = token.Rising()
		}
		err := chart.WritePNGFile(opts.PNGPath, points, chart.Options{
			Title:  fmt.Sprintf("%s (%s)", title, opts.Period),
			Period: opts.Period,
			Rising: rising,
			Width:  1280,
			Height: 720,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "wrote chart to %s\n", opts.PNGPath)
	}

	return nil
}

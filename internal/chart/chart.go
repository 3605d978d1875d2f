// Package chart renders price histories as PNG charts and CSV files.
package chart

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"astrotoken/internal/format"
	"astrotoken/internal/market"
)

// ErrTooFewPoints is returned when a series cannot span an axis.
var ErrTooFewPoints = errors.New("price chart needs at least two points")

var (
	risingColor  = drawing.ColorFromHex("0BFFCF")
	fallingColor = drawing.ColorFromHex("ef4444")
)

// Options describe a rendered chart.
type Options struct {
	Title  string
	Period market.Period
	Rising bool
	Width  int
	Height int
}

// RenderPNG draws points as a filled line chart.
func RenderPNG(w io.Writer, points []market.PricePoint, opts Options) error {
	if len(points) < 2 {
		return ErrTooFewPoints
	}
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Height <= 0 {
		opts.Height = 400
	}

	x := make([]time.Time, len(points))
	y := make([]float64, len(points))
	for i, p := range points {
		x[i] = pointTime(p)
		y[i] = p.Price
	}

	lo, hi := format.AxisRange(points)
	if hi <= lo {
		hi = lo + 1
	}

	stroke := fallingColor
	if opts.Rising {
		stroke = risingColor
	}

	graph := gochart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat(format.TickLayout(opts.Period)),
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return format.Currency(f)
				}
				return ""
			},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name: opts.Title,
				Style: gochart.Style{
					StrokeColor: stroke,
					StrokeWidth: 2,
					FillColor:   stroke.WithAlpha(48),
				},
				XValues: x,
				YValues: y,
			},
		},
	}

	return graph.Render(gochart.PNG, w)
}

// WritePNGFile renders to path, creating parent directories.
func WritePNGFile(path string, points []market.PricePoint, opts Options) error {
	return writeFile(path, func(w io.Writer) error { return RenderPNG(w, points, opts) })
}

// WriteCSV writes a date,price table. Prices keep eight decimal places so
// sub-cent tokens survive.
func WriteCSV(w io.Writer, points []market.PricePoint) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"date", "price_usd"}); err != nil {
		return err
	}
	for _, p := range points {
		record := []string{
			p.Date,
			decimal.NewFromFloat(p.Price).StringFixed(8),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes the CSV table to path, creating parent directories.
func WriteCSVFile(path string, points []market.PricePoint) error {
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, points) })
}

func writeFile(path string, render func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(file); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func pointTime(p market.PricePoint) time.Time {
	if !p.Time.IsZero() {
		return p.Time
	}
	if t, err := time.Parse(time.RFC3339, p.Date); err == nil {
		return t
	}
	t, err := time.Parse(time.DateOnly, p.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Package format renders prices and quantities for display.
package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"astrotoken/internal/market"
)

// DefaultLocale is used when no locale is configured or the tag is invalid.
const DefaultLocale = "en-US"

// Formatter renders currency values for one locale.
type Formatter struct {
	printer *message.Printer
}

// New builds a Formatter for a BCP 47 locale tag.
func New(locale string) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.AmericanEnglish
	}
	return &Formatter{printer: message.NewPrinter(tag)}
}

var defaultFormatter = New(DefaultLocale)

// Currency formats v as USD. Values below 1 keep 4 to 6 fraction digits so
// sub-cent prices stay legible; everything else uses exactly 2.
func (f *Formatter) Currency(v float64) string {
	minDigits, maxDigits := 2, 2
	if v < 1 {
		minDigits, maxDigits = 4, 6
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	body := f.printer.Sprintf("%v", number.Decimal(v,
		number.MinFractionDigits(minDigits),
		number.MaxFractionDigits(maxDigits),
	))
	return sign + "$" + body
}

// Currency formats v with the default locale.
func Currency(v float64) string {
	return defaultFormatter.Currency(v)
}

var magnitudes = []struct {
	threshold float64
	suffix    string
}{
	{1e12, "T"},
	{1e9, "B"},
	{1e6, "M"},
	{1e3, "K"},
}

// Number abbreviates large values with T/B/M/K and 2 decimals. Values below
// one thousand are rendered as-is.
func Number(v float64) string {
	for _, m := range magnitudes {
		if v >= m.threshold {
			return decimal.NewFromFloat(v/m.threshold).StringFixed(2) + m.suffix
		}
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Percent renders a signed change with 2 decimals, e.g. "+2.15%".
func Percent(v float64) string {
	d := decimal.NewFromFloat(v)
	s := d.StringFixed(2)
	if !d.IsNegative() && !strings.HasPrefix(s, "-") {
		s = "+" + s
	}
	return s + "%"
}

// AxisRange returns the y-axis bounds for a series: 5% below the minimum and
// 5% above the maximum.
func AxisRange(points []market.PricePoint) (float64, float64) {
	if len(points) == 0 {
		return 0, 1
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		lo = math.Min(lo, p.Price)
		hi = math.Max(hi, p.Price)
	}
	return lo * 0.95, hi * 1.05
}

// TickLayout is the time layout for x-axis ticks of a period.
func TickLayout(p market.Period) string {
	switch p {
	case market.Period1D:
		return "15:04"
	case market.Period7D, market.Period30D:
		return "01-02"
	default:
		return "01/06"
	}
}

package market

import (
	"time"
)

// DefaultBasePrice seeds synthetic series for tokens outside the sample set.
const DefaultBasePrice = 100.0

type sample struct {
	id        string
	name      string
	symbol    string
	slug      string
	price     float64
	change24h float64
	change7d  float64
	marketCap float64
	volume    float64
	supply    float64
	total     float64
	max       float64
}

// Static sample data served when the provider is unreachable. Not live.
var samples = []sample{
	{"1", "Bitcoin", "BTC", "bitcoin", 61245.32, 2.15, 5.64, 1203845938253, 32584729353, 19650000, 21000000, 21000000},
	{"1027", "Ethereum", "ETH", "ethereum", 3059.87, -1.23, 3.42, 367892173522, 18473927462, 120250000, 120250000, 0},
	{"5426", "Solana", "SOL", "solana", 146.32, 3.75, 12.89, 63743298173, 2734829353, 435623120, 555623120, 0},
	{"52", "XRP", "XRP", "xrp", 0.5487, -0.78, 1.23, 29376284912, 1324567890, 53500000000, 100000000000, 100000000000},
	{"2010", "Cardano", "ADA", "cardano", 0.4231, 1.05, -2.43, 14978342567, 534678901, 35380000000, 45000000000, 45000000000},
	{"3408", "USD Coin", "USDC", "usd-coin", 1.0002, 0.01, 0.05, 32567890123, 2134567890, 32563000000, 32563000000, 0},
	{"1839", "Binance Coin", "BNB", "binance-coin", 562.78, 2.34, 5.12, 85432987654, 1243567890, 151784293, 166801148, 166801148},
	{"3717", "Wrapped Bitcoin", "WBTC", "wrapped-bitcoin", 61243.75, 2.14, 5.62, 12584739283, 243567890, 205482, 205482, 205482},
	{"5994", "Shiba Inu", "SHIB", "shiba-inu", 0.00001823, 4.56, 15.34, 10752498365, 543216789, 589658734827385, 999982123641241, 0},
	{"74", "Dogecoin", "DOGE", "dogecoin", 0.1234, 6.78, 9.87, 16745324897, 987654321, 135762489652, 135762489652, 0},
	{"3890", "Polygon", "MATIC", "polygon", 0.6735, -2.45, -4.12, 6524897634, 432156789, 9693426981, 10000000000, 10000000000},
	{"5805", "Avalanche", "AVAX", "avalanche", 32.56, 3.67, 7.89, 11765432198, 432156789, 361515108, 720000000, 720000000},
}

// SampleTokens returns a fresh copy of the fallback listing, ranked by position.
func SampleTokens() []Token {
	now := time.Now().UTC().Format(time.RFC3339)
	tokens := make([]Token, 0, len(samples))
	for _, s := range samples {
		t := Token{
			ID:                s.id,
			Name:              s.name,
			Symbol:            s.symbol,
			Slug:              s.slug,
			Price:             s.price,
			PercentChange24h:  s.change24h,
			PercentChange7d:   s.change7d,
			MarketCap:         s.marketCap,
			Volume24h:         s.volume,
			CirculatingSupply: s.supply,
			TotalSupply:       s.total,
			LastUpdated:       now,
		}
		if s.max > 0 {
			capped := s.max
			t.MaxSupply = &capped
		}
		tokens = append(tokens, t)
	}
	AssignRanks(tokens)
	return tokens
}

// SampleToken looks up a fallback token by slug.
func SampleToken(slug string) (Token, bool) {
	return FindBySlug(SampleTokens(), slug)
}

// BasePrice is the seed price for synthetic history of slug.
func BasePrice(slug string) float64 {
	if t, ok := SampleToken(slug); ok && t.Price > 0 {
		return t.Price
	}
	return DefaultBasePrice
}

// Rand is the random source used by SyntheticSeries.
type Rand interface {
	Float64() float64
}

// SyntheticSeries builds a placeholder series of period.Points() points ending at
// now (truncated to the period step). Each price is
// base * U(0.9, 1.1) * (1 + i/100). Values are not reproducible across calls.
func SyntheticSeries(base float64, period Period, now time.Time, rng Rand) []PricePoint {
	if base <= 0 {
		base = DefaultBasePrice
	}
	n := period.Points()
	step := period.Step()
	last := now.UTC().Truncate(step)

	points := make([]PricePoint, n)
	for i := 0; i < n; i++ {
		ts := last.Add(-time.Duration(n-1-i) * step)
		randomFactor := 0.9 + rng.Float64()*0.2
		trendFactor := 1 + float64(i)/100
		points[i] = PricePoint{
			Date:  period.DateLabel(ts),
			Time:  ts,
			Price: base * randomFactor * trendFactor,
		}
	}
	return points
}

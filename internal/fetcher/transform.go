package fetcher

import (
	"sort"
	"strings"
	"time"

	"astrotoken/internal/market"
)

// marketCoin is one row of /coins/markets. Nullable numbers are pointers.
type marketCoin struct {
	ID                    string   `json:"id"`
	Symbol                string   `json:"symbol"`
	Name                  string   `json:"name"`
	CurrentPrice          *float64 `json:"current_price"`
	MarketCap             *float64 `json:"market_cap"`
	MarketCapRank         *int     `json:"market_cap_rank"`
	TotalVolume           *float64 `json:"total_volume"`
	PriceChange24h        *float64 `json:"price_change_percentage_24h"`
	PriceChange7dCurrency *float64 `json:"price_change_percentage_7d_in_currency"`
	CirculatingSupply     *float64 `json:"circulating_supply"`
	TotalSupply           *float64 `json:"total_supply"`
	MaxSupply             *float64 `json:"max_supply"`
	LastUpdated           string   `json:"last_updated"`
}

func (m marketCoin) token() market.Token {
	circulating := value(m.CirculatingSupply)
	return market.Token{
		ID:                m.ID,
		Name:              m.Name,
		Symbol:            strings.ToUpper(m.Symbol),
		Slug:              m.ID,
		Price:             value(m.CurrentPrice),
		PercentChange24h:  value(m.PriceChange24h),
		PercentChange7d:   value(m.PriceChange7dCurrency),
		MarketCap:         value(m.MarketCap),
		Volume24h:         value(m.TotalVolume),
		CirculatingSupply: circulating,
		TotalSupply:       orDefault(m.TotalSupply, circulating),
		MaxSupply:         positive(m.MaxSupply),
		LastUpdated:       m.LastUpdated,
	}
}

type usdValue struct {
	USD *float64 `json:"usd"`
}

// coinDetail is the subset of /coins/{id} the dashboard uses.
type coinDetail struct {
	ID            string            `json:"id"`
	Symbol        string            `json:"symbol"`
	Name          string            `json:"name"`
	MarketCapRank *int              `json:"market_cap_rank"`
	LastUpdated   string            `json:"last_updated"`
	Platforms     map[string]string `json:"platforms"`
	MarketData    struct {
		CurrentPrice      usdValue `json:"current_price"`
		MarketCap         usdValue `json:"market_cap"`
		TotalVolume       usdValue `json:"total_volume"`
		PriceChange24h    *float64 `json:"price_change_percentage_24h"`
		PriceChange7d     *float64 `json:"price_change_percentage_7d"`
		CirculatingSupply *float64 `json:"circulating_supply"`
		TotalSupply       *float64 `json:"total_supply"`
		MaxSupply         *float64 `json:"max_supply"`
	} `json:"market_data"`
}

func (c coinDetail) token() market.Token {
	md := c.MarketData
	circulating := value(md.CirculatingSupply)
	rank := 0
	if c.MarketCapRank != nil {
		rank = *c.MarketCapRank
	}
	return market.Token{
		ID:                c.ID,
		Name:              c.Name,
		Symbol:            strings.ToUpper(c.Symbol),
		Slug:              c.ID,
		Price:             value(md.CurrentPrice.USD),
		PercentChange24h:  value(md.PriceChange24h),
		PercentChange7d:   value(md.PriceChange7d),
		MarketCap:         value(md.MarketCap.USD),
		Volume24h:         value(md.TotalVolume.USD),
		CirculatingSupply: circulating,
		TotalSupply:       orDefault(md.TotalSupply, circulating),
		MaxSupply:         positive(md.MaxSupply),
		Rank:              rank,
		LastUpdated:       c.LastUpdated,
	}
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

// chartPoints converts [ms, price] pairs into an ascending series. Daily periods
// keep one point per calendar day, the latest sample of that day winning;
// intraday periods keep one point per timestamp.
func chartPoints(raw [][2]float64, period market.Period) []market.PricePoint {
	points := make([]market.PricePoint, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, pair := range raw {
		ts := time.UnixMilli(int64(pair[0])).UTC()
		price := pair[1]
		if price < 0 {
			continue
		}
		label := period.SampleLabel(ts)
		if i, ok := index[label]; ok {
			if ts.After(points[i].Time) {
				points[i] = market.PricePoint{Date: label, Time: ts, Price: price}
			}
			continue
		}
		index[label] = len(points)
		points = append(points, market.PricePoint{Date: label, Time: ts, Price: price})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points
}

func value(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func orDefault(v *float64, fallback float64) float64 {
	if v == nil || *v == 0 {
		return fallback
	}
	return *v
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	out := *v
	return &out
}

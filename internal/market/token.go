package market

import "time"

// Token is the internal record for one cryptocurrency.
type Token struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Symbol            string   `json:"symbol"`
	Slug              string   `json:"slug"`
	Price             float64  `json:"price"`
	PercentChange24h  float64  `json:"percentChange24h"`
	PercentChange7d   float64  `json:"percentChange7d"`
	MarketCap         float64  `json:"marketCap"`
	Volume24h         float64  `json:"volume24h"`
	CirculatingSupply float64  `json:"circulatingSupply"`
	TotalSupply       float64  `json:"totalSupply"`
	MaxSupply         *float64 `json:"maxSupply"`
	Rank              int      `json:"rank"`
	LastUpdated       string   `json:"lastUpdated"`
	ContractAddress   string   `json:"contractAddress,omitempty"`
}

// Capped reports whether the token has a maximum supply.
func (t Token) Capped() bool {
	return t.MaxSupply != nil
}

// Rising reports whether the 24h change is non-negative.
func (t Token) Rising() bool {
	return t.PercentChange24h >= 0
}

// Initials returns the first two characters of the symbol, used as a badge.
func (t Token) Initials() string {
	r := []rune(t.Symbol)
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r)
}

// PricePoint is one sample of a price series.
type PricePoint struct {
	Date  string    `json:"date"`
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// AssignRanks sets Rank to the 1-based position of each token.
func AssignRanks(tokens []Token) {
	for i := range tokens {
		tokens[i].Rank = i + 1
	}
}

// FindBySlug returns the token with the given slug.
func FindBySlug(tokens []Token, slug string) (Token, bool) {
	for _, t := range tokens {
		if t.Slug == slug {
			return t, true
		}
	}
	return Token{}, false
}

package evidence

import "time"

// NewsItem is one news article in an evidence bundle. Content is truncated at
// gather time to bound prompt size.
type NewsItem struct {
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
}

// PriceSummary is the reduction of an OHLCV window to a single bar
type PriceSummary struct {
	Open          float64 `json:"open"`
	Close         float64 `json:"close"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        float64 `json:"volume"`
	ChangePercent float64 `json:"change_percent"`
}

// Bundle is the evidence assembled for one analysis request: news in a date
// window plus an aggregated price summary. Created fresh per request, never
// mutated after construction, owned by a single analysis call.
type Bundle struct {
	Ticker      string        `json:"ticker"`
	WindowStart time.Time     `json:"window_start"`
	WindowEnd   time.Time     `json:"window_end"`
	News        []NewsItem    `json:"news"`
	Price       *PriceSummary `json:"price,omitempty"`
}

// NewsCount returns the number of news items in the bundle
func (b *Bundle) NewsCount() int { return len(b.News) }

// HasPriceData reports whether the price fetch produced a summary
func (b *Bundle) HasPriceData() bool { return b.Price != nil }

// HasCategory reports whether any news item carries the given category
func (b *Bundle) HasCategory(category string) bool {
	for _, n := range b.News {
		if n.Category == category {
			return true
		}
	}
	return false
}

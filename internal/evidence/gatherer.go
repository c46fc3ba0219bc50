package evidence

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// maxContentLength bounds each article body to keep prompts small
const maxContentLength = 300

// defaultSearchLimit is how many candidate documents the vector search returns
// before date filtering
const defaultSearchLimit = 20

// Embedder turns text into a vector for semantic search
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Document is one vector-search hit with its metadata
type Document struct {
	Title     string
	Content   string
	Source    string
	Ticker    string
	Category  string
	Timestamp time.Time
	Distance  float32 // non-negative dissimilarity, 0 = identical
}

// DocumentSearcher performs nearest-neighbor search over embedded documents
type DocumentSearcher interface {
	Search(ctx context.Context, queryVector []float32, limit int, ticker string) ([]Document, error)
}

// OHLCVRow is one candlestick bar, ascending by timestamp in query results
type OHLCVRow struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// OHLCVStore retrieves price bars for a symbol. An empty result is a valid
// "no data" response, not an error.
type OHLCVStore interface {
	GetOHLCV(ctx context.Context, symbol string, start, end time.Time) ([]OHLCVRow, error)
}

// Gatherer assembles the evidence bundle for one ticker: semantically
// relevant news in the window plus an aggregated price summary. Read-only
// against its collaborators; safe for concurrent use.
type Gatherer struct {
	embedder  Embedder
	documents DocumentSearcher
	prices    OHLCVStore
}

// NewGatherer creates a context gatherer over the given collaborators
func NewGatherer(embedder Embedder, documents DocumentSearcher, prices OHLCVStore) *Gatherer {
	return &Gatherer{
		embedder:  embedder,
		documents: documents,
		prices:    prices,
	}
}

// Gather builds the evidence bundle for a ticker in [start, end]. News and
// price fetches are independent and run concurrently. A price fetch failure
// is absorbed (the summary is simply omitted); a news fetch failure
// propagates, since news is the primary evidence.
func (g *Gatherer) Gather(ctx context.Context, ticker string, start, end time.Time) (*Bundle, error) {
	bundle := &Bundle{
		Ticker:      ticker,
		WindowStart: start,
		WindowEnd:   end,
	}

	grp, grpCtx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		news, err := g.fetchNews(grpCtx, ticker, start, end)
		if err != nil {
			return fmt.Errorf("news fetch for %s: %w", ticker, err)
		}
		bundle.News = news
		return nil
	})

	grp.Go(func() error {
		price, err := g.fetchPriceSummary(grpCtx, ticker, start, end)
		if err != nil {
			// Best effort: analysis proceeds without price data
			log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to fetch price data")
			return nil
		}
		bundle.Price = price
		return nil
	})

	if err := grp.Wait(); err != nil {
		return nil, err
	}

	log.Debug().
		Str("ticker", ticker).
		Int("news_count", bundle.NewsCount()).
		Bool("has_price_data", bundle.HasPriceData()).
		Msg("Evidence bundle assembled")

	return bundle, nil
}

// fetchNews embeds a synthetic query for the ticker, searches the vector
// store, and keeps only items inside the window with truncated bodies.
func (g *Gatherer) fetchNews(ctx context.Context, ticker string, start, end time.Time) ([]NewsItem, error) {
	query := fmt.Sprintf("%s news stock market", ticker)
	vector, err := g.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	docs, err := g.documents.Search(ctx, vector, defaultSearchLimit, ticker)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	items := make([]NewsItem, 0, len(docs))
	for _, doc := range docs {
		if doc.Timestamp.Before(start) || doc.Timestamp.After(end) {
			continue
		}

		content := doc.Content
		if len(content) > maxContentLength {
			content = content[:maxContentLength]
		}

		category := doc.Category
		if category == "" {
			category = "general"
		}

		items = append(items, NewsItem{
			Title:     doc.Title,
			Content:   content,
			Source:    doc.Source,
			Timestamp: doc.Timestamp,
			Category:  category,
		})
	}

	return items, nil
}

// fetchPriceSummary reduces the OHLCV rows in the window to one summary bar.
// Returns (nil, nil) when the store has no rows for the window.
func (g *Gatherer) fetchPriceSummary(ctx context.Context, ticker string, start, end time.Time) (*PriceSummary, error) {
	rows, err := g.prices.GetOHLCV(ctx, NormalizeSymbol(ticker), start, end)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	summary := &PriceSummary{
		Open:  rows[0].Open,
		Close: rows[len(rows)-1].Close,
		High:  rows[0].High,
		Low:   rows[0].Low,
	}

	for _, row := range rows {
		if row.High > summary.High {
			summary.High = row.High
		}
		if row.Low < summary.Low {
			summary.Low = row.Low
		}
		summary.Volume += row.Volume
	}

	if summary.Open > 0 {
		summary.ChangePercent = (summary.Close - summary.Open) / summary.Open * 100
	}

	return summary, nil
}

// NormalizeSymbol maps a bare crypto ticker to its USDT trading pair. Symbols
// already carrying a quote currency pass through unchanged.
func NormalizeSymbol(ticker string) string {
	if len(ticker) >= 4 && ticker[len(ticker)-4:] == "USDT" {
		return ticker
	}
	return ticker + "USDT"
}

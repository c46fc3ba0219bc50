// Package feeds ingests external market data: RSS news articles embedded
// into the document store, and Binance OHLCV bars into the timeseries store.
package feeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/quantforge/quantforge/internal/evidence"
	"github.com/quantforge/quantforge/internal/memory"
	"github.com/quantforge/quantforge/internal/metrics"
)

// DocumentWriter persists one embedded news document
type DocumentWriter interface {
	Store(ctx context.Context, doc *memory.StoredDocument) error
}

// categoryKeywords drive the coarse article classification used downstream
// by the rule-based analysis path.
var categoryKeywords = map[string][]string{
	"earnings":   {"earnings", "revenue", "profit", "quarterly results"},
	"regulation": {"regulation", "regulator", "sec ", "lawsuit", "ban"},
}

// RSSIngester polls RSS sources, embeds articles mentioning watched tickers,
// and writes them to the document store.
type RSSIngester struct {
	sources  []string
	tickers  []string
	embedder evidence.Embedder
	store    DocumentWriter
	parser   *gofeed.Parser
	logger   zerolog.Logger
}

// NewRSSIngester creates an ingester watching the given tickers
func NewRSSIngester(sources, tickers []string, embedder evidence.Embedder, store DocumentWriter, logger zerolog.Logger) *RSSIngester {
	return &RSSIngester{
		sources:  sources,
		tickers:  tickers,
		embedder: embedder,
		store:    store,
		parser:   gofeed.NewParser(),
		logger:   logger,
	}
}

// Run fetches every source once. Source failures are logged and skipped so
// one dead feed never blocks the rest.
func (r *RSSIngester) Run(ctx context.Context) error {
	total := 0
	for _, source := range r.sources {
		count, err := r.ingestSource(ctx, source)
		if err != nil {
			r.logger.Warn().Err(err).Str("source", source).Msg("RSS source failed")
			continue
		}
		total += count
	}

	r.logger.Info().Int("documents", total).Int("sources", len(r.sources)).Msg("RSS ingest cycle complete")
	return nil
}

func (r *RSSIngester) ingestSource(ctx context.Context, source string) (int, error) {
	feed, err := r.parser.ParseURLWithContext(source, ctx)
	if err != nil {
		return 0, fmt.Errorf("parse feed: %w", err)
	}

	count := 0
	for _, item := range feed.Items {
		tickers := r.matchTickers(item)
		if len(tickers) == 0 {
			continue
		}

		published := time.Now().UTC()
		if item.PublishedParsed != nil {
			published = item.PublishedParsed.UTC()
		}

		text := item.Title
		if item.Description != "" {
			text += "\n" + item.Description
		}

		vec, err := r.embedder.Embed(ctx, text)
		if err != nil {
			r.logger.Warn().Err(err).Str("title", item.Title).Msg("Failed to embed article")
			continue
		}

		for _, ticker := range tickers {
			doc := &memory.StoredDocument{
				// Deterministic ID from the article link so replays upsert
				ID:          uuid.NewSHA1(uuid.NameSpaceURL, []byte(item.Link+"|"+ticker)),
				Title:       item.Title,
				Content:     item.Description,
				Source:      feed.Title,
				Ticker:      ticker,
				Category:    classify(item),
				PublishedAt: published,
				Embedding:   vec,
			}
			if err := r.store.Store(ctx, doc); err != nil {
				r.logger.Warn().Err(err).Str("ticker", ticker).Msg("Failed to store article")
				continue
			}
			count++
			metrics.FeedItemsIngested.WithLabelValues("rss").Inc()
		}
	}

	return count, nil
}

// matchTickers returns the watched tickers mentioned in an article
func (r *RSSIngester) matchTickers(item *gofeed.Item) []string {
	haystack := strings.ToUpper(item.Title + " " + item.Description)

	var matched []string
	for _, ticker := range r.tickers {
		if strings.Contains(haystack, strings.ToUpper(ticker)) {
			matched = append(matched, ticker)
		}
	}
	return matched
}

// classify buckets an article into the category vocabulary
func classify(item *gofeed.Item) string {
	text := strings.ToLower(item.Title + " " + item.Description)
	for category, keywords := range categoryKeywords {
		for _, keyword := range keywords {
			if strings.Contains(text, keyword) {
				return category
			}
		}
	}
	return "general"
}

package feeds

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"

	"github.com/quantforge/quantforge/internal/evidence"
	"github.com/quantforge/quantforge/internal/metrics"
)

// defaultBackfill bounds the first sync for a symbol with no stored bars
const defaultBackfill = 30 * 24 * time.Hour

// BarWriter persists price bars and reports the newest stored bar
type BarWriter interface {
	InsertBars(ctx context.Context, symbol string, bars []evidence.OHLCVRow) error
	LatestBarTime(ctx context.Context, symbol string) (time.Time, error)
}

// BinanceFeed syncs daily klines from Binance into the timeseries store.
// Public market data only, no API keys required.
type BinanceFeed struct {
	client  *binance.Client
	store   BarWriter
	symbols []string
	logger  zerolog.Logger
}

// NewBinanceFeed creates a feed for the given trading symbols
func NewBinanceFeed(symbols []string, store BarWriter, logger zerolog.Logger) *BinanceFeed {
	return &BinanceFeed{
		client:  binance.NewClient("", ""),
		store:   store,
		symbols: symbols,
		logger:  logger,
	}
}

// Run syncs every configured symbol once. Symbol failures are logged and
// skipped.
func (f *BinanceFeed) Run(ctx context.Context) error {
	for _, symbol := range f.symbols {
		if err := f.syncSymbol(ctx, symbol); err != nil {
			f.logger.Warn().Err(err).Str("symbol", symbol).Msg("Kline sync failed")
		}
	}
	return nil
}

// syncSymbol fetches daily klines since the last stored bar, or a bounded
// backfill window for a fresh symbol.
func (f *BinanceFeed) syncSymbol(ctx context.Context, symbol string) error {
	since, err := f.store.LatestBarTime(ctx, symbol)
	if err != nil {
		return fmt.Errorf("latest bar lookup: %w", err)
	}
	if since.IsZero() {
		since = time.Now().UTC().Add(-defaultBackfill)
	}

	klines, err := f.client.NewKlinesService().
		Symbol(symbol).
		Interval("1d").
		StartTime(since.UnixMilli()).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("fetch klines: %w", err)
	}
	if len(klines) == 0 {
		return nil
	}

	bars := make([]evidence.OHLCVRow, 0, len(klines))
	for _, k := range klines {
		bar, err := klineToBar(k)
		if err != nil {
			f.logger.Warn().Err(err).Str("symbol", symbol).Msg("Skipping malformed kline")
			continue
		}
		bars = append(bars, bar)
	}

	if err := f.store.InsertBars(ctx, symbol, bars); err != nil {
		return fmt.Errorf("insert bars: %w", err)
	}

	metrics.FeedItemsIngested.WithLabelValues("binance").Add(float64(len(bars)))
	f.logger.Info().
		Str("symbol", symbol).
		Int("bars", len(bars)).
		Time("since", since).
		Msg("Synced klines")

	return nil
}

// klineToBar parses the string-valued kline fields into a bar
func klineToBar(k *binance.Kline) (evidence.OHLCVRow, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return evidence.OHLCVRow{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return evidence.OHLCVRow{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return evidence.OHLCVRow{}, fmt.Errorf("parse low: %w", err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return evidence.OHLCVRow{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return evidence.OHLCVRow{}, fmt.Errorf("parse volume: %w", err)
	}

	return evidence.OHLCVRow{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantforge/quantforge/internal/evidence"
)

// TimeseriesStore persists OHLCV bars keyed by (symbol, bar_time)
type TimeseriesStore struct {
	pool Querier
}

// NewTimeseriesStore creates a timeseries store
func NewTimeseriesStore(pool Querier) *TimeseriesStore {
	return &TimeseriesStore{pool: pool}
}

// InsertBars upserts price bars for a symbol. Re-ingesting a bar for the
// same timestamp overwrites it, so feed replays are safe.
func (s *TimeseriesStore) InsertBars(ctx context.Context, symbol string, bars []evidence.OHLCVRow) error {
	query := `
		INSERT INTO ohlcv_bars (symbol, bar_time, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, bar_time) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`

	for _, bar := range bars {
		_, err := s.pool.Exec(ctx, query,
			symbol, bar.Timestamp, bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		)
		if err != nil {
			return fmt.Errorf("failed to insert bar for %s at %s: %w", symbol, bar.Timestamp, err)
		}
	}

	log.Debug().
		Str("symbol", symbol).
		Int("count", len(bars)).
		Msg("Inserted price bars")

	return nil
}

// GetOHLCV returns the bars for a symbol in [start, end], ascending by time.
// An empty result means no data for the window. Implements
// evidence.OHLCVStore.
func (s *TimeseriesStore) GetOHLCV(ctx context.Context, symbol string, start, end time.Time) ([]evidence.OHLCVRow, error) {
	query := `
		SELECT bar_time, open, high, low, close, volume
		FROM ohlcv_bars
		WHERE symbol = $1 AND bar_time >= $2 AND bar_time <= $3
		ORDER BY bar_time ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query price bars: %w", err)
	}
	defer rows.Close()

	var bars []evidence.OHLCVRow
	for rows.Next() {
		var bar evidence.OHLCVRow
		if err := rows.Scan(&bar.Timestamp, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price bar: %w", err)
		}
		bars = append(bars, bar)
	}

	return bars, rows.Err()
}

// LatestBarTime returns the newest bar timestamp stored for a symbol, or the
// zero time when none exist. Feeds use it to resume ingestion.
func (s *TimeseriesStore) LatestBarTime(ctx context.Context, symbol string) (time.Time, error) {
	var latest *time.Time
	err := s.pool.QueryRow(ctx,
		"SELECT MAX(bar_time) FROM ohlcv_bars WHERE symbol = $1", symbol,
	).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest bar: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}

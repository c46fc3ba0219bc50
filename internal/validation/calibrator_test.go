package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/quantforge/internal/evidence"
)

var calibrationNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func testCalibrator() *Calibrator {
	return NewCalibratorAt(func() time.Time { return calibrationNow })
}

func freshNews(n int) []evidence.NewsItem {
	items := make([]evidence.NewsItem, n)
	for i := range items {
		items[i] = evidence.NewsItem{
			Title:     "article",
			Content:   "content",
			Timestamp: calibrationNow.Add(-24 * time.Hour),
		}
	}
	return items
}

func TestCalibrate_NoData(t *testing.T) {
	calibrator := testCalibrator()
	bundle := &evidence.Bundle{Ticker: "BTC"}

	adjusted, reasoning := calibrator.Calibrate(0.8, bundle, Outcome{Valid: true})

	assert.InDelta(t, 0.4, adjusted, 1e-9)
	assert.Equal(t, []string{"Limited data available"}, reasoning)
}

func TestCalibrate_SparseNews(t *testing.T) {
	calibrator := testCalibrator()
	bundle := &evidence.Bundle{Ticker: "BTC", News: freshNews(2)}

	adjusted, reasoning := calibrator.Calibrate(0.8, bundle, Outcome{Valid: true})

	assert.InDelta(t, 0.8*0.7, adjusted, 1e-9)
	assert.Equal(t, []string{"Sparse news coverage"}, reasoning)
}

func TestCalibrate_RichData(t *testing.T) {
	calibrator := testCalibrator()
	bundle := &evidence.Bundle{Ticker: "BTC", News: freshNews(12)}

	adjusted, reasoning := calibrator.Calibrate(0.8, bundle, Outcome{Valid: true})

	assert.InDelta(t, 0.8*1.1, adjusted, 1e-9)
	assert.Equal(t, []string{"Rich data set"}, reasoning)
}

func TestCalibrate_MidRangeNewsNoMultiplier(t *testing.T) {
	calibrator := testCalibrator()
	bundle := &evidence.Bundle{Ticker: "BTC", News: freshNews(5)}

	adjusted, reasoning := calibrator.Calibrate(0.8, bundle, Outcome{Valid: true})

	assert.InDelta(t, 0.8, adjusted, 1e-9)
	assert.Empty(t, reasoning)
}

func TestCalibrate_ValidationPenaltyAfterScaling(t *testing.T) {
	calibrator := testCalibrator()
	bundle := &evidence.Bundle{Ticker: "BTC", News: freshNews(2)}

	outcome := Outcome{
		Valid:      false,
		Warnings:   []string{"Claimed sentiment without news data"},
		Adjustment: -0.15,
	}

	adjusted, reasoning := calibrator.Calibrate(0.8, bundle, outcome)

	// Multiplier applies to the base first, the penalty is additive after
	assert.InDelta(t, 0.8*0.7-0.15, adjusted, 1e-9)
	require.Len(t, reasoning, 2)
	assert.Equal(t, "Sparse news coverage", reasoning[0])
	assert.Equal(t, "Claimed sentiment without news data", reasoning[1])
}

func TestCalibrate_StaleNews(t *testing.T) {
	calibrator := testCalibrator()

	stale := make([]evidence.NewsItem, 5)
	for i := range stale {
		stale[i] = evidence.NewsItem{
			Title:     "old article",
			Timestamp: calibrationNow.Add(-10 * 24 * time.Hour),
		}
	}
	bundle := &evidence.Bundle{Ticker: "BTC", News: stale}

	adjusted, reasoning := calibrator.Calibrate(0.8, bundle, Outcome{Valid: true})

	assert.InDelta(t, 0.8*0.8, adjusted, 1e-9)
	assert.Equal(t, []string{"News data is stale"}, reasoning)
}

func TestCalibrate_OneFreshArticleAvoidsStaleness(t *testing.T) {
	calibrator := testCalibrator()

	news := []evidence.NewsItem{
		{Title: "old", Timestamp: calibrationNow.Add(-30 * 24 * time.Hour)},
		{Title: "old", Timestamp: calibrationNow.Add(-20 * 24 * time.Hour)},
		{Title: "old", Timestamp: calibrationNow.Add(-15 * 24 * time.Hour)},
		{Title: "fresh", Timestamp: calibrationNow.Add(-time.Hour)},
	}
	bundle := &evidence.Bundle{Ticker: "BTC", News: news}

	adjusted, reasoning := calibrator.Calibrate(0.5, bundle, Outcome{Valid: true})

	assert.InDelta(t, 0.5, adjusted, 1e-9)
	assert.Empty(t, reasoning)
}

func TestCalibrate_ClampedToUnitInterval(t *testing.T) {
	calibrator := testCalibrator()

	t.Run("Upper bound", func(t *testing.T) {
		bundle := &evidence.Bundle{Ticker: "BTC", News: freshNews(15)}

		adjusted, _ := calibrator.Calibrate(0.95, bundle, Outcome{Valid: true})

		assert.InDelta(t, 1.0, adjusted, 1e-9)
	})

	t.Run("Lower bound", func(t *testing.T) {
		bundle := &evidence.Bundle{Ticker: "BTC"}

		outcome := Outcome{Valid: false, Warnings: []string{"w"}, Adjustment: -0.3}
		adjusted, _ := calibrator.Calibrate(0.1, bundle, outcome)

		assert.InDelta(t, 0.0, adjusted, 1e-9)
	})
}

func TestCalibrate_ZeroBaseStaysZero(t *testing.T) {
	calibrator := testCalibrator()
	bundle := &evidence.Bundle{Ticker: "BTC", News: freshNews(12)}

	adjusted, _ := calibrator.Calibrate(0.0, bundle, Outcome{Valid: true})

	assert.InDelta(t, 0.0, adjusted, 1e-9)
}

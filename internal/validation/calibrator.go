package validation

import (
	"time"

	"github.com/quantforge/quantforge/internal/evidence"
)

// staleThreshold is how old the freshest article may be before the whole
// news set counts as stale
const staleThreshold = 7 * 24 * time.Hour

// Calibrator combines base model confidence, evidence richness, staleness,
// and validation penalties into a final confidence score with human-readable
// reasoning. Rules apply in a fixed order: the availability multiplier runs
// before the additive validation penalty, so a penalty is never scaled down
// by a sparse-data multiplier.
type Calibrator struct {
	now func() time.Time
}

// NewCalibrator creates a calibrator using the wall clock
func NewCalibrator() *Calibrator {
	return &Calibrator{now: time.Now}
}

// NewCalibratorAt creates a calibrator with an injected clock, for tests
func NewCalibratorAt(now func() time.Time) *Calibrator {
	return &Calibrator{now: now}
}

// Calibrate adjusts base confidence for evidence quality and validation
// outcome. Each triggered rule appends a reason string, in application order.
// The final value is clamped into [0, 1]; no earlier stage enforces bounds.
func (c *Calibrator) Calibrate(base float64, bundle *evidence.Bundle, outcome Outcome) (float64, []string) {
	adjusted := base
	var reasoning []string

	// Rule 1: data availability
	newsCount := bundle.NewsCount()
	hasPrice := bundle.HasPriceData()

	switch {
	case newsCount == 0 && !hasPrice:
		adjusted *= 0.5
		reasoning = append(reasoning, "Limited data available")
	case newsCount < 3:
		adjusted *= 0.7
		reasoning = append(reasoning, "Sparse news coverage")
	case newsCount > 10:
		adjusted *= 1.1
		reasoning = append(reasoning, "Rich data set")
	}

	// Rule 2: validation warnings, applied additively after scaling
	if !outcome.Valid {
		adjusted += outcome.Adjustment
		reasoning = append(reasoning, outcome.Warnings...)
	}

	// Rule 3: recency
	if newsCount > 0 && !c.hasRecentNews(bundle) {
		adjusted *= 0.8
		reasoning = append(reasoning, "News data is stale")
	}

	// Final clamp is the single place confidence bounds are enforced
	if adjusted < 0 {
		adjusted = 0
	}
	if adjusted > 1 {
		adjusted = 1
	}

	return adjusted, reasoning
}

func (c *Calibrator) hasRecentNews(bundle *evidence.Bundle) bool {
	cutoff := c.now().Add(-staleThreshold)
	for _, article := range bundle.News {
		if article.Timestamp.After(cutoff) {
			return true
		}
	}
	return false
}

package engine

import (
	"fmt"

	"github.com/quantforge/quantforge/internal/evidence"
)

// modelRuleBased marks results produced without any LLM call
const modelRuleBased = "rule_based"

// ruleBased produces a fast, deterministic analysis from evidence alone.
// It backs the quick mode and is the degradation target whenever the LLM
// path fails: callers always get some answer when evidence is available.
func ruleBased(bundle *evidence.Bundle) *Result {
	newsCount := bundle.NewsCount()
	hasPrice := bundle.HasPriceData()

	summary := bundle.Ticker + ": "
	var sentiment string
	var confidence float64

	switch {
	case newsCount == 0:
		summary += "No recent news activity."
		sentiment = SentimentNeutral
		confidence = 0.3
	case bundle.HasCategory("earnings"):
		summary += "Earnings-related news detected."
		if hasPrice && bundle.Price.ChangePercent > 0 {
			sentiment = SentimentBullish
		} else {
			sentiment = SentimentNeutral
		}
		confidence = 0.6
	case bundle.HasCategory("regulation"):
		summary += "Regulatory news detected."
		sentiment = SentimentBearish
		confidence = 0.5
	default:
		summary += fmt.Sprintf("%d news articles found.", newsCount)
		sentiment = SentimentNeutral
		confidence = 0.4
	}

	if hasPrice {
		summary += fmt.Sprintf(" Price: %+.2f%%", bundle.Price.ChangePercent)
	}

	priceAvailability := "unavailable"
	if hasPrice {
		priceAvailability = "available"
	}

	return &Result{
		Ticker:         bundle.Ticker,
		AnalysisType:   ModeQuick,
		Summary:        summary,
		Sentiment:      sentiment,
		Recommendation: RecommendHold, // quick mode never advises action
		Confidence:     confidence,
		KeyInsights: []string{
			fmt.Sprintf("%d news articles analyzed", newsCount),
			fmt.Sprintf("Price data: %s", priceAvailability),
		},
		Meta: Meta{ModelUsed: modelRuleBased},
	}
}

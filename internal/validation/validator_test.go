package validation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/quantforge/internal/evidence"
)

func newsItem(title, content string) evidence.NewsItem {
	return evidence.NewsItem{
		Title:     title,
		Content:   content,
		Source:    "test",
		Timestamp: time.Now().UTC(),
		Category:  "general",
	}
}

func TestValidate_CleanClaim(t *testing.T) {
	validator := NewValidator()

	bundle := &evidence.Bundle{
		Ticker: "BTC",
		News: []evidence.NewsItem{
			newsItem("BTC earnings beat expectations", "strong growth reported"),
			newsItem("BTC adoption grows", "positive outlook"),
			newsItem("BTC network update", "upgrade shipped"),
		},
		Price: &evidence.PriceSummary{Open: 100, Close: 105, ChangePercent: 5.0},
	}

	outcome := validator.Validate(Claim{
		Summary:    "BTC rose on strong earnings and adoption news.",
		Sentiment:  "bullish",
		Confidence: 0.8,
	}, bundle)

	assert.True(t, outcome.Valid)
	assert.Empty(t, outcome.Warnings)
	assert.Zero(t, outcome.Adjustment)
}

func TestValidate_SentimentWithoutNews(t *testing.T) {
	validator := NewValidator()
	bundle := &evidence.Bundle{Ticker: "BTC"}

	outcome := validator.Validate(Claim{Summary: "Short.", Sentiment: "bullish"}, bundle)

	require.False(t, outcome.Valid)
	assert.Contains(t, outcome.Warnings, "Claimed sentiment without news data")
	assert.InDelta(t, -0.1, outcome.Adjustment, 1e-9)
}

func TestValidate_NeutralWithoutNewsIsFine(t *testing.T) {
	validator := NewValidator()
	bundle := &evidence.Bundle{Ticker: "BTC"}

	outcome := validator.Validate(Claim{Summary: "Short.", Sentiment: "neutral"}, bundle)

	assert.True(t, outcome.Valid)
}

func TestValidate_SentimentContradiction(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name      string
		news      []evidence.NewsItem
		sentiment string
		warning   string
	}{
		{
			name: "Bearish claim against positive news",
			news: []evidence.NewsItem{
				newsItem("Earnings beat", "strong growth, positive upgrade"),
				newsItem("Record results", "exceed expectations"),
			},
			sentiment: "bearish",
			warning:   "Claimed bearish sentiment contradicts positive news",
		},
		{
			name: "Bullish claim against negative news",
			news: []evidence.NewsItem{
				newsItem("Earnings miss", "weak results, downgrade issued"),
				newsItem("Regulatory concern", "decline in volumes"),
			},
			sentiment: "bullish",
			warning:   "Claimed bullish sentiment contradicts negative news",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bundle := &evidence.Bundle{Ticker: "BTC", News: tt.news}

			outcome := validator.Validate(Claim{Summary: "Short.", Sentiment: tt.sentiment}, bundle)

			require.False(t, outcome.Valid)
			assert.Contains(t, outcome.Warnings, tt.warning)
			assert.InDelta(t, -0.15, outcome.Adjustment, 1e-9)
		})
	}
}

func TestValidate_PriceContradiction(t *testing.T) {
	validator := NewValidator()

	bundle := &evidence.Bundle{
		Ticker: "BTC",
		News:   []evidence.NewsItem{newsItem("BTC news", "neutral content"), newsItem("More", "neutral"), newsItem("Third", "neutral")},
		Price:  &evidence.PriceSummary{Open: 100, Close: 95, ChangePercent: -5.0},
	}

	outcome := validator.Validate(Claim{
		Summary:   "BTC rallied higher this week on broad enthusiasm across markets.",
		Sentiment: "neutral",
	}, bundle)

	require.False(t, outcome.Valid)
	assert.Contains(t, outcome.Warnings, fmt.Sprintf("Claimed price increase but actual change is %.1f%%", -5.0))
	assert.InDelta(t, -0.2, outcome.Adjustment, 1e-9)
}

func TestValidate_PriceClaimWithinThresholdTolerated(t *testing.T) {
	validator := NewValidator()

	// A 0.5% move is inside the +/-1% tolerance band, so directional
	// language is not flagged either way
	bundle := &evidence.Bundle{
		Ticker: "BTC",
		News:   []evidence.NewsItem{newsItem("a", "b"), newsItem("c", "d"), newsItem("e", "f")},
		Price:  &evidence.PriceSummary{ChangePercent: -0.5},
	}

	outcome := validator.Validate(Claim{
		Summary:   "BTC edged up slightly in an otherwise quiet trading week overall.",
		Sentiment: "neutral",
	}, bundle)

	assert.True(t, outcome.Valid)
}

func TestValidate_MissingTickerMention(t *testing.T) {
	validator := NewValidator()

	bundle := &evidence.Bundle{
		Ticker: "BTC",
		News:   []evidence.NewsItem{newsItem("a", "b"), newsItem("c", "d"), newsItem("e", "f")},
	}

	outcome := validator.Validate(Claim{
		Summary:   "The market showed broad strength this week with several assets posting gains.",
		Sentiment: "neutral",
	}, bundle)

	require.False(t, outcome.Valid)
	assert.Contains(t, outcome.Warnings, "Analysis doesn't mention ticker BTC")
	assert.InDelta(t, -0.05, outcome.Adjustment, 1e-9)
}

func TestValidate_ShortSummarySkipsTickerCheck(t *testing.T) {
	validator := NewValidator()

	bundle := &evidence.Bundle{
		Ticker: "BTC",
		News:   []evidence.NewsItem{newsItem("a", "b"), newsItem("c", "d"), newsItem("e", "f")},
	}

	outcome := validator.Validate(Claim{Summary: "Quiet week.", Sentiment: "neutral"}, bundle)

	assert.True(t, outcome.Valid)
}

func TestValidate_HighConfidenceWithoutData(t *testing.T) {
	validator := NewValidator()
	bundle := &evidence.Bundle{Ticker: "BTC"}

	outcome := validator.Validate(Claim{
		Summary:    "Short.",
		Sentiment:  "neutral",
		Confidence: 0.9,
	}, bundle)

	require.False(t, outcome.Valid)
	assert.Contains(t, outcome.Warnings, "High confidence claim without supporting data")
}

func TestValidate_PredictionWithLimitedData(t *testing.T) {
	validator := NewValidator()

	bundle := &evidence.Bundle{
		Ticker: "BTC",
		News:   []evidence.NewsItem{newsItem("One article", "content")},
	}

	outcome := validator.Validate(Claim{
		Summary:   "We expect BTC to rise.",
		Sentiment: "neutral",
	}, bundle)

	require.False(t, outcome.Valid)
	assert.Contains(t, outcome.Warnings, "Prediction made with limited data")
	assert.InDelta(t, -0.1, outcome.Adjustment, 1e-9)
}

func TestValidate_PenaltyClampedAtFloor(t *testing.T) {
	validator := NewValidator()

	// No news, no price: non-neutral sentiment (-0.1), high confidence
	// without data (-0.2), prediction on thin news (-0.1) sum to -0.4,
	// clamped to -0.3
	bundle := &evidence.Bundle{Ticker: "BTC"}

	outcome := validator.Validate(Claim{
		Summary:    "We forecast continued strength and expect the asset to rally substantially.",
		Sentiment:  "bullish",
		Confidence: 0.95,
	}, bundle)

	require.False(t, outcome.Valid)
	assert.GreaterOrEqual(t, len(outcome.Warnings), 3)
	assert.InDelta(t, -0.3, outcome.Adjustment, 1e-9)
}

func TestValidate_Deterministic(t *testing.T) {
	validator := NewValidator()

	bundle := &evidence.Bundle{
		Ticker: "ETH",
		News:   []evidence.NewsItem{newsItem("ETH upgrade", "positive strong growth")},
		Price:  &evidence.PriceSummary{ChangePercent: 2.0},
	}
	claim := Claim{Summary: "ETH gained on upgrade news.", Sentiment: "bullish", Confidence: 0.7}

	first := validator.Validate(claim, bundle)
	second := validator.Validate(claim, bundle)

	assert.Equal(t, first, second)
}

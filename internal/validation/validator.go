// Package validation cross-checks LLM analysis output against the gathered
// evidence to suppress hallucinated claims, and calibrates confidence scores
// to reflect evidence quality.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/quantforge/quantforge/internal/evidence"
)

// maxPenalty floors the summed confidence adjustment. Validation can only
// penalize, never boost.
const maxPenalty = -0.3

// Outcome is the result of validating one LLM analysis.
// Valid is true iff no check produced a warning; Adjustment is always in
// [-0.3, 0].
type Outcome struct {
	Valid      bool     `json:"valid"`
	Warnings   []string `json:"warnings"`
	Adjustment float64  `json:"confidence_adjustment"`
}

// Claim is the subset of LLM output the validator inspects
type Claim struct {
	Summary    string
	Sentiment  string
	Confidence float64
}

var (
	positiveKeywords = []string{"beat", "exceed", "growth", "strong", "positive", "upgrade"}
	negativeKeywords = []string{"miss", "decline", "weak", "negative", "downgrade", "concern"}

	upKeywords   = []string{"up", "increased", "rose", "gained", "higher", "rally"}
	downKeywords = []string{"down", "decreased", "fell", "dropped", "lower", "decline"}

	predictionKeywords = []string{"will", "predict", "forecast", "expect", "target"}

	tickerPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
)

// Validator cross-checks LLM claims against evidence. Stateless and
// deterministic: the same claim and bundle always yield the same outcome.
type Validator struct{}

// NewValidator creates a response validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs four independent checks against the evidence. Each check may
// add a warning and a penalty; penalties sum, then clamp to -0.3. A single
// triggered check marks the outcome invalid even when its score impact is
// tiny — any contradiction is surfaced to the caller.
func (v *Validator) Validate(claim Claim, bundle *evidence.Bundle) Outcome {
	var warnings []string
	penalty := 0.0

	if claim.Sentiment != "" {
		p, w := v.checkSentiment(claim.Sentiment, bundle)
		penalty += p
		warnings = append(warnings, w...)
	}

	if bundle.HasPriceData() {
		p, w := v.checkPriceClaims(claim.Summary, bundle.Price)
		penalty += p
		warnings = append(warnings, w...)
	}

	p, w := v.checkTickerMention(claim.Summary, bundle.Ticker)
	penalty += p
	warnings = append(warnings, w...)

	p, w = v.checkUnsupportedClaims(claim, bundle)
	penalty += p
	warnings = append(warnings, w...)

	if penalty < maxPenalty {
		penalty = maxPenalty
	}

	return Outcome{
		Valid:      len(warnings) == 0,
		Warnings:   warnings,
		Adjustment: penalty,
	}
}

// checkSentiment verifies the claimed sentiment against the news polarity.
// With zero news, any non-neutral sentiment is unsupported. With news, a
// lexical keyword count must not contradict the claim by more than 2x.
func (v *Validator) checkSentiment(claimed string, bundle *evidence.Bundle) (float64, []string) {
	if bundle.NewsCount() == 0 {
		if claimed != "neutral" {
			return -0.1, []string{"Claimed sentiment without news data"}
		}
		return 0, nil
	}

	positive := 0
	negative := 0
	for _, article := range bundle.News {
		content := strings.ToLower(article.Title + " " + article.Content)
		for _, kw := range positiveKeywords {
			if strings.Contains(content, kw) {
				positive++
			}
		}
		for _, kw := range negativeKeywords {
			if strings.Contains(content, kw) {
				negative++
			}
		}
	}

	if positive > negative*2 && claimed == "bearish" {
		return -0.15, []string{"Claimed bearish sentiment contradicts positive news"}
	}
	if negative > positive*2 && claimed == "bullish" {
		return -0.15, []string{"Claimed bullish sentiment contradicts negative news"}
	}

	return 0, nil
}

// checkPriceClaims scans the summary for directional language contradicting
// the actual price change. Contradictions record the real percentage.
func (v *Validator) checkPriceClaims(summary string, price *evidence.PriceSummary) (float64, []string) {
	text := strings.ToLower(summary)

	hasUpClaim := containsAny(text, upKeywords)
	hasDownClaim := containsAny(text, downKeywords)

	if hasUpClaim && price.ChangePercent < -1.0 {
		return -0.2, []string{fmt.Sprintf("Claimed price increase but actual change is %.1f%%", price.ChangePercent)}
	}
	if hasDownClaim && price.ChangePercent > 1.0 {
		return -0.2, []string{fmt.Sprintf("Claimed price decrease but actual change is %.1f%%", price.ChangePercent)}
	}

	return 0, nil
}

// checkTickerMention treats a long summary that never names the ticker as a
// weak signal of a generic, possibly off-topic answer.
func (v *Validator) checkTickerMention(summary, ticker string) (float64, []string) {
	if ticker == "" || len(summary) <= 50 {
		return 0, nil
	}

	for _, candidate := range tickerPattern.FindAllString(summary, -1) {
		if candidate == ticker {
			return 0, nil
		}
	}

	return -0.05, []string{fmt.Sprintf("Analysis doesn't mention ticker %s", ticker)}
}

// checkUnsupportedClaims penalizes high confidence without evidence and
// forward-looking language on thin news coverage.
func (v *Validator) checkUnsupportedClaims(claim Claim, bundle *evidence.Bundle) (float64, []string) {
	penalty := 0.0
	var warnings []string

	if claim.Confidence > 0.8 && bundle.NewsCount() == 0 && !bundle.HasPriceData() {
		penalty -= 0.2
		warnings = append(warnings, "High confidence claim without supporting data")
	}

	summary := strings.ToLower(claim.Summary)
	if containsAny(summary, predictionKeywords) && bundle.NewsCount() < 3 {
		penalty -= 0.1
		warnings = append(warnings, "Prediction made with limited data")
	}

	return penalty, warnings
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Package engine drives the analysis pipeline: evidence gathering, LLM
// invocation with fallback, hallucination validation, and confidence
// calibration.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quantforge/quantforge/internal/config"
	"github.com/quantforge/quantforge/internal/evidence"
	"github.com/quantforge/quantforge/internal/llm"
	"github.com/quantforge/quantforge/internal/metrics"
	"github.com/quantforge/quantforge/internal/validation"
)

// maxPromptArticles bounds how many articles go into a prompt
const maxPromptArticles = 10

// resultVersion tags the result schema
const resultVersion = "1.0"

// Engine orchestrates one analysis per call. All dependencies are injected at
// construction; the engine itself is stateless across requests and safe for
// concurrent use.
type Engine struct {
	registry   *llm.Registry
	generator  Generator
	gatherer   ContextGatherer
	validator  *validation.Validator
	calibrator *validation.Calibrator
	cfg        config.AnalysisConfig
}

// New creates an analysis engine
func New(
	registry *llm.Registry,
	generator Generator,
	gatherer ContextGatherer,
	validator *validation.Validator,
	calibrator *validation.Calibrator,
	cfg config.AnalysisConfig,
) *Engine {
	if cfg.DefaultDaysBefore == 0 {
		cfg.DefaultDaysBefore = 7
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 500
	}
	return &Engine{
		registry:   registry,
		generator:  generator,
		gatherer:   gatherer,
		validator:  validator,
		calibrator: calibrator,
		cfg:        cfg,
	}
}

// Analyze runs the full pipeline for one request. Evidence gathering failures
// propagate; LLM and parse failures degrade to the rule-based path so callers
// receive an answer whenever evidence is available.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	daysBefore := req.DaysBefore
	if daysBefore <= 0 {
		daysBefore = e.cfg.DefaultDaysBefore
	}
	windowStart := asOf.AddDate(0, 0, -daysBefore)

	log.Info().
		Str("ticker", req.Ticker).
		Str("mode", string(req.Mode)).
		Time("as_of", asOf).
		Msg("Starting analysis")

	bundle, err := e.gatherer.Gather(ctx, req.Ticker, windowStart, asOf)
	if err != nil {
		metrics.RecordAnalysis(string(req.Mode), "error", time.Since(start))
		return nil, &GatherError{Ticker: req.Ticker, Err: err}
	}

	var result *Result
	switch req.Mode {
	case ModeQuick:
		result = ruleBased(bundle)
	case ModeSentimentOnly:
		result = e.sentimentAnalysis(ctx, bundle)
	case ModeComprehensive:
		result = e.comprehensiveAnalysis(ctx, bundle)
	case ModeRiskOnly:
		metrics.RecordAnalysis(string(req.Mode), "error", time.Since(start))
		return nil, ErrRiskAnalysisNotImplemented
	default:
		metrics.RecordAnalysis(string(req.Mode), "error", time.Since(start))
		return nil, fmt.Errorf("unknown analysis mode: %q", req.Mode)
	}

	result.AnalysisType = req.Mode
	result.Meta.AnalysisDate = asOf
	result.Meta.ProcessingTimeMS = time.Since(start).Milliseconds()
	result.Meta.NewsCount = bundle.NewsCount()
	result.Meta.HasPriceData = bundle.HasPriceData()
	result.Meta.Version = resultVersion

	if req.Verbose {
		if result.Debug == nil {
			result.Debug = &DebugInfo{}
		}
		result.Debug.Evidence = bundle
		result.Debug.PromptVersion = e.registry.Version()
	} else {
		result.Debug = nil
	}

	metrics.RecordAnalysis(string(req.Mode), result.Meta.ModelUsed, time.Since(start))

	log.Info().
		Str("ticker", req.Ticker).
		Str("mode", string(req.Mode)).
		Str("model_used", result.Meta.ModelUsed).
		Float64("confidence", result.Confidence).
		Int64("processing_time_ms", result.Meta.ProcessingTimeMS).
		Msg("Analysis complete")

	return result, nil
}

// sentimentAnalysis runs the LLM sentiment path, degrading to rule-based on
// any LLM or parse failure.
func (e *Engine) sentimentAnalysis(ctx context.Context, bundle *evidence.Bundle) *Result {
	if bundle.NewsCount() == 0 {
		return &Result{
			Ticker:         bundle.Ticker,
			Summary:        "Insufficient data for sentiment analysis",
			Sentiment:      SentimentNeutral,
			Recommendation: RecommendWait,
			Confidence:     0.0,
			Meta:           Meta{ModelUsed: "none"},
		}
	}

	prompt, err := e.registry.GetPrompt(llm.TaskSentimentAnalysis, map[string]string{
		"ticker":    bundle.Ticker,
		"news_text": formatNews(bundle.News),
	})
	if err != nil {
		// Template misuse is a programming error; still degrade rather than fail
		log.Error().Err(err).Msg("Failed to build sentiment prompt")
		return ruleBased(bundle)
	}

	gen, err := e.generator.Generate(ctx, llm.GenerationRequest{
		Prompt:      prompt.User,
		System:      prompt.System,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		log.Warn().Err(err).Str("ticker", bundle.Ticker).Msg("LLM generation failed, falling back to rule-based analysis")
		return ruleBased(bundle)
	}

	var payload sentimentPayload
	if err := llm.ParseJSON(gen.Text, &payload); err != nil {
		log.Warn().Err(err).Str("provider", gen.Provider).Msg("LLM output unparseable, falling back to rule-based analysis")
		return ruleBased(bundle)
	}
	if payload.Sentiment == "" {
		payload.Sentiment = SentimentNeutral
	}

	summary := "Sentiment: " + payload.Sentiment
	if payload.Impact != "" {
		summary += ". " + payload.Impact
	}

	result := &Result{
		Ticker:         bundle.Ticker,
		Summary:        summary,
		Sentiment:      payload.Sentiment,
		Recommendation: RecommendHold,
		Confidence:     payload.Confidence,
		KeyInsights:    payload.Themes,
		Meta:           Meta{ModelUsed: gen.Provider, PromptVersion: prompt.Version},
		Debug:          &DebugInfo{RawLLMOutput: gen.Text},
	}

	e.validateAndCalibrate(result, bundle, validation.Claim{
		Summary:    summary,
		Sentiment:  payload.Sentiment,
		Confidence: payload.Confidence,
	})

	return result
}

// comprehensiveAnalysis runs the full market-summary LLM path combining news
// and price evidence, degrading to rule-based on failure.
func (e *Engine) comprehensiveAnalysis(ctx context.Context, bundle *evidence.Bundle) *Result {
	prompt, err := e.registry.GetPrompt(llm.TaskMarketSummary, map[string]string{
		"ticker":        bundle.Ticker,
		"news_text":     formatNews(bundle.News),
		"price_summary": formatPrice(bundle.Price),
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to build market summary prompt")
		return ruleBased(bundle)
	}

	gen, err := e.generator.Generate(ctx, llm.GenerationRequest{
		Prompt:      prompt.User,
		System:      prompt.System,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		log.Warn().Err(err).Str("ticker", bundle.Ticker).Msg("LLM generation failed, falling back to rule-based analysis")
		return ruleBased(bundle)
	}

	var payload comprehensivePayload
	if err := llm.ParseJSON(gen.Text, &payload); err != nil {
		log.Warn().Err(err).Str("provider", gen.Provider).Msg("LLM output unparseable, falling back to rule-based analysis")
		return ruleBased(bundle)
	}
	if payload.Sentiment == "" {
		payload.Sentiment = SentimentNeutral
	}
	if !validRecommendation(payload.Recommendation) {
		payload.Recommendation = RecommendHold
	}

	result := &Result{
		Ticker:         bundle.Ticker,
		Summary:        payload.Summary,
		Sentiment:      payload.Sentiment,
		Recommendation: payload.Recommendation,
		Confidence:     payload.Confidence,
		KeyInsights:    payload.KeyPoints,
		Meta:           Meta{ModelUsed: gen.Provider, PromptVersion: prompt.Version},
		Debug:          &DebugInfo{RawLLMOutput: gen.Text},
	}

	e.validateAndCalibrate(result, bundle, validation.Claim{
		Summary:    payload.Summary,
		Sentiment:  payload.Sentiment,
		Confidence: payload.Confidence,
	})

	return result
}

// validateAndCalibrate runs the hallucination checks and confidence
// calibration, folding warnings and reasoning into the result.
func (e *Engine) validateAndCalibrate(result *Result, bundle *evidence.Bundle, claim validation.Claim) {
	outcome := e.validator.Validate(claim, bundle)
	for _, warning := range outcome.Warnings {
		metrics.RecordValidationWarning(warning)
	}

	adjusted, reasoning := e.calibrator.Calibrate(result.Confidence, bundle, outcome)
	result.Confidence = adjusted
	result.ValidationWarnings = reasoning
}

// formatNews renders articles for a prompt, capped at maxPromptArticles
func formatNews(news []evidence.NewsItem) string {
	if len(news) == 0 {
		return "No recent news available."
	}
	if len(news) > maxPromptArticles {
		news = news[:maxPromptArticles]
	}

	parts := make([]string, 0, len(news))
	for _, article := range news {
		parts = append(parts, fmt.Sprintf("[%s] %s\n%s", article.Source, article.Title, article.Content))
	}
	return strings.Join(parts, "\n\n")
}

// formatPrice renders the price summary for a prompt
func formatPrice(price *evidence.PriceSummary) string {
	if price == nil {
		return "No price data available."
	}
	return fmt.Sprintf(
		"Open: %.2f, Close: %.2f, High: %.2f, Low: %.2f, Volume: %.2f, Change: %+.2f%%",
		price.Open, price.Close, price.High, price.Low, price.Volume, price.ChangePercent,
	)
}

func validRecommendation(r string) bool {
	switch r {
	case RecommendBuy, RecommendHold, RecommendSell, RecommendWait:
		return true
	}
	return false
}

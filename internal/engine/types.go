package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantforge/quantforge/internal/evidence"
	"github.com/quantforge/quantforge/internal/llm"
)

// Mode selects the analysis pipeline variant
type Mode string

const (
	ModeQuick         Mode = "quick"
	ModeSentimentOnly Mode = "sentiment_only"
	ModeComprehensive Mode = "comprehensive"
	ModeRiskOnly      Mode = "risk_only"
)

// ParseMode validates a mode string from the API boundary
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeQuick, ModeSentimentOnly, ModeComprehensive, ModeRiskOnly:
		return Mode(s), true
	}
	return "", false
}

// ErrRiskAnalysisNotImplemented marks the risk_only mode as a documented
// placeholder. It fails explicitly rather than silently returning nothing.
var ErrRiskAnalysisNotImplemented = errors.New("risk_only analysis is not implemented")

// GatherError marks an evidence-gathering failure. The API boundary maps it
// to an upstream error rather than a client error.
type GatherError struct {
	Ticker string
	Err    error
}

func (e *GatherError) Error() string {
	return fmt.Sprintf("gather context for %s: %v", e.Ticker, e.Err)
}

func (e *GatherError) Unwrap() error { return e.Err }

// Request describes one analysis invocation
type Request struct {
	Ticker     string
	Mode       Mode
	AsOf       time.Time // zero means now
	DaysBefore int       // zero means the configured default
	Verbose    bool
}

// Sentiment values
const (
	SentimentBullish = "bullish"
	SentimentBearish = "bearish"
	SentimentNeutral = "neutral"
)

// Recommendation values
const (
	RecommendBuy  = "BUY"
	RecommendHold = "HOLD"
	RecommendSell = "SELL"
	RecommendWait = "WAIT"
)

// Meta carries timing and provenance for one analysis
type Meta struct {
	AnalysisDate     time.Time `json:"analysis_date"`
	ProcessingTimeMS int64     `json:"processing_time_ms"`
	NewsCount        int       `json:"news_count"`
	HasPriceData     bool      `json:"has_price_data"`
	ModelUsed        string    `json:"model_used"`
	PromptVersion    string    `json:"prompt_version,omitempty"`
	Version          string    `json:"version"`
}

// Result is the final analysis output, built incrementally across pipeline
// stages and immutable once returned.
type Result struct {
	Ticker             string   `json:"ticker"`
	AnalysisType       Mode     `json:"analysis_type"`
	Summary            string   `json:"summary"`
	Sentiment          string   `json:"sentiment"`
	Recommendation     string   `json:"recommendation"`
	Confidence         float64  `json:"confidence"`
	KeyInsights        []string `json:"key_insights"`
	ValidationWarnings []string `json:"validation_warnings,omitempty"`
	Meta               Meta     `json:"meta"`

	// Debug is populated only for verbose requests
	Debug *DebugInfo `json:"_debug,omitempty"`
}

// DebugInfo exposes intermediate pipeline state for verbose requests
type DebugInfo struct {
	Evidence      *evidence.Bundle `json:"evidence"`
	RawLLMOutput  string           `json:"raw_llm_output,omitempty"`
	PromptVersion string           `json:"prompt_version,omitempty"`
}

// Generator is the LLM entry point the engine depends on, satisfied by
// llm.Router. Injected so tests can substitute a fake.
type Generator interface {
	Generate(ctx context.Context, req llm.GenerationRequest) (*llm.GenerationResult, error)
}

// ContextGatherer assembles evidence for a ticker window, satisfied by
// evidence.Gatherer.
type ContextGatherer interface {
	Gather(ctx context.Context, ticker string, start, end time.Time) (*evidence.Bundle, error)
}

// sentimentPayload is the JSON schema the sentiment prompt asks for
type sentimentPayload struct {
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Themes     []string `json:"themes"`
	Impact     string   `json:"impact"`
}

// comprehensivePayload is the JSON schema the market-summary prompt asks for
type comprehensivePayload struct {
	Summary        string   `json:"summary"`
	Sentiment      string   `json:"sentiment"`
	Recommendation string   `json:"recommendation"`
	Confidence     float64  `json:"confidence"`
	KeyPoints      []string `json:"key_points"`
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/quantforge/internal/engine"
	"github.com/quantforge/quantforge/internal/llm"
)

type fakeAnalyzer struct {
	result  *engine.Result
	err     error
	lastReq engine.Request
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req engine.Request) (*engine.Result, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeHealth struct{ err error }

func (f *fakeHealth) Health(ctx context.Context) error { return f.err }

func newTestServer(analyzer Analyzer, health HealthChecker) *Server {
	return NewServer(Config{Host: "127.0.0.1", Port: 0, Version: "test"}, analyzer, llm.NewRegistry(), health, nil)
}

func postAnalysis(t *testing.T, server *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleAnalyze_Success(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &engine.Result{
		Ticker:         "BTC",
		AnalysisType:   engine.ModeQuick,
		Summary:        "BTC: quiet week.",
		Sentiment:      engine.SentimentNeutral,
		Recommendation: engine.RecommendHold,
		Confidence:     0.4,
	}}
	server := newTestServer(analyzer, nil)

	rec := postAnalysis(t, server, `{"ticker": "btc", "analysis_type": "quick"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "BTC", result.Ticker)
	assert.Equal(t, engine.RecommendHold, result.Recommendation)

	// Ticker normalized to upper case before reaching the engine
	assert.Equal(t, "BTC", analyzer.lastReq.Ticker)
	assert.Equal(t, engine.ModeQuick, analyzer.lastReq.Mode)
}

func TestHandleAnalyze_DefaultsToComprehensive(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &engine.Result{Ticker: "ETH"}}
	server := newTestServer(analyzer, nil)

	rec := postAnalysis(t, server, `{"ticker": "ETH"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.ModeComprehensive, analyzer.lastReq.Mode)
}

func TestHandleAnalyze_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Missing ticker", `{"analysis_type": "quick"}`},
		{"Blank ticker", `{"ticker": "   "}`},
		{"Unknown analysis type", `{"ticker": "BTC", "analysis_type": "full"}`},
		{"Bad as_of", `{"ticker": "BTC", "as_of": "yesterday"}`},
		{"Negative days_before", `{"ticker": "BTC", "days_before": -3}`},
		{"Malformed JSON", `{"ticker": `},
	}

	server := newTestServer(&fakeAnalyzer{result: &engine.Result{}}, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postAnalysis(t, server, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleAnalyze_AsOfParsed(t *testing.T) {
	analyzer := &fakeAnalyzer{result: &engine.Result{}}
	server := newTestServer(analyzer, nil)

	rec := postAnalysis(t, server, `{"ticker": "BTC", "as_of": "2026-08-15T12:00:00Z", "days_before": 14}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2026, analyzer.lastReq.AsOf.Year())
	assert.Equal(t, 14, analyzer.lastReq.DaysBefore)
}

func TestHandleAnalyze_RiskModeNotImplemented(t *testing.T) {
	analyzer := &fakeAnalyzer{err: engine.ErrRiskAnalysisNotImplemented}
	server := newTestServer(analyzer, nil)

	rec := postAnalysis(t, server, `{"ticker": "BTC", "analysis_type": "risk_only"}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestHandleAnalyze_GatherFailureIsBadGateway(t *testing.T) {
	analyzer := &fakeAnalyzer{err: &engine.GatherError{Ticker: "BTC", Err: errors.New("vector store down")}}
	server := newTestServer(analyzer, nil)

	rec := postAnalysis(t, server, `{"ticker": "BTC", "analysis_type": "quick"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHandleAnalyze_OtherErrorsAreInternal(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("boom")}
	server := newTestServer(analyzer, nil)

	rec := postAnalysis(t, server, `{"ticker": "BTC", "analysis_type": "quick"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleGetHealth(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		server := newTestServer(&fakeAnalyzer{}, &fakeHealth{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Database down", func(t *testing.T) {
		server := newTestServer(&fakeAnalyzer{}, &fakeHealth{err: errors.New("no connection")})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHandleListPrompts(t *testing.T) {
	server := newTestServer(&fakeAnalyzer{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/prompts", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Version string   `json:"version"`
		Tasks   []string `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "v1", body.Version)
	assert.Contains(t, body.Tasks, "sentiment_analysis")
	assert.Contains(t, body.Tasks, "market_summary")
}

func TestRequestIDMiddleware(t *testing.T) {
	server := newTestServer(&fakeAnalyzer{}, nil)

	t.Run("Generates ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("Honors client ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "client-supplied")
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		assert.Equal(t, "client-supplied", rec.Header().Get("X-Request-ID"))
	})
}

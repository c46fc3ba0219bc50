package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/quantforge/quantforge/internal/engine"
)

// analyzeRequest is the POST /api/v1/analysis body
type analyzeRequest struct {
	Ticker       string `json:"ticker" binding:"required"`
	AnalysisType string `json:"analysis_type"`
	AsOf         string `json:"as_of"`       // optional RFC3339 timestamp
	DaysBefore   int    `json:"days_before"` // optional, defaults server-side
	Verbose      bool   `json:"verbose"`
}

// handleRoot returns service identity
func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "QuantForge API",
		"version": s.version,
		"status":  "running",
		"time":    time.Now().UTC(),
	})
}

// handleAnalyze runs one analysis. Client errors map to 400, the unfinished
// risk mode to 501, and evidence-gathering failures to 502 since they mean
// an upstream store is unavailable.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	if req.AnalysisType == "" {
		req.AnalysisType = string(engine.ModeComprehensive)
	}
	mode, ok := engine.ParseMode(req.AnalysisType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown analysis_type: " + req.AnalysisType})
		return
	}

	var asOf time.Time
	if req.AsOf != "" {
		parsed, err := time.Parse(time.RFC3339, req.AsOf)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "as_of must be RFC3339"})
			return
		}
		asOf = parsed
	}

	if req.DaysBefore < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days_before must be non-negative"})
		return
	}

	result, err := s.analyzer.Analyze(c.Request.Context(), engine.Request{
		Ticker:     ticker,
		Mode:       mode,
		AsOf:       asOf,
		DaysBefore: req.DaysBefore,
		Verbose:    req.Verbose,
	})
	if err != nil {
		var gatherErr *engine.GatherError
		switch {
		case errors.Is(err, engine.ErrRiskAnalysisNotImplemented):
			c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
		case errors.As(err, &gatherErr):
			log.Error().Err(err).Str("ticker", ticker).Msg("Evidence gathering failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "evidence sources unavailable"})
		default:
			log.Error().Err(err).Str("ticker", ticker).Msg("Analysis failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleGetHealth is a simple liveness/readiness probe
func (s *Server) handleGetHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

// handleListPrompts returns the registered prompt tasks and registry version
func (s *Server) handleListPrompts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": s.registry.Version(),
		"tasks":   s.registry.Tasks(),
	})
}

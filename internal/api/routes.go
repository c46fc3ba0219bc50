package api

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	if s.limiter != nil {
		v1.Use(RateLimitMiddleware(s.limiter))
	}
	{
		v1.POST("/analysis", s.handleAnalyze)
		v1.GET("/health", s.handleGetHealth)
		v1.GET("/prompts", s.handleListPrompts)
	}

	s.router.GET("/", s.handleRoot)
}

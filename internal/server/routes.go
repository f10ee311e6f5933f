package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Dashboard page (HTML template)
	mux.Handle("/", s.app.DashboardHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)
	mux.HandleFunc("/api/portfolio", s.app.PortfolioHandler.HandleGet)
	mux.HandleFunc("/api/portfolio/metrics", s.app.PortfolioHandler.HandleMetrics)
	mux.HandleFunc("/api/portfolio/divest", s.app.PortfolioHandler.HandleDivest)
	mux.HandleFunc("/api/portfolio/report", s.app.PortfolioHandler.HandleReport)
	mux.Handle("/api/portfolio/events", s.app.EventsHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}

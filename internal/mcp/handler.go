// Package mcp exposes the portfolio operations as MCP tools over HTTP,
// giving agent clients the same capabilities as the JSON API.
package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/greenfin/greenfin-portal/internal/common"
	"github.com/greenfin/greenfin-portal/internal/config"
	"github.com/greenfin/greenfin-portal/internal/portfolio"
	"github.com/greenfin/greenfin-portal/internal/scoring"
)

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler creates a new MCP handler with the portfolio tools registered.
// The scored loan book is optional and only enriches the report tool.
func NewHandler(service *portfolio.Service, loans []scoring.ScoredLoan, logger *common.Logger) *Handler {
	mcpSrv := mcpserver.NewMCPServer(
		"greenfin-portal",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	toolCount := registerTools(mcpSrv, service, loans)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().
		Int("tools", toolCount).
		Msg("MCP handler initialized")

	return &Handler{
		streamable: streamable,
		logger:     logger,
	}
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}

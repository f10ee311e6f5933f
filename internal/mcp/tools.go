package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/greenfin/greenfin-portal/internal/config"
	"github.com/greenfin/greenfin-portal/internal/portfolio"
	"github.com/greenfin/greenfin-portal/internal/report"
	"github.com/greenfin/greenfin-portal/internal/scoring"
)

// registerTools registers all MCP tools on the server, wiring each to the
// portfolio service. Returns the number of tools registered.
func registerTools(s *server.MCPServer, svc *portfolio.Service, loans []scoring.ScoredLoan) int {
	tools := []struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}{
		{createGetVersionTool(), handleGetVersion()},
		{createGetPortfolioTool(), handleGetPortfolio(svc)},
		{createGetMetricsTool(), handleGetMetrics(svc)},
		{createSimulateDivestmentTool(), handleSimulateDivestment(svc)},
		{createGetReportTool(), handleGetReport(svc, loans)},
	}

	for _, t := range tools {
		s.AddTool(t.tool, t.handler)
	}
	return len(tools)
}

// --- Tool definitions ---

func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the GreenFin portal version. Use this to verify connectivity."),
	)
}

func createGetPortfolioTool() mcp.Tool {
	return mcp.NewTool("get_portfolio",
		mcp.WithDescription("Get the current portfolio snapshot: per-tier exposures, loan counts, percentages, total exposure, and the most recent divestment."),
	)
}

func createGetMetricsTool() mcp.Tool {
	return mcp.NewTool("get_metrics",
		mcp.WithDescription("Get derived portfolio metrics: Tier D exposure, divestment progress, high-risk exposure (Tiers C+D), and total loan count."),
	)
}

func createSimulateDivestmentTool() mcp.Tool {
	return mcp.NewTool("simulate_divestment",
		mcp.WithDescription("Divest an amount from Tier D exposure and persist the resulting snapshot. The amount must be positive and at most the current Tier D exposure."),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Amount to divest, in millions (same unit as exposures)")),
		mcp.WithString("actor", mcp.Description("Identifier recorded on the divestment (default: 'mcp')")),
	)
}

func createGetReportTool() mcp.Tool {
	return mcp.NewTool("get_report",
		mcp.WithDescription("Get the portfolio risk summary as Markdown: per-tier table, high-risk exposure, and divestment progress."),
	)
}

// --- Handlers ---

func handleGetVersion() server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("GreenFin Portal\nVersion: %s\nBuild: %s\nCommit: %s\nStatus: OK",
			config.GetVersion(), config.GetBuild(), config.GetGitCommit())
		return mcp.NewToolResultText(result), nil
	}
}

func handleGetPortfolio(svc *portfolio.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snapshot, err := svc.Snapshot(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
		}
		return jsonResult(snapshot)
	}
}

func handleGetMetrics(svc *portfolio.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics, err := svc.Metrics(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
		}
		return jsonResult(metrics)
	}
}

func handleSimulateDivestment(svc *portfolio.Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		amount := request.GetFloat("amount", 0)
		actor := request.GetString("actor", "mcp")

		snapshot, err := svc.Divest(ctx, amount, actor)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
		}
		return jsonResult(snapshot)
	}
}

func handleGetReport(svc *portfolio.Service, loans []scoring.ScoredLoan) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snapshot, err := svc.Snapshot(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err)), nil
		}
		markdown := report.RenderSummary(snapshot, portfolio.ComputeMetrics(snapshot), loans)
		return mcp.NewToolResultText(markdown), nil
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error encoding response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

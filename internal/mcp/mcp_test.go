package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/greenfin/greenfin-portal/internal/common"
	"github.com/greenfin/greenfin-portal/internal/interfaces"
	"github.com/greenfin/greenfin-portal/internal/models"
	"github.com/greenfin/greenfin-portal/internal/portfolio"
	"github.com/greenfin/greenfin-portal/internal/scoring"
)

// --- Helpers ---

// memoryKV is an in-memory KeyValueStorage for MCP tests.
type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string)}
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", interfaces.ErrNotFound
	}
	return v, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryKV) GetAll(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

// newTestMCPServer builds an MCPServer with the portfolio tools registered
// over a seeded in-memory store.
func newTestMCPServer(t *testing.T, loans []scoring.ScoredLoan) (*mcpserver.MCPServer, *portfolio.Service) {
	t.Helper()

	store := portfolio.NewStore(newMemoryKV(), "portfolio/test", common.NewSilentLogger())

	snapshot := &models.PortfolioSnapshot{
		RiskData: []models.RiskBucket{
			{Tier: models.TierA, Exposure: 9933.22, Count: 12},
			{Tier: models.TierB, Exposure: 86354.51, Count: 45},
			{Tier: models.TierC, Exposure: 129817.65, Count: 61},
			{Tier: models.TierD, Exposure: 52052.43, Count: 24},
		},
		LastUpdated: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	snapshot.RecomputeTotals()
	snapshot.InitialTierDTarget = snapshot.Bucket(models.TierD).Exposure
	if _, err := store.SeedIfAbsent(context.Background(), snapshot); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	svc := portfolio.NewService(store, common.NewSilentLogger())

	s := mcpserver.NewMCPServer("greenfin-portal-test", "0.0.0", mcpserver.WithToolCapabilities(true))
	registerTools(s, svc, loans)
	return s, svc
}

// listTools calls tools/list on the MCPServer and returns the tools.
func listTools(t *testing.T, s *mcpserver.MCPServer) []mcpgo.Tool {
	t.Helper()

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	result := s.HandleMessage(context.Background(), msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var toolsResult mcpgo.ListToolsResult
	if err := json.Unmarshal(resultJSON, &toolsResult); err != nil {
		t.Fatalf("failed to unmarshal ListToolsResult: %v", err)
	}

	return toolsResult.Tools
}

// callTool calls a tool on the MCPServer and returns the result.
func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]interface{}) *mcpgo.CallToolResult {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":` + string(paramsJSON) + `}`)
	result := s.HandleMessage(context.Background(), msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var toolResult mcpgo.CallToolResult
	if err := json.Unmarshal(resultJSON, &toolResult); err != nil {
		t.Fatalf("failed to unmarshal CallToolResult: %v", err)
	}

	return &toolResult
}

// extractText extracts the text field from an MCP content block.
func extractText(t *testing.T, content mcpgo.Content) string {
	t.Helper()
	contentJSON, _ := json.Marshal(content)
	var tc struct {
		Text string `json:"text"`
	}
	json.Unmarshal(contentJSON, &tc)
	return tc.Text
}

// --- Tests ---

func TestRegisterTools_ListsAllTools(t *testing.T) {
	s, _ := newTestMCPServer(t, nil)

	tools := listTools(t, s)

	want := map[string]bool{
		"get_version":         false,
		"get_portfolio":       false,
		"get_metrics":         false,
		"simulate_divestment": false,
		"get_report":          false,
	}
	for _, tool := range tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("expected tool %s to be registered", name)
		}
	}
	if len(tools) != len(want) {
		t.Errorf("expected %d tools, got %d", len(want), len(tools))
	}
}

func TestGetVersionTool(t *testing.T) {
	s, _ := newTestMCPServer(t, nil)

	result := callTool(t, s, "get_version", nil)
	if result.IsError {
		t.Fatal("expected success result")
	}

	text := extractText(t, result.Content[0])
	if !strings.Contains(text, "GreenFin Portal") {
		t.Errorf("expected version banner, got: %s", text)
	}
	if !strings.Contains(text, "Status: OK") {
		t.Errorf("expected status line, got: %s", text)
	}
}

func TestGetPortfolioTool(t *testing.T) {
	s, _ := newTestMCPServer(t, nil)

	result := callTool(t, s, "get_portfolio", nil)
	if result.IsError {
		t.Fatal("expected success result")
	}

	var snapshot models.PortfolioSnapshot
	if err := json.Unmarshal([]byte(extractText(t, result.Content[0])), &snapshot); err != nil {
		t.Fatalf("failed to unmarshal snapshot from tool result: %v", err)
	}
	if len(snapshot.RiskData) != 4 {
		t.Errorf("expected 4 risk buckets, got %d", len(snapshot.RiskData))
	}
	if snapshot.Version != 1 {
		t.Errorf("expected version 1, got %d", snapshot.Version)
	}
}

func TestGetMetricsTool(t *testing.T) {
	s, _ := newTestMCPServer(t, nil)

	result := callTool(t, s, "get_metrics", nil)
	if result.IsError {
		t.Fatal("expected success result")
	}

	var metrics models.DerivedMetrics
	if err := json.Unmarshal([]byte(extractText(t, result.Content[0])), &metrics); err != nil {
		t.Fatalf("failed to unmarshal metrics from tool result: %v", err)
	}
	if metrics.TotalLoanCount != 142 {
		t.Errorf("expected 142 loans, got %d", metrics.TotalLoanCount)
	}
}

func TestSimulateDivestmentTool(t *testing.T) {
	s, svc := newTestMCPServer(t, nil)

	result := callTool(t, s, "simulate_divestment", map[string]interface{}{
		"amount": 20000,
		"actor":  "claude",
	})
	if result.IsError {
		t.Fatalf("expected success result, got: %s", extractText(t, result.Content[0]))
	}

	var snapshot models.PortfolioSnapshot
	if err := json.Unmarshal([]byte(extractText(t, result.Content[0])), &snapshot); err != nil {
		t.Fatalf("failed to unmarshal snapshot from tool result: %v", err)
	}
	if snapshot.LastAction == nil || snapshot.LastAction.User != "claude" {
		t.Error("expected divestment recorded for claude")
	}

	// The divestment is persisted, not just echoed.
	stored, err := svc.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := stored.Bucket(models.TierD).Exposure; got < 32052.42 || got > 32052.44 {
		t.Errorf("expected persisted tier D exposure ~32052.43, got %v", got)
	}
}

func TestSimulateDivestmentTool_DefaultsActor(t *testing.T) {
	s, _ := newTestMCPServer(t, nil)

	result := callTool(t, s, "simulate_divestment", map[string]interface{}{"amount": 100})
	if result.IsError {
		t.Fatalf("expected success result, got: %s", extractText(t, result.Content[0]))
	}

	var snapshot models.PortfolioSnapshot
	if err := json.Unmarshal([]byte(extractText(t, result.Content[0])), &snapshot); err != nil {
		t.Fatal(err)
	}
	if snapshot.LastAction.User != "mcp" {
		t.Errorf("expected default actor mcp, got %s", snapshot.LastAction.User)
	}
}

func TestSimulateDivestmentTool_InvalidAmount(t *testing.T) {
	s, _ := newTestMCPServer(t, nil)

	for _, amount := range []interface{}{-100, 0, 99999999} {
		result := callTool(t, s, "simulate_divestment", map[string]interface{}{"amount": amount})
		if !result.IsError {
			t.Errorf("amount %v: expected error result", amount)
		}
	}
}

func TestGetReportTool(t *testing.T) {
	loans := []scoring.ScoredLoan{
		{Loan: scoring.Loan{ID: "L1", Borrower: "Helios Solar", Sector: "Renewables", Exposure: 120.5}, Score: 91.2, Tier: models.TierA},
	}
	s, _ := newTestMCPServer(t, loans)

	result := callTool(t, s, "get_report", nil)
	if result.IsError {
		t.Fatal("expected success result")
	}

	text := extractText(t, result.Content[0])
	if !strings.Contains(text, "GREEN FINANCE PORTFOLIO RISK SUMMARY") {
		t.Errorf("expected report header, got: %s", text)
	}
	if !strings.Contains(text, "Helios Solar") {
		t.Error("expected loan book section in report")
	}
}

// ABOUTME: Pipeline and dashboard MCP tool handlers
// ABOUTME: Implements pipeline_stats, complete_activity, and analytics_report tools
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/harperreed/pagen-admin/analytics"
	"github.com/harperreed/pagen-admin/crm"
)

type StatsHandlers struct {
	ws *crm.Workspace
}

func NewStatsHandlers(ws *crm.Workspace) *StatsHandlers {
	return &StatsHandlers{ws: ws}
}

type PipelineStatsInput struct {
	Query string `json:"query,omitempty" jsonschema:"Only count deals matching this search"`
}

type PipelineStatsOutput struct {
	Stages       []crm.StatusTotal `json:"stages"`
	TotalDeals   int               `json:"total_deals"`
	TotalValue   float64           `json:"total_value"`
	Quotes       []crm.StatusTotal `json:"quotes"`
	Transactions []crm.StatusTotal `json:"transactions"`
}

func (h *StatsHandlers) PipelineStats(ctx context.Context, _ *mcp.CallToolRequest, input PipelineStatsInput) (*mcp.CallToolResult, PipelineStatsOutput, error) {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range []crm.Collection{h.ws.Deals, h.ws.Quotes, h.ws.Transactions} {
		g.Go(func() error { return c.Load(gctx) })
	}
	if err := g.Wait(); err != nil {
		return nil, PipelineStatsOutput{}, fmt.Errorf("failed to load pipeline: %w", err)
	}

	out := PipelineStatsOutput{
		Quotes:       h.ws.QuoteStats(),
		Transactions: h.ws.TransactionTotals(),
	}
	for _, b := range h.ws.Board(input.Query) {
		out.Stages = append(out.Stages, crm.StatusTotal{Status: b.Name, Count: b.Count, Amount: b.Total})
		out.TotalDeals += b.Count
		out.TotalValue += b.Total
	}
	return nil, out, nil
}

type CompleteActivityInput struct {
	ID      int64  `json:"id" jsonschema:"Activity ID"`
	Outcome string `json:"outcome,omitempty" jsonschema:"What happened (default: Task completed successfully)"`
}

func (h *StatsHandlers) CompleteActivity(ctx context.Context, _ *mcp.CallToolRequest, input CompleteActivityInput) (*mcp.CallToolResult, RecordOutput, error) {
	if err := h.ws.Activities.Load(ctx); err != nil {
		return nil, RecordOutput{}, fmt.Errorf("failed to load activities: %w", err)
	}
	a, err := h.ws.CompleteActivity(ctx, input.ID, input.Outcome)
	if err != nil {
		return nil, RecordOutput{}, fmt.Errorf("failed to complete activity: %w", err)
	}
	values, err := h.ws.Activities.Cache().Codec().Values(a)
	if err != nil {
		return nil, RecordOutput{}, err
	}
	return nil, RecordOutput{Entity: "activities", Record: values}, nil
}

type AnalyticsReportInput struct{}

// AnalyticsReport returns the dashboard metrics as JSON text. Decimal
// amounts marshal as strings, so no output schema is declared.
func (h *StatsHandlers) AnalyticsReport(ctx context.Context, _ *mcp.CallToolRequest, _ AnalyticsReportInput) (*mcp.CallToolResult, any, error) {
	metrics, err := analytics.Load(ctx, h.ws)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load analytics: %w", err)
	}
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal analytics: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}

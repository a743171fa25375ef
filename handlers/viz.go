// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides generate_graph tool for agents
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/viz"
)

type VizHandlers struct {
	ws *crm.Workspace
}

func NewVizHandlers(ws *crm.Workspace) *VizHandlers {
	return &VizHandlers{ws: ws}
}

type GenerateGraphInput struct {
	Type string `json:"type" jsonschema:"Graph type: pipeline or accounts"`
}

type GenerateGraphOutput struct {
	GraphType string `json:"graph_type"`
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, _ *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	if input.Type == "" {
		return nil, GenerateGraphOutput{}, fmt.Errorf("type is required")
	}
	if err := h.ws.LoadAll(ctx); err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to load records: %w", err)
	}

	generator := viz.NewGraphGenerator(h.ws)
	var dot []byte
	var err error

	switch input.Type {
	case "pipeline":
		dot, err = generator.GeneratePipelineGraph(ctx, viz.FormatDOT)
	case "accounts":
		dot, err = generator.GenerateAccountGraph(ctx, viz.FormatDOT)
	default:
		return nil, GenerateGraphOutput{}, fmt.Errorf("unknown graph type: %s (valid types: pipeline, accounts)", input.Type)
	}

	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	// Count nodes and edges for stats
	source := string(dot)
	nodeCount := strings.Count(source, "label=")
	edgeCount := strings.Count(source, "->")

	return nil, GenerateGraphOutput{
		GraphType: input.Type,
		DOTSource: source,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}, nil
}

// ABOUTME: MCP resource handlers for exposing CRM data
// ABOUTME: Provides read-only access to every page, single records, and the pipeline via crm:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/models"
)

// URIScheme prefixes every resource URI.
const URIScheme = "crm://"

type ResourceHandlers struct {
	ws *crm.Workspace
}

func NewResourceHandlers(ws *crm.Workspace) *ResourceHandlers {
	return &ResourceHandlers{ws: ws}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	// Parse the URI
	if !strings.HasPrefix(uri, URIScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", URIScheme)
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(uri, URIScheme), "/"), "/")
	if parts[0] == "pipeline" {
		return h.readPipeline(ctx, uri)
	}

	c, err := h.ws.Lookup(parts[0])
	if err != nil {
		return nil, fmt.Errorf("unknown resource: %s", parts[0])
	}
	if err := c.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", c.Name(), err)
	}

	switch len(parts) {
	case 1:
		return jsonResource(uri, c.List("", c.DefaultSort()))
	case 2:
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s ID: %w", singular(c.Name()), err)
		}
		return h.readRecord(ctx, uri, c, id)
	}
	return nil, fmt.Errorf("unknown resource: %s", uri)
}

func (h *ResourceHandlers) readRecord(ctx context.Context, uri string, c crm.Collection, id int64) (*mcp.ReadResourceResult, error) {
	values, ok := c.Get(id)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	// Include related activities
	var related []models.Activity
	switch c.Name() {
	case "deals":
		if err := h.ws.Activities.Load(ctx); err != nil {
			return nil, fmt.Errorf("failed to fetch deal activities: %w", err)
		}
		related = h.ws.ActivitiesForDeal(id)
	case "contacts":
		if err := h.ws.Activities.Load(ctx); err != nil {
			return nil, fmt.Errorf("failed to fetch contact activities: %w", err)
		}
		related = h.ws.ActivitiesForContact(id)
	default:
		return jsonResource(uri, values)
	}

	return jsonResource(uri, struct {
		Record     map[string]any    `json:"record"`
		Activities []models.Activity `json:"activities"`
	}{values, related})
}

func (h *ResourceHandlers) readPipeline(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if err := h.ws.Deals.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch deals: %w", err)
	}
	return jsonResource(uri, h.ws.PipelineStats())
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

// ABOUTME: MCP server assembly for the CRM workspace
// ABOUTME: Registers every tool, resource, and prompt against one workspace
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/pagen-admin/crm"
)

// NewServer builds the MCP server. Run it with a transport, for example
// server.Run(ctx, &mcp.StdioTransport{}).
func NewServer(ws *crm.Workspace, version string) *mcp.Server {
	records := NewRecordHandlers(ws)
	stats := NewStatsHandlers(ws)
	vizHandlers := NewVizHandlers(ws)
	resources := NewResourceHandlers(ws)
	prompts := NewPromptHandlers(ws)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "pagen-admin",
		Version: version,
	}, nil)

	// Register tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_records",
		Description: "List or search records of one entity type with optional sort and limit",
	}, records.ListRecords)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_record",
		Description: "Fetch one record by ID",
	}, records.GetRecord)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_record",
		Description: "Create a record; missing fields take their defaults and invalid fields are reported",
	}, records.CreateRecord)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_record",
		Description: "Update fields of an existing record",
	}, records.UpdateRecord)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_record",
		Description: "Delete a record by ID",
	}, records.DeleteRecord)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "transition_record",
		Description: "Move a deal to another stage or an activity to another status, recording the change",
	}, records.TransitionRecord)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_stats",
		Description: "Deal count and value per pipeline stage, plus quote and transaction totals",
	}, stats.PipelineStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_activity",
		Description: "Mark an activity completed with an optional outcome",
	}, stats.CompleteActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analytics_report",
		Description: "Pipeline value, conversion rates, activity completion, top contacts, and revenue forecast",
	}, stats.AnalyticsReport)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Generate a GraphViz DOT graph of the pipeline or of contacts and companies",
	}, vizHandlers.GenerateGraph)

	// Resources
	for _, c := range ws.Collections() {
		server.AddResource(&mcp.Resource{
			URI:         URIScheme + c.Name(),
			Name:        c.Name(),
			Description: "All " + c.Title(),
			MIMEType:    "application/json",
		}, resources.ReadResource)
	}
	server.AddResource(&mcp.Resource{
		URI:         URIScheme + "pipeline",
		Name:        "pipeline",
		Description: "Deal totals per pipeline stage",
		MIMEType:    "application/json",
	}, resources.ReadResource)
	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: URIScheme + "{entity}/{id}",
		Name:        "record",
		Description: "One record by entity type and ID",
		MIMEType:    "application/json",
	}, resources.ReadResource)

	// Prompts
	for _, p := range Prompts() {
		server.AddPrompt(p, prompts.GetPrompt)
	}

	return server
}

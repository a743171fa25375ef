// ABOUTME: MCP handler test suite
// ABOUTME: Exercises record tools, stats, resources, and prompts against the fixture store
package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/models"
	"github.com/harperreed/pagen-admin/store"
)

func setupWorkspace(t *testing.T) *crm.Workspace {
	t.Helper()
	backend, err := store.NewFixtureBackend(store.Latency{})
	require.NoError(t, err)
	now := time.Date(2024, 1, 26, 12, 0, 0, 0, time.UTC)
	return crm.NewWorkspace(backend, crm.Options{Now: func() time.Time { return now }})
}

func TestListRecords(t *testing.T) {
	h := NewRecordHandlers(setupWorkspace(t))
	ctx := context.Background()

	t.Run("DefaultSort", func(t *testing.T) {
		_, out, err := h.ListRecords(ctx, &mcp.CallToolRequest{}, ListRecordsInput{Entity: "contacts"})
		require.NoError(t, err)
		assert.Equal(t, "contacts", out.Entity)
		assert.Equal(t, 5, out.Count)
		assert.Equal(t, "David Kim", out.Results[0]["name"])
	})

	t.Run("QueryAndLimit", func(t *testing.T) {
		_, out, err := h.ListRecords(ctx, &mcp.CallToolRequest{}, ListRecordsInput{Entity: "deal", Sort: "value", Desc: true, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, "deals", out.Entity)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, 6, out.Total)
		assert.Equal(t, "Portfolio Analytics", out.Results[0]["title"])
	})

	t.Run("Search", func(t *testing.T) {
		_, out, err := h.ListRecords(ctx, &mcp.CallToolRequest{}, ListRecordsInput{Entity: "contacts", Query: "sarah"})
		require.NoError(t, err)
		assert.Equal(t, 1, out.Count)
	})

	t.Run("UnknownEntity", func(t *testing.T) {
		_, _, err := h.ListRecords(ctx, &mcp.CallToolRequest{}, ListRecordsInput{Entity: "widgets"})
		assert.ErrorIs(t, err, crm.ErrUnknownCollection)
	})

	t.Run("UnknownSortField", func(t *testing.T) {
		_, _, err := h.ListRecords(ctx, &mcp.CallToolRequest{}, ListRecordsInput{Entity: "contacts", Sort: "shoeSize"})
		assert.Error(t, err)
	})
}

func TestRecordLifecycle(t *testing.T) {
	ws := setupWorkspace(t)
	h := NewRecordHandlers(ws)
	ctx := context.Background()

	_, created, err := h.CreateRecord(ctx, &mcp.CallToolRequest{}, CreateRecordInput{
		Entity: "companies",
		Values: map[string]any{"name": "Acme", "industry": "Software"},
	})
	require.NoError(t, err)
	id, ok := store.ToInt64(created.Record["id"])
	require.True(t, ok)
	assert.Equal(t, int64(5), id)

	_, updated, err := h.UpdateRecord(ctx, &mcp.CallToolRequest{}, UpdateRecordInput{
		Entity: "companies",
		ID:     id,
		Values: map[string]any{"address": "1 Main St"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", updated.Record["address"])
	assert.Equal(t, "Acme", updated.Record["name"])

	_, got, err := h.GetRecord(ctx, &mcp.CallToolRequest{}, RecordInput{Entity: "companies", ID: id})
	require.NoError(t, err)
	assert.Equal(t, "Software", got.Record["industry"])

	_, deleted, err := h.DeleteRecord(ctx, &mcp.CallToolRequest{}, RecordInput{Entity: "companies", ID: id})
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	assert.Equal(t, 4, ws.Companies.Count())

	_, _, err = h.DeleteRecord(ctx, &mcp.CallToolRequest{}, RecordInput{Entity: "companies", ID: id})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestCreateRecordValidation(t *testing.T) {
	h := NewRecordHandlers(setupWorkspace(t))
	ctx := context.Background()

	_, _, err := h.CreateRecord(ctx, &mcp.CallToolRequest{}, CreateRecordInput{
		Entity: "contacts",
		Values: map[string]any{"name": "", "email": "not-an-email"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrInvalid)
	assert.Contains(t, err.Error(), "Name is required")
	assert.Contains(t, err.Error(), "Please enter a valid email address")

	_, _, err = h.CreateRecord(ctx, &mcp.CallToolRequest{}, CreateRecordInput{
		Entity: "contacts",
		Values: map[string]any{"favoriteColor": "blue"},
	})
	assert.Error(t, err)

	_, _, err = h.UpdateRecord(ctx, &mcp.CallToolRequest{}, UpdateRecordInput{Entity: "contacts", ID: 1})
	assert.Error(t, err)
}

func TestTransitionRecord(t *testing.T) {
	ws := setupWorkspace(t)
	h := NewRecordHandlers(ws)
	ctx := context.Background()

	_, out, err := h.TransitionRecord(ctx, &mcp.CallToolRequest{}, TransitionRecordInput{Entity: "deals", ID: 2, Value: "Qualified"})
	require.NoError(t, err)
	assert.Equal(t, "Qualified", out.Record["stage"])

	deal, ok := ws.Deals.Cache().Get(2)
	require.True(t, ok)
	require.NotEmpty(t, deal.Activities)
	assert.Equal(t, "Deal moved from Lead to Qualified", deal.Activities[len(deal.Activities)-1].Description)

	_, _, err = h.TransitionRecord(ctx, &mcp.CallToolRequest{}, TransitionRecordInput{Entity: "contacts", ID: 1, Value: "x"})
	assert.Error(t, err)

	_, _, err = h.TransitionRecord(ctx, &mcp.CallToolRequest{}, TransitionRecordInput{Entity: "deals", ID: 99, Value: "Lead"})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestPipelineStats(t *testing.T) {
	h := NewStatsHandlers(setupWorkspace(t))

	_, out, err := h.PipelineStats(context.Background(), &mcp.CallToolRequest{}, PipelineStatsInput{})
	require.NoError(t, err)
	require.Len(t, out.Stages, len(models.KanbanStages))
	assert.Equal(t, models.StageLead, out.Stages[0].Status)
	assert.Equal(t, 1, out.Stages[0].Count)
	assert.InDelta(t, 75000, out.Stages[0].Amount, 0.001)
	assert.Equal(t, 5, out.TotalDeals)
	assert.InDelta(t, 293000, out.TotalValue, 0.001)
	assert.NotEmpty(t, out.Quotes)
	assert.NotEmpty(t, out.Transactions)
}

func TestCompleteActivity(t *testing.T) {
	ws := setupWorkspace(t)
	h := NewStatsHandlers(ws)

	_, out, err := h.CompleteActivity(context.Background(), &mcp.CallToolRequest{}, CompleteActivityInput{ID: 2})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityCompleted, out.Record["status"])
	assert.Equal(t, crm.DefaultOutcome, out.Record["outcome"])
	assert.NotEmpty(t, out.Record["completedAt"])
}

func TestAnalyticsReport(t *testing.T) {
	h := NewStatsHandlers(setupWorkspace(t))

	result, _, err := h.AnalyticsReport(context.Background(), &mcp.CallToolRequest{}, AnalyticsReportInput{})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text := result.Content[0].(*mcp.TextContent).Text

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &decoded))
	assert.Contains(t, decoded, "pipeline")
	assert.Contains(t, decoded, "forecast")
}

func TestGenerateGraph(t *testing.T) {
	h := NewVizHandlers(setupWorkspace(t))
	ctx := context.Background()

	_, out, err := h.GenerateGraph(ctx, &mcp.CallToolRequest{}, GenerateGraphInput{Type: "pipeline"})
	require.NoError(t, err)
	assert.Contains(t, out.DOTSource, "Cloud Migration")
	assert.Positive(t, out.NodeCount)

	_, _, err = h.GenerateGraph(ctx, &mcp.CallToolRequest{}, GenerateGraphInput{Type: "org-chart"})
	assert.Error(t, err)
	_, _, err = h.GenerateGraph(ctx, &mcp.CallToolRequest{}, GenerateGraphInput{})
	assert.Error(t, err)
}

func readResource(t *testing.T, h *ResourceHandlers, uri string) (string, error) {
	t.Helper()
	res, err := h.ReadResource(context.Background(), &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{URI: uri},
	})
	if err != nil {
		return "", err
	}
	require.Len(t, res.Contents, 1)
	assert.Equal(t, uri, res.Contents[0].URI)
	return res.Contents[0].Text, nil
}

func TestReadResource(t *testing.T) {
	h := NewResourceHandlers(setupWorkspace(t))

	text, err := readResource(t, h, "crm://companies")
	require.NoError(t, err)
	assert.Contains(t, text, "TechCorp Solutions")

	text, err = readResource(t, h, "crm://deals/2")
	require.NoError(t, err)
	assert.Contains(t, text, "Cloud Migration")
	assert.Contains(t, text, "Discovery call")

	text, err = readResource(t, h, "crm://pipeline")
	require.NoError(t, err)
	assert.Contains(t, text, "Negotiation")

	_, err = readResource(t, h, "crm://deals/99")
	assert.Error(t, err)
	_, err = readResource(t, h, "crm://deals/abc")
	assert.Error(t, err)
	_, err = readResource(t, h, "http://deals")
	assert.Error(t, err)
	_, err = readResource(t, h, "crm://widgets")
	assert.Error(t, err)
}

func getPrompt(h *PromptHandlers, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	return h.GetPrompt(context.Background(), &mcp.GetPromptRequest{
		Params: &mcp.GetPromptParams{Name: name, Arguments: args},
	})
}

func TestPrompts(t *testing.T) {
	h := NewPromptHandlers(setupWorkspace(t))

	res, err := getPrompt(h, "contact-summary", map[string]string{"contact_id": "1"})
	require.NoError(t, err)
	assert.Equal(t, "Summary for contact: Sarah Johnson", res.Description)
	text := res.Messages[0].Content.(*mcp.TextContent).Text
	assert.Contains(t, text, "Discovery call")

	_, err = getPrompt(h, "contact-summary", nil)
	assert.Error(t, err)
	_, err = getPrompt(h, "contact-summary", map[string]string{"contact_id": "42"})
	assert.Error(t, err)

	res, err = getPrompt(h, "deal-analysis", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "$293,000")

	res, err = getPrompt(h, "follow-up-suggestions", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(*mcp.TextContent).Text, "Send revised proposal")

	_, err = getPrompt(h, "haiku", nil)
	assert.Error(t, err)
}

func TestServerOverInMemoryTransport(t *testing.T) {
	ctx := context.Background()
	server := NewServer(setupWorkspace(t), "test")

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer func() { _ = session.Close() }()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{"list_records", "create_record", "update_record", "delete_record", "transition_record", "pipeline_stats"} {
		assert.Contains(t, names, want)
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "list_records",
		Arguments: map[string]any{"entity": "companies"},
	})
	require.NoError(t, err)
	assert.False(t, result.IsError)

	result, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "list_records",
		Arguments: map[string]any{"entity": "widgets"},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

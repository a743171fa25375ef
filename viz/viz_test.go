package viz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/store"
)

func loadedWorkspace(t *testing.T) *crm.Workspace {
	t.Helper()
	backend, err := store.NewFixtureBackend(store.Latency{})
	require.NoError(t, err)
	now := time.Date(2024, 1, 26, 12, 0, 0, 0, time.UTC)
	w := crm.NewWorkspace(backend, crm.Options{Now: func() time.Time { return now }})
	require.NoError(t, w.LoadAll(context.Background()))
	return w
}

func TestDashboard(t *testing.T) {
	stats := GenerateDashboardStats(loadedWorkspace(t))

	assert.Equal(t, 5, stats.TotalContacts)
	assert.Equal(t, 6, stats.TotalDeals)
	assert.Len(t, stats.Pipeline, 5)
	assert.Len(t, stats.Overdue, 2)

	out := RenderDashboard(stats)
	assert.Contains(t, out, "PIPELINE OVERVIEW")
	assert.Contains(t, out, "Negotiation")
	assert.Contains(t, out, "$50,400")
	assert.Contains(t, out, "Emily Rodriguez")
	assert.Contains(t, out, "2 overdue activities")
	assert.Equal(t, 10*len(stats.Pipeline), strings.Count(out, "█")+strings.Count(out, "░"))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".SVG")
	require.NoError(t, err)
	assert.Equal(t, FormatSVG, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatDOT, f)

	_, err = ParseFormat("gif")
	assert.Error(t, err)
}

func TestPipelineGraph(t *testing.T) {
	g := NewGraphGenerator(loadedWorkspace(t))

	dot, err := g.GeneratePipelineGraph(context.Background(), FormatDOT)
	require.NoError(t, err)
	assert.Contains(t, string(dot), "Deal Pipeline")
	assert.Contains(t, string(dot), "Cloud Migration")
}

func TestAccountGraph(t *testing.T) {
	g := NewGraphGenerator(loadedWorkspace(t))

	dot, err := g.GenerateAccountGraph(context.Background(), FormatDOT)
	require.NoError(t, err)
	assert.Contains(t, string(dot), "TechCorp Solutions")
	assert.Contains(t, string(dot), "works at")
}

// ABOUTME: Tests for the cobra command tree
// ABOUTME: Commands run against the fixture store, or a temp SQLite file for seeding
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/pagen-admin/config"
	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/store"
)

var testNow = time.Date(2024, 1, 26, 12, 0, 0, 0, time.UTC)

func fixtureOptions(t *testing.T) Options {
	t.Helper()
	backend, err := store.NewFixtureBackend(store.Latency{})
	require.NoError(t, err)
	return Options{
		Version: "test",
		Backend: backend,
		Now:     func() time.Time { return testNow },
	}
}

// run executes one command line and returns its stdout.
func run(t *testing.T, opts Options, args ...string) (string, error) {
	t.Helper()
	root, a := newRoot(opts)

	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	// never read the developer's own config file
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "config.json")}, args...))

	err := root.ExecuteContext(context.Background())
	require.NoError(t, a.close())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, fixtureOptions(t), "version")
	require.NoError(t, err)
	assert.Equal(t, "pagen-admin version test\n", out)
}

func TestList(t *testing.T) {
	opts := fixtureOptions(t)

	t.Run("Table", func(t *testing.T) {
		out, err := run(t, opts, "list", "contacts")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 6)
		assert.Contains(t, lines[0], "NAME")
		assert.Contains(t, lines[1], "David Kim")
	})

	t.Run("SortLimitJSON", func(t *testing.T) {
		out, err := run(t, opts, "list", "deals", "--sort", "value", "--desc", "--limit", "2", "--json")
		require.NoError(t, err)
		var rows []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "Portfolio Analytics", rows[0]["title"])
	})

	t.Run("Money", func(t *testing.T) {
		out, err := run(t, opts, "list", "deals", "--query", "cloud migration")
		require.NoError(t, err)
		assert.Contains(t, out, "$75,000")
	})

	t.Run("NoMatches", func(t *testing.T) {
		out, err := run(t, opts, "list", "contacts", "-q", "zzz")
		require.NoError(t, err)
		assert.Equal(t, "No contacts found.\n", out)
	})

	t.Run("UnknownEntity", func(t *testing.T) {
		_, err := run(t, opts, "list", "widgets")
		assert.ErrorIs(t, err, crm.ErrUnknownCollection)
	})

	t.Run("UnknownSort", func(t *testing.T) {
		_, err := run(t, opts, "list", "contacts", "--sort", "shoeSize")
		assert.ErrorContains(t, err, `unknown sort field "shoeSize"`)
	})
}

func TestAddUpdateDelete(t *testing.T) {
	opts := fixtureOptions(t)

	out, err := run(t, opts, "add", "companies", "--set", "name=Acme", "--set", "industry=Software")
	require.NoError(t, err)
	assert.Equal(t, "✓ Created company Acme (ID: 5)\n", out)

	out, err = run(t, opts, "list", "companies")
	require.NoError(t, err)
	assert.Contains(t, out, "Acme")

	out, err = run(t, opts, "update", "contacts", "1", "--set", "phone=555-0100")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated contact Sarah Johnson")

	out, err = run(t, opts, "show", "contacts", "1", "--json")
	require.NoError(t, err)
	var contact map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &contact))
	assert.Equal(t, "555-0100", contact["phone"])

	// stdin is not a terminal, so no prompt
	out, err = run(t, opts, "delete", "contacts", "1")
	require.NoError(t, err)
	assert.Equal(t, "✓ Deleted contact 1\n", out)

	_, err = run(t, opts, "show", "contacts", "1")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestValidationErrors(t *testing.T) {
	opts := fixtureOptions(t)

	t.Run("Required", func(t *testing.T) {
		_, err := run(t, opts, "add", "companies")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Company name is required")
		assert.Contains(t, err.Error(), "Industry is required")
	})

	t.Run("Rule", func(t *testing.T) {
		_, err := run(t, opts, "update", "contacts", "1", "--set", "phone=x")
		assert.ErrorContains(t, err, "Please enter a valid phone number")
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := run(t, opts, "add", "contacts", "--set", "shoeSize=9")
		assert.ErrorContains(t, err, `unknown field "shoeSize"`)
	})

	t.Run("BadSet", func(t *testing.T) {
		_, err := run(t, opts, "add", "contacts", "--set", "name")
		assert.ErrorContains(t, err, "want field=value")
	})

	t.Run("BadID", func(t *testing.T) {
		_, err := run(t, opts, "delete", "contacts", "abc")
		assert.ErrorContains(t, err, `invalid ID "abc"`)
	})

	t.Run("MissingRecord", func(t *testing.T) {
		_, err := run(t, opts, "delete", "contacts", "99")
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})
}

func TestTransitionAndComplete(t *testing.T) {
	opts := fixtureOptions(t)

	out, err := run(t, opts, "transition", "deals", "2", "stage", "Qualified")
	require.NoError(t, err)
	assert.Contains(t, out, "Stage is now Qualified")

	out, err = run(t, opts, "show", "deals", "2", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "Deal moved from Lead to Qualified")

	out, err = run(t, opts, "complete", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Completed Discovery call")
	assert.Contains(t, out, crm.DefaultOutcome)
}

func TestBoardAndStats(t *testing.T) {
	opts := fixtureOptions(t)

	out, err := run(t, opts, "board")
	require.NoError(t, err)
	assert.Contains(t, out, "Lead (1, $75,000)")
	assert.Contains(t, out, "#2 Cloud Migration")
	assert.Contains(t, out, "Total: 5 deals, $293,000")

	out, err = run(t, opts, "stats", "quotes")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "Sent")

	out, err = run(t, opts, "stats", "activities")
	require.NoError(t, err)
	assert.Contains(t, out, "Open:      3")
	assert.Contains(t, out, "Discovery call")

	_, err = run(t, opts, "stats", "contacts")
	assert.ErrorContains(t, err, "no stats for contacts")
}

func TestDashboardAndAnalytics(t *testing.T) {
	opts := fixtureOptions(t)

	out, err := run(t, opts, "dashboard")
	require.NoError(t, err)
	assert.Contains(t, out, "PAGEN ADMIN DASHBOARD")
	assert.Contains(t, out, "PIPELINE OVERVIEW")

	out, err = run(t, opts, "analytics")
	require.NoError(t, err)
	var metrics map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &metrics))
	assert.Contains(t, metrics, "pipeline")
	assert.Contains(t, metrics, "forecast")
}

func TestViz(t *testing.T) {
	opts := fixtureOptions(t)

	out, err := run(t, opts, "viz", "pipeline")
	require.NoError(t, err)
	assert.Contains(t, out, "Cloud Migration")

	path := filepath.Join(t.TempDir(), "accounts.dot")
	out, err = run(t, opts, "viz", "accounts", "--output", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "TechCorp Solutions")

	_, err = run(t, opts, "viz", "pipeline", "--format", "gif")
	assert.ErrorContains(t, err, "unknown graph format")
}

func TestSeedSQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "crm.db")
	opts := Options{Version: "test", Now: func() time.Time { return testNow }}

	out, err := run(t, opts, "--backend", "sqlite", "--db-path", dbPath, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "contact_c: 5 records")

	out, err = run(t, opts, "--backend", "sqlite", "--db-path", dbPath, "list", "contacts")
	require.NoError(t, err)
	assert.Contains(t, out, "David Kim")
}

func TestBackendSelection(t *testing.T) {
	t.Run("Invalid", func(t *testing.T) {
		_, err := run(t, Options{}, "--backend", "floppy", "list", "contacts")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("SeedUnsupported", func(t *testing.T) {
		_, err := run(t, fixtureOptions(t), "seed")
		assert.ErrorContains(t, err, "cannot be seeded")
	})

	t.Run("SyncNeedsCharm", func(t *testing.T) {
		_, err := run(t, fixtureOptions(t), "sync", "status")
		assert.ErrorIs(t, err, errNotCharm)
	})
}

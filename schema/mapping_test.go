// ABOUTME: Tests for the UI/storage schema mapping
// ABOUTME: Covers defaults, startup binding, both translation directions, and coercion
package schema

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/pagen-admin/store"
)

type widget struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	OwnerID   *int64         `json:"ownerId,omitempty"`
	OwnerName string         `json:"ownerName,omitempty"`
	Price     float64        `json:"price"`
	Count     int            `json:"count"`
	Active    bool           `json:"active"`
	Tags      []string       `json:"tags,omitempty"`
	SeenAt    time.Time      `json:"seenAt"`
	Extra     map[string]any `json:"-"`
}

func widgetMapping(t *testing.T) *Mapping {
	t.Helper()
	m, err := New("widget_c", "title",
		Field{UI: "title"},
		Field{UI: "ownerId", LookupName: "ownerName"},
		Field{UI: "ownerName"},
		Field{UI: "price"},
		Field{UI: "count"},
		Field{UI: "active", Storage: "is_active_c"},
		Field{UI: "tags", Encoded: true},
		Field{UI: "seenAt"},
	)
	require.NoError(t, err)
	require.NoError(t, m.Bind(reflect.TypeOf(widget{})))
	return m
}

func TestDefaultStorageName(t *testing.T) {
	assert.Equal(t, "email_c", DefaultStorageName("email"))
	assert.Equal(t, "last_contact_date_c", DefaultStorageName("lastContactDate"))
	assert.Equal(t, "expected_close_date_c", DefaultStorageName("expectedCloseDate"))
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New("x_c", "", Field{UI: "a"}, Field{UI: "a"})
	assert.ErrorIs(t, err, ErrDuplicateField)

	_, err = New("x_c", "", Field{UI: "a", Storage: "col"}, Field{UI: "b", Storage: "col"})
	assert.ErrorIs(t, err, ErrDuplicateField)

	_, err = New("x_c", "missing", Field{UI: "a"})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestBindRejectsUnknownStructField(t *testing.T) {
	m, err := New("widget_c", "", Field{UI: "nope"})
	require.NoError(t, err)
	assert.ErrorIs(t, m.Bind(reflect.TypeOf(widget{})), ErrUnknownField)
	assert.False(t, m.Bound())
}

func TestBindRecordsKinds(t *testing.T) {
	m := widgetMapping(t)
	assert.True(t, m.Bound())

	kinds := map[string]Kind{
		"id":      KindInt,
		"title":   KindString,
		"ownerId": KindInt,
		"price":   KindFloat,
		"active":  KindBool,
		"tags":    KindJSON,
		"seenAt":  KindTime,
	}
	for ui, want := range kinds {
		f, ok := m.Field(ui)
		require.True(t, ok, ui)
		assert.Equal(t, want, f.Kind(), ui)
	}

	owner, _ := m.Field("ownerId")
	assert.True(t, owner.Optional())
}

func TestToStorage(t *testing.T) {
	m := widgetMapping(t)

	rec, err := m.ToStorage(map[string]any{
		"id":     int64(2),
		"title":  "Gear",
		"active": true,
		"tags":   []string{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), rec[store.IDField])
	assert.Equal(t, "Gear", rec["title_c"])
	assert.Equal(t, "Gear", rec[store.NameField], "display value mirrors into Name")
	assert.Equal(t, true, rec["is_active_c"])
	assert.Equal(t, `["a","b"]`, rec["tags_c"])

	_, err = m.ToStorage(map[string]any{"bogus": 1})
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestFromStorage(t *testing.T) {
	m := widgetMapping(t)

	values, err := m.FromStorage(store.Record{
		store.IDField:   float64(9),
		store.NameField: "Gear",
		"ownerId_raw":   "ignored",
		"owner_id_c":    map[string]any{"Id": float64(4), "Name": "Ann"},
		"tags_c":        `["x"]`,
		"is_active_c":   false,
		"price_c":       nil,
	})
	require.NoError(t, err)

	assert.Equal(t, float64(9), values["id"])
	assert.Equal(t, "Gear", values["title"], "display falls back to Name")
	assert.Equal(t, float64(4), values["ownerId"])
	assert.Equal(t, "Ann", values["ownerName"])
	assert.Equal(t, []any{"x"}, values["tags"])
	assert.Equal(t, false, values["active"])
	assert.NotContains(t, values, "price")
	assert.NotContains(t, values, "ownerId_raw")
}

func TestFromStorageStoredNameWinsOverLookup(t *testing.T) {
	m := widgetMapping(t)

	values, err := m.FromStorage(store.Record{
		"owner_id_c":   map[string]any{"Id": float64(4), "Name": "Lookup"},
		"owner_name_c": "Stored",
	})
	require.NoError(t, err)
	assert.Equal(t, "Stored", values["ownerName"])
}

func TestFromStorageRejectsCorruptEncodedField(t *testing.T) {
	m := widgetMapping(t)
	_, err := m.FromStorage(store.Record{"tags_c": "{not json"})
	assert.Error(t, err)
}

func TestCoerce(t *testing.T) {
	m := widgetMapping(t)

	tests := []struct {
		field string
		raw   string
		want  any
		err   bool
	}{
		{"title", "  Gear ", "Gear", false},
		{"count", "12", int64(12), false},
		{"count", "1.5", nil, true},
		{"price", "1,250.50", 1250.5, false},
		{"price", "", nil, false},
		{"active", "on", true, false},
		{"active", "false", false, false},
		{"active", "maybe", nil, true},
		{"seenAt", "2024-03-05", "2024-03-05T00:00:00Z", false},
		{"tags", `["a"]`, []any{"a"}, false},
		{"nope", "x", nil, true},
	}

	for _, tt := range tests {
		got, err := m.Coerce(tt.field, tt.raw)
		if tt.err {
			assert.Error(t, err, "%s=%q", tt.field, tt.raw)
			continue
		}
		require.NoError(t, err, "%s=%q", tt.field, tt.raw)
		assert.Equal(t, tt.want, got, "%s=%q", tt.field, tt.raw)
	}
}

func TestCoerceAllCollectsFailures(t *testing.T) {
	m := widgetMapping(t)

	values, failures := m.CoerceAll(map[string]string{"count": "three", "title": "Gear"})
	assert.Equal(t, "Gear", values["title"])
	assert.Contains(t, failures, "count")
	assert.NotContains(t, values, "count")
}

// ABOUTME: Tests for the static-fixture backend
// ABOUTME: Covers seeding, identity assignment, ordering, not-found errors, and latency cancellation
package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestBackend(t *testing.T) *FixtureBackend {
	t.Helper()
	b, err := NewFixtureBackend(Latency{})
	require.NoError(t, err)
	return b
}

func TestFixturesLoadEveryCollection(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	for _, name := range []string{"contact_c", "company_c", "deal_c", "quotes_c", "transaction_c", "activity_c"} {
		records, err := b.Collection(name).List(ctx)
		require.NoError(t, err, name)
		assert.NotEmpty(t, records, name)
		for _, rec := range records {
			id, ok := rec.ID()
			assert.True(t, ok)
			assert.Positive(t, id)
		}
	}
}

func TestFixturesDecodeEmbeddedFiles(t *testing.T) {
	all, err := Fixtures()
	require.NoError(t, err)

	assert.Len(t, all, 6)
	assert.Len(t, all["deal_c"], 6)
	assert.Equal(t, "TXN-2024-005", all["transaction_c"][0]["transaction_id_c"])
}

func TestFixtureCreateAssignsFreshIdentityFirst(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	repo := b.Collection("contact_c")

	before, err := repo.List(ctx)
	require.NoError(t, err)

	created, err := repo.Create(ctx, Record{NameField: "Ann", "email_c": "ann@x.com"})
	require.NoError(t, err)

	id, ok := created.ID()
	require.True(t, ok)
	for _, rec := range before {
		existing, _ := rec.ID()
		assert.NotEqual(t, existing, id)
	}

	after, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	first, _ := after[0].ID()
	assert.Equal(t, id, first)
}

func TestFixtureIdentityNotReusedAfterDelete(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	repo := b.Collection("widgets")

	a, err := repo.Create(ctx, Record{NameField: "a"})
	require.NoError(t, err)
	aID, _ := a.ID()
	require.NoError(t, repo.Delete(ctx, aID))

	next, err := repo.Create(ctx, Record{NameField: "b"})
	require.NoError(t, err)
	nextID, _ := next.ID()
	assert.Greater(t, nextID, aID)
}

func TestFixtureUpdateMergesFields(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	repo := b.Collection("contact_c")

	updated, err := repo.Update(ctx, 1, Record{"phone_c": "+1 555 0000", IDField: int64(99)})
	require.NoError(t, err)
	assert.Equal(t, "+1 555 0000", updated["phone_c"])
	assert.Equal(t, "Sarah Johnson", updated[NameField])

	id, _ := updated.ID()
	assert.Equal(t, int64(1), id, "identity must not change")

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "+1 555 0000", got["phone_c"])
}

func TestFixtureNotFound(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	repo := b.Collection("contact_c")

	_, err := repo.Get(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = repo.Update(ctx, 999, Record{"phone_c": "x"})
	assert.True(t, errors.Is(err, ErrNotFound))

	err = repo.Delete(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFixtureListReturnsCopies(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	repo := b.Collection("company_c")

	records, err := repo.List(ctx)
	require.NoError(t, err)
	records[0][NameField] = "mutated"

	again, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0][NameField])
}

func TestFixtureLatencyHonorsContext(t *testing.T) {
	b, err := NewFixtureBackend(Latency{List: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = b.Collection("contact_c").List(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFixtureLatencyDelays(t *testing.T) {
	b, err := NewFixtureBackend(Latency{Get: 20 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = b.Collection("contact_c").Get(context.Background(), 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSeedRejectsRecordsWithoutIdentity(t *testing.T) {
	b := newTestBackend(t)
	err := b.Seed("broken", []byte(`[{"Name": "no id"}]`))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestToInt64(t *testing.T) {
	tests := []struct {
		in   any
		want int64
		ok   bool
	}{
		{int64(3), 3, true},
		{3, 3, true},
		{float64(4), 4, true},
		{4.5, 0, false},
		{"12", 12, true},
		{"abc", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToInt64(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

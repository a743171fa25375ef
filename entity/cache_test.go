// ABOUTME: Tests for the entity cache
// ABOUTME: Covers load ordering, failure retention, and skipping of undecodable records
package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/pagen-admin/store"
)

func TestCacheLoadKeepsStoreOrder(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	assert.True(t, f.cache.LoadedAt().IsZero())

	f.load(t)

	assert.Equal(t, []int64{3, 2, 1}, ids(f.cache.Items()))
	assert.Equal(t, 3, f.cache.Len())
	assert.False(t, f.cache.Loading())
	assert.NoError(t, f.cache.Err())
	assert.False(t, f.cache.LoadedAt().IsZero())

	cara, ok := f.cache.Get(3)
	require.True(t, ok)
	assert.Equal(t, "Cara", cara.Name)
	assert.Equal(t, 30.0, cara.Score)
	assert.Equal(t, 2024, cara.CreatedAt.Year())

	_, ok = f.cache.Get(99)
	assert.False(t, ok)
}

func TestCacheItemsReturnsCopy(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	items := f.cache.Items()
	items[0].Name = "changed"

	first, _ := f.cache.Get(3)
	assert.Equal(t, "Cara", first.Name)
}

func TestCacheLoadFailureKeepsPreviousItems(t *testing.T) {
	f := newFixture(t, Options[person]{}, seedRecords()...)
	f.load(t)

	f.repo.fail("list", errBackendDown)
	err := f.cache.Load(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, errBackendDown))
	assert.Equal(t, err, f.cache.Err())
	assert.Equal(t, 3, f.cache.Len())

	f.repo.fail("list", nil)
	require.NoError(t, f.cache.Load(context.Background()))
	assert.NoError(t, f.cache.Err())
}

func TestCacheLoadSkipsUndecodableRecords(t *testing.T) {
	records := seedRecords()
	records = append(records, store.Record{
		store.IDField:   int64(9),
		store.NameField: "Broken",
		"history_c":     "{not json",
	})
	f := newFixture(t, Options[person]{}, records...)

	f.load(t)

	assert.Equal(t, []int64{3, 2, 1}, ids(f.cache.Items()))
	assert.Equal(t, 1, f.cache.Skipped())
}

func TestCacheReplace(t *testing.T) {
	f := newFixture(t, Options[person]{})
	f.cache.Replace([]person{{ID: 5, Name: "Eve"}, {ID: 4, Name: "Dan"}})

	assert.Equal(t, []int64{5, 4}, ids(f.cache.Items()))
	assert.Equal(t, "person_c", f.cache.Collection())
	assert.Same(t, f.repo, f.cache.Repository())
}

// ABOUTME: Tests for search, sort, and board grouping
// ABOUTME: Verifies stable ordering, case-insensitive matching, and bucket totals
package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectionCodec(t *testing.T) *Codec[person] {
	t.Helper()
	codec, err := NewCodec[person](personMapping())
	require.NoError(t, err)
	return codec
}

func people() []person {
	return []person{
		{ID: 1, Name: "Cara", Email: "cara@acme.io", Stage: "Lead", Score: 20, Joined: "2024-01-03"},
		{ID: 2, Name: "bob", Email: "bob@globex.com", Stage: "Qualified", Score: 10, Joined: "2023-12-01"},
		{ID: 3, Name: "Ann", Email: "ann@acme.io", Stage: "Lead", Score: 20},
		{ID: 4, Name: "dave", Email: "dave@initech.com", Stage: "Archived", Score: 5, Joined: "2024-02-10"},
	}
}

func TestSortAscendingAndDescending(t *testing.T) {
	rows := Rows(projectionCodec(t), people())

	byName := Sort(rows, SortState{Field: "name", Dir: Asc})
	assert.Equal(t, []int64{3, 2, 1, 4}, rowIDs(byName))

	byNameDesc := Sort(rows, SortState{Field: "name", Dir: Desc})
	assert.Equal(t, []int64{4, 1, 2, 3}, rowIDs(byNameDesc))
}

func TestSortIsStableForEqualKeys(t *testing.T) {
	rows := Rows(projectionCodec(t), people())

	asc := Sort(rows, SortState{Field: "score", Dir: Asc})
	assert.Equal(t, []int64{4, 2, 1, 3}, rowIDs(asc))

	desc := Sort(rows, SortState{Field: "score", Dir: Desc})
	assert.Equal(t, []int64{1, 3, 2, 4}, rowIDs(desc))
}

func TestSortByDateTreatsMissingAsEpoch(t *testing.T) {
	rows := Rows(projectionCodec(t), people())

	sorted := Sort(rows, SortState{Field: "joined", Dir: Asc})
	assert.Equal(t, []int64{3, 2, 1, 4}, rowIDs(sorted))
}

func TestSortWithoutFieldKeepsOrder(t *testing.T) {
	rows := Rows(projectionCodec(t), people())
	assert.Equal(t, []int64{1, 2, 3, 4}, rowIDs(Sort(rows, SortState{})))
}

func TestSortStateToggle(t *testing.T) {
	s := SortState{}.Toggle("name")
	assert.Equal(t, SortState{Field: "name", Dir: Asc}, s)

	s = s.Toggle("name")
	assert.Equal(t, SortState{Field: "name", Dir: Desc}, s)

	s = s.Toggle("name")
	assert.Equal(t, Asc, s.Dir)

	s = s.Toggle("name").Toggle("score")
	assert.Equal(t, SortState{Field: "score", Dir: Asc}, s)
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, Desc, ParseDirection(" DESC "))
	assert.Equal(t, Asc, ParseDirection("asc"))
	assert.Equal(t, Asc, ParseDirection(""))
	assert.Equal(t, "desc", Desc.String())
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"numbers", 2.0, 10.0, -1},
		{"mixed numeric types", int64(3), 3.0, 0},
		{"strings ignore case", "apple", "Banana", -1},
		{"dates", "2024-02-01", "2024-01-15T10:00:00Z", 1},
		{"time values", time.Unix(10, 0), time.Unix(5, 0), 1},
		{"nil before date", nil, "2020-01-01", -1},
		{"nil before string", nil, "a", -1},
		{"equal strings", "Same", "same", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestFilterBlankQueryIsIdentity(t *testing.T) {
	rows := Rows(projectionCodec(t), people())

	assert.Equal(t, rowIDs(rows), rowIDs(Filter(rows, "", []string{"name"})))
	assert.Equal(t, rowIDs(rows), rowIDs(Filter(rows, "   ", []string{"name"})))
}

func TestFilterMatchesAnySearchFieldCaseInsensitively(t *testing.T) {
	rows := Rows(projectionCodec(t), people())

	assert.Equal(t, []int64{1, 3}, rowIDs(Filter(rows, "ACME", []string{"name", "email"})))
	assert.Equal(t, []int64{2}, rowIDs(Filter(rows, "Bo", []string{"name"})))
	assert.Empty(t, Filter(rows, "acme", []string{"name"}))
}

func TestGroupSumsBucketsAndDropsUnknown(t *testing.T) {
	rows := Rows(projectionCodec(t), people())

	buckets := Group(rows, "stage", []string{"Lead", "Qualified", "Closed"}, "score")

	require.Len(t, buckets, 3)
	assert.Equal(t, "Lead", buckets[0].Name)
	assert.Equal(t, 2, buckets[0].Count)
	assert.Equal(t, 40.0, buckets[0].Total)
	assert.Equal(t, []int64{1, 3}, ids(buckets[0].Items))

	assert.Equal(t, 1, buckets[1].Count)
	assert.Equal(t, 10.0, buckets[1].Total)

	assert.Equal(t, 0, buckets[2].Count)
	assert.NotNil(t, buckets[2].Items)

	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	assert.Equal(t, 3, total)
}

func TestViewApplyAndBoard(t *testing.T) {
	v := View[person]{
		Codec:        projectionCodec(t),
		SearchFields: []string{"email"},
		Query:        "acme",
		Sort:         SortState{Field: "name", Dir: Asc},
	}

	assert.Equal(t, []int64{3, 1}, ids(v.Apply(people())))

	board := v.Board(people(), "stage", []string{"Lead", "Qualified"}, "score")
	assert.Equal(t, 2, board[0].Count)
	assert.Equal(t, 0, board[1].Count)
}

func rowIDs(rows []Row[person]) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.Item.ID
	}
	return out
}

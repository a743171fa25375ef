// ABOUTME: Derived read-only views over a cache: search filter, stable sort, stage grouping
// ABOUTME: Recomputed in full from the cache on every call

package entity

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/harperreed/pagen-admin/schema"
)

// Direction orders a sort.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection accepts "desc" (any case); everything else is ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

// SortState is the single (field, direction) pair a view sorts by. An empty
// Field keeps cache order.
type SortState struct {
	Field string
	Dir   Direction
}

// Toggle flips direction when field is already the sort key and otherwise
// switches to field ascending.
func (s SortState) Toggle(field string) SortState {
	if s.Field == field {
		if s.Dir == Asc {
			return SortState{Field: field, Dir: Desc}
		}
		return SortState{Field: field, Dir: Asc}
	}
	return SortState{Field: field, Dir: Asc}
}

// Row pairs an entity with its flattened UI values.
type Row[T Entity] struct {
	Item   T
	Values map[string]any
}

// Rows flattens items once so filter, sort, and group share the work.
func Rows[T Entity](codec *Codec[T], items []T) []Row[T] {
	rows := make([]Row[T], 0, len(items))
	for _, item := range items {
		values, err := codec.Values(item)
		if err != nil {
			values = map[string]any{}
		}
		rows = append(rows, Row[T]{Item: item, Values: values})
	}
	return rows
}

// Filter keeps rows where any of fields contains query, case-insensitively.
// A blank query keeps every row in order.
func Filter[T Entity](rows []Row[T], query string, fields []string) []Row[T] {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return rows
	}

	out := make([]Row[T], 0, len(rows))
	for _, row := range rows {
		for _, f := range fields {
			v, ok := row.Values[f]
			if !ok || v == nil {
				continue
			}
			if strings.Contains(strings.ToLower(fmt.Sprint(v)), q) {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

// Sort orders rows by the sort state. Equal keys keep their relative order
// in both directions.
func Sort[T Entity](rows []Row[T], s SortState) []Row[T] {
	if s.Field == "" {
		return rows
	}
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b Row[T]) int {
		c := Compare(a.Values[s.Field], b.Values[s.Field])
		if s.Dir == Desc {
			return -c
		}
		return c
	})
	return out
}

// Compare orders two field values: numerically when both are numbers or both
// parse as dates, otherwise by lowercased string. nil compares as the empty
// string, or as the epoch against a date.
func Compare(a, b any) int {
	an, aNum := number(a)
	bn, bNum := number(b)
	if aNum && bNum {
		return cmpFloat(an, bn)
	}

	at, aDate := date(a)
	bt, bDate := date(b)
	switch {
	case aDate && bDate:
		return at.Compare(bt)
	case aDate && b == nil:
		return at.Compare(time.Unix(0, 0).UTC())
	case bDate && a == nil:
		return time.Unix(0, 0).UTC().Compare(bt)
	}

	return strings.Compare(strings.ToLower(text(a)), strings.ToLower(text(b)))
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func date(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if len(t) < len("2006-01-02") {
			return time.Time{}, false
		}
		parsed, err := schema.ParseTime(t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

func text(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bucket is one named group of a board with its count and value total.
type Bucket[T Entity] struct {
	Name  string
	Items []T
	Count int
	Total float64
}

// Group partitions rows into the named buckets by field, summing valueField
// per bucket. Rows whose field matches no bucket are dropped.
func Group[T Entity](rows []Row[T], field string, buckets []string, valueField string) []Bucket[T] {
	out := make([]Bucket[T], len(buckets))
	index := make(map[string]int, len(buckets))
	for i, name := range buckets {
		out[i] = Bucket[T]{Name: name, Items: []T{}}
		index[name] = i
	}

	for _, row := range rows {
		key, _ := row.Values[field].(string)
		i, ok := index[key]
		if !ok {
			continue
		}
		out[i].Items = append(out[i].Items, row.Item)
		out[i].Count++
		if n, ok := number(row.Values[valueField]); ok {
			out[i].Total += n
		}
	}
	return out
}

// View is the per-page projection configuration.
type View[T Entity] struct {
	Codec        *Codec[T]
	SearchFields []string
	Query        string
	Sort         SortState
}

// Apply filters then sorts items.
func (v View[T]) Apply(items []T) []T {
	rows := Sort(Filter(Rows(v.Codec, items), v.Query, v.SearchFields), v.Sort)
	out := make([]T, len(rows))
	for i, row := range rows {
		out[i] = row.Item
	}
	return out
}

// Board filters items then groups them.
func (v View[T]) Board(items []T, field string, buckets []string, valueField string) []Bucket[T] {
	rows := Filter(Rows(v.Codec, items), v.Query, v.SearchFields)
	return Group(rows, field, buckets, valueField)
}

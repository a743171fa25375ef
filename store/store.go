// ABOUTME: Backing-store contract shared by every record backend
// ABOUTME: Defines storage-named records, the per-collection repository, and ErrNotFound
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Storage-side names every record carries.
const (
	IDField   = "Id"
	NameField = "Name"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidRecord = errors.New("invalid record")
)

// Record is one backend row keyed by storage field names.
type Record map[string]any

// ID extracts the record's integer identity.
func (r Record) ID() (int64, bool) {
	return ToInt64(r[IDField])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Repository is the CRUD surface of one collection.
type Repository interface {
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	Create(ctx context.Context, fields Record) (Record, error)
	Update(ctx context.Context, id int64, fields Record) (Record, error)
	Delete(ctx context.Context, id int64) error
}

// Backend hands out repositories by collection name.
type Backend interface {
	Collection(name string) Repository
	Close() error
}

// ToInt64 converts the numeric shapes produced by JSON decoding and
// database drivers into an int64.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// NotFound wraps ErrNotFound with the collection and identity.
func NotFound(collection string, id int64) error {
	return fmt.Errorf("%s %d: %w", collection, id, ErrNotFound)
}

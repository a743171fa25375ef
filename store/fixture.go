// ABOUTME: Static-fixture backend for offline development
// ABOUTME: Serves embedded JSON records with simulated latency; mutations live only in memory

package store

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"
)

//go:embed fixtures/*.json
var fixturesFS embed.FS

// Latency is the simulated delay applied to each fixture operation.
type Latency struct {
	List   time.Duration `json:"list"`
	Get    time.Duration `json:"get"`
	Create time.Duration `json:"create"`
	Update time.Duration `json:"update"`
	Delete time.Duration `json:"delete"`
}

// DefaultLatency mirrors a slow remote record service.
func DefaultLatency() Latency {
	return Latency{
		List:   300 * time.Millisecond,
		Get:    200 * time.Millisecond,
		Create: 400 * time.Millisecond,
		Update: 350 * time.Millisecond,
		Delete: 250 * time.Millisecond,
	}
}

// FixtureBackend keeps every collection in memory, seeded from the embedded fixtures.
type FixtureBackend struct {
	mu          sync.Mutex
	latency     Latency
	collections map[string]*fixtureCollection
}

type fixtureCollection struct {
	records []Record
	nextID  int64
}

// NewFixtureBackend loads the embedded fixtures.
func NewFixtureBackend(latency Latency) (*FixtureBackend, error) {
	b := &FixtureBackend{
		latency:     latency,
		collections: make(map[string]*fixtureCollection),
	}

	err := eachFixture(func(collection string, data []byte) error {
		return b.Seed(collection, data)
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Fixtures decodes the embedded fixture records, keyed by collection.
func Fixtures() (map[string][]Record, error) {
	out := make(map[string][]Record)
	err := eachFixture(func(collection string, data []byte) error {
		var records []Record
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("invalid fixture %s: %w", collection, err)
		}
		out[collection] = records
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func eachFixture(fn func(collection string, data []byte) error) error {
	entries, err := fixturesFS.ReadDir("fixtures")
	if err != nil {
		return fmt.Errorf("failed to read fixtures: %w", err)
	}

	for _, entry := range entries {
		data, err := fixturesFS.ReadFile(path.Join("fixtures", entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read fixture %s: %w", entry.Name(), err)
		}
		if err := fn(strings.TrimSuffix(entry.Name(), ".json"), data); err != nil {
			return err
		}
	}
	return nil
}

// Seed replaces a collection with the records in a JSON array.
func (b *FixtureBackend) Seed(collection string, data []byte) error {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("invalid fixture %s: %w", collection, err)
	}

	c := &fixtureCollection{records: records, nextID: 1}
	for _, rec := range records {
		id, ok := rec.ID()
		if !ok {
			return fmt.Errorf("fixture %s: record without %s: %w", collection, IDField, ErrInvalidRecord)
		}
		rec[IDField] = id
		if id >= c.nextID {
			c.nextID = id + 1
		}
	}

	b.mu.Lock()
	b.collections[collection] = c
	b.mu.Unlock()
	return nil
}

// Collection returns the repository for name, creating an empty collection if needed.
func (b *FixtureBackend) Collection(name string) Repository {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.collections[name]; !ok {
		b.collections[name] = &fixtureCollection{nextID: 1}
	}
	return &fixtureRepository{backend: b, name: name}
}

// Close is a no-op; fixture mutations are never persisted.
func (b *FixtureBackend) Close() error {
	return nil
}

type fixtureRepository struct {
	backend *FixtureBackend
	name    string
}

func (r *fixtureRepository) collection() *fixtureCollection {
	return r.backend.collections[r.name]
}

func (r *fixtureRepository) List(ctx context.Context) ([]Record, error) {
	if err := sleep(ctx, r.backend.latency.List); err != nil {
		return nil, err
	}

	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	c := r.collection()
	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (r *fixtureRepository) Get(ctx context.Context, id int64) (Record, error) {
	if err := sleep(ctx, r.backend.latency.Get); err != nil {
		return nil, err
	}

	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	c := r.collection()
	if i := c.index(id); i >= 0 {
		return c.records[i].Clone(), nil
	}
	return nil, NotFound(r.name, id)
}

func (r *fixtureRepository) Create(ctx context.Context, fields Record) (Record, error) {
	if err := sleep(ctx, r.backend.latency.Create); err != nil {
		return nil, err
	}

	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	c := r.collection()
	rec := fields.Clone()
	rec[IDField] = c.nextID
	c.nextID++

	// Newest first, matching the list order of the remote service.
	c.records = append([]Record{rec}, c.records...)
	return rec.Clone(), nil
}

func (r *fixtureRepository) Update(ctx context.Context, id int64, fields Record) (Record, error) {
	if err := sleep(ctx, r.backend.latency.Update); err != nil {
		return nil, err
	}

	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	c := r.collection()
	i := c.index(id)
	if i < 0 {
		return nil, NotFound(r.name, id)
	}

	rec := c.records[i].Clone()
	for k, v := range fields {
		if k == IDField {
			continue
		}
		rec[k] = v
	}
	c.records[i] = rec
	return rec.Clone(), nil
}

func (r *fixtureRepository) Delete(ctx context.Context, id int64) error {
	if err := sleep(ctx, r.backend.latency.Delete); err != nil {
		return err
	}

	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	c := r.collection()
	i := c.index(id)
	if i < 0 {
		return NotFound(r.name, id)
	}
	c.records = append(c.records[:i], c.records[i+1:]...)
	return nil
}

func (c *fixtureCollection) index(id int64) int {
	for i, rec := range c.records {
		if rid, ok := rec.ID(); ok && rid == id {
			return i
		}
	}
	return -1
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

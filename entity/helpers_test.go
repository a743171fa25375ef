// ABOUTME: Shared fixtures for entity package tests
// ABOUTME: Provides a counting fake repository, a test entity type, and a ticking clock
package entity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harperreed/pagen-admin/schema"
	"github.com/harperreed/pagen-admin/store"
)

type person struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Score     float64   `json:"score"`
	Visits    int       `json:"visits,omitempty"`
	Joined    string    `json:"joined,omitempty"`
	History   []string  `json:"history,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p person) Identity() int64 { return p.ID }

var errBackendDown = errors.New("backend down")

type fakeRepo struct {
	mu      sync.Mutex
	records []store.Record
	nextID  int64
	calls   map[string]int
	failOn  map[string]error
}

func newFakeRepo(records ...store.Record) *fakeRepo {
	r := &fakeRepo{nextID: 1, calls: map[string]int{}, failOn: map[string]error{}}
	for _, rec := range records {
		id, _ := rec.ID()
		if id >= r.nextID {
			r.nextID = id + 1
		}
		r.records = append(r.records, rec)
	}
	return r
}

func (r *fakeRepo) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *fakeRepo) fail(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOn[op] = err
}

func (r *fakeRepo) begin(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	return r.failOn[op]
}

func (r *fakeRepo) List(_ context.Context) ([]store.Record, error) {
	if err := r.begin("list"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (r *fakeRepo) Get(_ context.Context, id int64) (store.Record, error) {
	if err := r.begin("get"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rid, _ := rec.ID(); rid == id {
			return rec.Clone(), nil
		}
	}
	return nil, store.NotFound("person_c", id)
}

func (r *fakeRepo) Create(_ context.Context, fields store.Record) (store.Record, error) {
	if err := r.begin("create"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := fields.Clone()
	rec[store.IDField] = r.nextID
	r.nextID++
	r.records = append([]store.Record{rec}, r.records...)
	return rec.Clone(), nil
}

func (r *fakeRepo) Update(_ context.Context, id int64, fields store.Record) (store.Record, error) {
	if err := r.begin("update"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rid, _ := rec.ID(); rid == id {
			merged := rec.Clone()
			for k, v := range fields {
				merged[k] = v
			}
			r.records[i] = merged
			return merged.Clone(), nil
		}
	}
	return nil, store.NotFound("person_c", id)
}

func (r *fakeRepo) Delete(_ context.Context, id int64) error {
	if err := r.begin("delete"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records {
		if rid, _ := rec.ID(); rid == id {
			r.records = append(r.records[:i], r.records[i+1:]...)
			return nil
		}
	}
	return store.NotFound("person_c", id)
}

// tickingClock advances one second per call.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *tickingClock {
	return &tickingClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func personMapping() *schema.Mapping {
	return schema.MustNew("person_c", "name",
		schema.Field{UI: "name", Storage: store.NameField},
		schema.Field{UI: "email"},
		schema.Field{UI: "phone"},
		schema.Field{UI: "company"},
		schema.Field{UI: "stage"},
		schema.Field{UI: "score"},
		schema.Field{UI: "visits"},
		schema.Field{UI: "joined"},
		schema.Field{UI: "history", Encoded: true},
		schema.Field{UI: "createdAt"},
		schema.Field{UI: "updatedAt"},
	)
}

func personRules() Rules {
	return Rules{
		"name":  {Required("Name is required")},
		"email": {Required("Email is required"), Email("Please enter a valid email address")},
		"phone": {Phone("Please enter a valid phone number")},
		"stage": {OneOf("stage", []string{"Lead", "Qualified", "Closed"})},
	}
}

func seedRecords() []store.Record {
	return []store.Record{
		{store.IDField: int64(3), store.NameField: "Cara", "email_c": "cara@x.com", "company_c": "Acme", "stage_c": "Lead", "score_c": 30.0, "joined_c": "2024-01-03", "created_at_c": "2024-01-03T00:00:00Z", "updated_at_c": "2024-01-03T00:00:00Z"},
		{store.IDField: int64(2), store.NameField: "bob", "email_c": "bob@y.org", "company_c": "Globex", "stage_c": "Qualified", "score_c": 10.0, "joined_c": "2023-12-01", "created_at_c": "2023-12-01T00:00:00Z", "updated_at_c": "2023-12-01T00:00:00Z"},
		{store.IDField: int64(1), store.NameField: "Ann", "email_c": "ann@x.com", "company_c": "acme", "stage_c": "Unknown", "score_c": 20.0, "created_at_c": "2023-11-01T00:00:00Z", "updated_at_c": "2023-11-01T00:00:00Z"},
	}
}

type fixture struct {
	repo     *fakeRepo
	cache    *Cache[person]
	pipeline *Pipeline[person]
	clock    *tickingClock
}

func newFixture(t *testing.T, opts Options[person], records ...store.Record) *fixture {
	t.Helper()
	codec, err := NewCodec[person](personMapping())
	require.NoError(t, err)

	repo := newFakeRepo(records...)
	cache := NewCache(repo, codec, nil)
	clock := newClock()
	if opts.Rules == nil {
		opts.Rules = personRules()
	}
	opts.Now = clock.Now
	p := NewPipeline(cache, opts)
	return &fixture{repo: repo, cache: cache, pipeline: p, clock: clock}
}

func (f *fixture) load(t *testing.T) {
	t.Helper()
	require.NoError(t, f.cache.Load(context.Background()))
}

func ids(items []person) []int64 {
	out := make([]int64, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

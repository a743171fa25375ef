// ABOUTME: Charm KV record store implementing the backing-store contract
// ABOUTME: Records live under "<collection>:<id>" keys with a per-collection sequence key

package charm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/harperreed/pagen-admin/store"
)

const sequencePrefix = "_seq:"

// Store is a store.Backend over a charm KV client.
type Store struct {
	client *Client
	mu     sync.Mutex
}

// NewStore wraps a client as a record store.
func NewStore(c *Client) *Store {
	return &Store{client: c}
}

// Client returns the underlying KV client.
func (s *Store) Client() *Client { return s.client }

// Collection returns the repository for one collection.
func (s *Store) Collection(name string) store.Repository {
	return &repository{store: s, collection: name}
}

// Close closes the KV client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Import writes records with their existing identities and advances the
// collection's sequence past them.
func (s *Store) Import(ctx context.Context, collection string, records []store.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := &repository{store: s, collection: collection}
	next, err := r.nextID()
	if err != nil {
		return 0, err
	}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		id, ok := rec.ID()
		if !ok || id <= 0 {
			return i, fmt.Errorf("import %s: record without identity: %w", collection, store.ErrInvalidRecord)
		}
		if err := r.put(id, rec); err != nil {
			return i, err
		}
		if id >= next {
			next = id + 1
		}
	}
	if err := r.setNextID(next); err != nil {
		return len(records), err
	}
	return len(records), nil
}

// Counts reports the number of records per collection.
func (s *Store) Counts() (map[string]int, error) {
	keys, err := s.client.Keys()
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, k := range keys {
		key := string(k)
		if strings.HasPrefix(key, sequencePrefix) {
			continue
		}
		if i := strings.LastIndexByte(key, ':'); i > 0 {
			counts[key[:i]]++
		}
	}
	return counts, nil
}

type repository struct {
	store      *Store
	collection string
}

func (r *repository) prefix() string {
	return r.collection + ":"
}

func (r *repository) key(id int64) []byte {
	return []byte(r.prefix() + strconv.FormatInt(id, 10))
}

func (r *repository) List(ctx context.Context) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := r.store.client.KeysWithPrefix([]byte(r.prefix()))
	if err != nil {
		return nil, err
	}

	records := make([]store.Record, 0, len(keys))
	for _, k := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(string(k), r.prefix()), 10, 64)
		if err != nil {
			continue
		}
		rec, err := r.load(id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		a, _ := records[i].ID()
		b, _ := records[j].ID()
		return a > b
	})
	return records, nil
}

func (r *repository) Get(ctx context.Context, id int64) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.load(id)
}

func (r *repository) Create(ctx context.Context, fields store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	id, err := r.nextID()
	if err != nil {
		return nil, err
	}
	rec := fields.Clone()
	rec[store.IDField] = id
	if err := r.put(id, rec); err != nil {
		return nil, err
	}
	if err := r.setNextID(id + 1); err != nil {
		return nil, err
	}
	return r.load(id)
}

func (r *repository) Update(ctx context.Context, id int64, fields store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, err := r.load(id)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		if k == store.IDField {
			continue
		}
		rec[k] = v
	}
	if err := r.put(id, rec); err != nil {
		return nil, err
	}
	return r.load(id)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, err := r.load(id); err != nil {
		return err
	}
	return r.store.client.Delete(r.key(id))
}

func (r *repository) load(id int64) (store.Record, error) {
	data, err := r.store.client.Get(r.key(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.NotFound(r.collection, id)
	}
	if err != nil {
		return nil, err
	}

	var rec store.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%s %d: %w", r.collection, id, err)
	}
	if rec == nil {
		rec = store.Record{}
	}
	rec[store.IDField] = id
	return rec, nil
}

func (r *repository) put(id int64, rec store.Record) error {
	out := rec.Clone()
	out[store.IDField] = id
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return r.store.client.Set(r.key(id), data)
}

// nextID reads the sequence, falling back to max existing identity + 1.
func (r *repository) nextID() (int64, error) {
	data, err := r.store.client.Get([]byte(sequencePrefix + r.collection))
	if err == nil {
		return strconv.ParseInt(string(data), 10, 64)
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return 0, err
	}

	keys, err := r.store.client.KeysWithPrefix([]byte(r.prefix()))
	if err != nil {
		return 0, err
	}
	var maxID int64
	for _, k := range keys {
		id, err := strconv.ParseInt(strings.TrimPrefix(string(k), r.prefix()), 10, 64)
		if err == nil && id > maxID {
			maxID = id
		}
	}
	return maxID + 1, nil
}

func (r *repository) setNextID(next int64) error {
	return r.store.client.Set([]byte(sequencePrefix+r.collection), []byte(strconv.FormatInt(next, 10)))
}

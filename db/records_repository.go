// ABOUTME: SQLite record store implementing the backing-store contract
// ABOUTME: One records table keyed by collection and identity, with storage fields kept as JSON

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/pagen-admin/store"
)

// Store is a store.Backend over one SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and wraps it as a record store.
func Open(path string) (*Store, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return NewStore(db), nil
}

// NewStore wraps an already-migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Collection returns the repository for one collection.
func (s *Store) Collection(name string) store.Repository {
	return &RecordsRepository{db: s.db, collection: name}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Import writes records with their existing identities, replacing any rows
// that share them, and advances the collection's sequence past them.
func (s *Store) Import(ctx context.Context, collection string, records []store.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	var maxID int64
	for _, rec := range records {
		id, ok := rec.ID()
		if !ok || id <= 0 {
			return 0, fmt.Errorf("import %s: record without identity: %w", collection, store.ErrInvalidRecord)
		}
		fieldsJSON, name, err := encodeFields(rec)
		if err != nil {
			return 0, err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO records (collection, id, name, fields, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET name = excluded.name, fields = excluded.fields, updated_at = excluded.updated_at
		`, collection, id, name, fieldsJSON, now, now)
		if err != nil {
			return 0, err
		}
		if id > maxID {
			maxID = id
		}
	}

	next, err := nextID(ctx, tx, collection)
	if err != nil {
		return 0, err
	}
	if maxID+1 > next {
		next = maxID + 1
	}
	if err := setNextID(ctx, tx, collection, next); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(records), nil
}

// Counts reports the number of rows per collection.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT collection, COUNT(*) FROM records GROUP BY collection`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// RecordsRepository provides CRUD operations over one collection's rows.
type RecordsRepository struct {
	db         *sql.DB
	collection string
}

// List retrieves every record, newest identity first.
func (r *RecordsRepository) List(ctx context.Context) ([]store.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, fields
		FROM records
		WHERE collection = ?
		ORDER BY id DESC
	`, r.collection)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := make([]store.Record, 0)
	for rows.Next() {
		var id int64
		var name sql.NullString
		var fieldsJSON []byte
		if err := rows.Scan(&id, &name, &fieldsJSON); err != nil {
			return nil, err
		}
		rec, err := decodeFields(id, name, fieldsJSON)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", r.collection, id, err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Get retrieves a record by identity.
func (r *RecordsRepository) Get(ctx context.Context, id int64) (store.Record, error) {
	return r.get(ctx, r.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *RecordsRepository) get(ctx context.Context, q queryer, id int64) (store.Record, error) {
	var name sql.NullString
	var fieldsJSON []byte

	err := q.QueryRowContext(ctx, `
		SELECT name, fields
		FROM records
		WHERE collection = ? AND id = ?
	`, r.collection, id).Scan(&name, &fieldsJSON)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.NotFound(r.collection, id)
	}
	if err != nil {
		return nil, err
	}
	return decodeFields(id, name, fieldsJSON)
}

// Create assigns the next identity and inserts the record.
func (r *RecordsRepository) Create(ctx context.Context, fields store.Record) (store.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	id, err := nextID(ctx, tx, r.collection)
	if err != nil {
		return nil, err
	}

	rec := fields.Clone()
	rec[store.IDField] = id
	fieldsJSON, name, err := encodeFields(rec)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (collection, id, name, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.collection, id, name, fieldsJSON, now, now)
	if err != nil {
		return nil, err
	}

	if err := setNextID(ctx, tx, r.collection, id+1); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return decodeFields(id, name, fieldsJSON)
}

// Update merges fields into the stored record.
func (r *RecordsRepository) Update(ctx context.Context, id int64, fields store.Record) (store.Record, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := r.get(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		if k == store.IDField {
			continue
		}
		rec[k] = v
	}

	fieldsJSON, name, err := encodeFields(rec)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE records
		SET name = ?, fields = ?, updated_at = ?
		WHERE collection = ? AND id = ?
	`, name, fieldsJSON, time.Now().UTC(), r.collection, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return decodeFields(id, name, fieldsJSON)
}

// Delete deletes a record by identity.
func (r *RecordsRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, r.collection, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.NotFound(r.collection, id)
	}
	return nil
}

func nextID(ctx context.Context, tx *sql.Tx, collection string) (int64, error) {
	var next int64
	err := tx.QueryRowContext(ctx, `SELECT next_id FROM sequences WHERE collection = ?`, collection).Scan(&next)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM records WHERE collection = ?`, collection).Scan(&next)
	return next, err
}

func setNextID(ctx context.Context, tx *sql.Tx, collection string, next int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sequences (collection, next_id) VALUES (?, ?)
		ON CONFLICT(collection) DO UPDATE SET next_id = excluded.next_id
	`, collection, next)
	return err
}

// encodeFields serializes everything but the identity. The display name is
// also kept in its own column for lookups.
func encodeFields(rec store.Record) ([]byte, sql.NullString, error) {
	fields := make(map[string]any, len(rec))
	for k, v := range rec {
		if k == store.IDField {
			continue
		}
		fields[k] = v
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, sql.NullString{}, err
	}

	var name sql.NullString
	if v, ok := rec[store.NameField]; ok && v != nil {
		name = sql.NullString{String: fmt.Sprint(v), Valid: true}
	}
	return data, name, nil
}

func decodeFields(id int64, name sql.NullString, data []byte) (store.Record, error) {
	rec := store.Record{}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
	}
	rec[store.IDField] = id
	if _, ok := rec[store.NameField]; !ok && name.Valid {
		rec[store.NameField] = name.String
	}
	return rec, nil
}

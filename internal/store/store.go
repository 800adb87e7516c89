// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnknownCollection is returned for names outside Specs.
	ErrUnknownCollection = errors.New("unknown collection")
)

// =============================================================================
// STORE
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS records (
	collection TEXT NOT NULL,
	key        TEXT NOT NULL,
	num_key    INTEGER,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (collection, key)
);
CREATE INDEX IF NOT EXISTS idx_records_order ON records(collection, num_key, key);

CREATE TABLE IF NOT EXISTS sequences (
	collection TEXT PRIMARY KEY,
	last_id    INTEGER NOT NULL
);
`

// Store is a handle on the collections database. It is safe for concurrent
// use; SQLite serializes writers through the single connection.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Doc is a keyed raw document.
type Doc struct {
	Key  string
	Data json.RawMessage
}

// Open opens (creating if needed) the database at path. ":memory:" opens a
// private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and ":memory:" databases
	// are per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// READS
// =============================================================================

// Get decodes the record at key into dst. It returns ErrNotFound when the
// record does not exist.
func (s *Store) Get(ctx context.Context, collection, key string, dst any) error {
	if _, err := Lookup(collection); err != nil {
		return err
	}

	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM records WHERE collection = ? AND key = ?`,
		collection, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", collection, key, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s/%s: %w", collection, key, err)
	}

	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("failed to decode %s/%s: %w", collection, key, err)
	}
	return nil
}

// GetAll returns every document of a collection in key order: numeric order
// for auto-keyed collections, lexical order for string keys.
func (s *Store) GetAll(ctx context.Context, collection string) ([]Doc, error) {
	if _, err := Lookup(collection); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, data FROM records WHERE collection = ? ORDER BY num_key, key`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []Doc
	for rows.Next() {
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", collection, err)
		}
		docs = append(docs, Doc{Key: key, Data: json.RawMessage(data)})
	}
	return docs, rows.Err()
}

// All decodes every document of a collection into values of type T.
func All[T any](ctx context.Context, s *Store, collection string) ([]T, error) {
	docs, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", collection, d.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	if _, err := Lookup(collection); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", collection, err)
	}
	return n, nil
}

// Counts returns the record count of every collection.
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(Specs))
	for _, spec := range Specs {
		n, err := s.Count(ctx, spec.Name)
		if err != nil {
			return nil, err
		}
		counts[spec.Name] = n
	}
	return counts, nil
}

// =============================================================================
// WRITES
// =============================================================================

// Put upserts doc at key. For auto-keyed collections the key must be an
// integer, and the id sequence is advanced past it.
func (s *Store) Put(ctx context.Context, collection, key string, doc any) error {
	spec, err := Lookup(collection)
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", collection, key, err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.put(ctx, tx, spec, key, data)
	})
}

// Insert allocates the next id of an auto-keyed collection, builds the
// document for it and stores it, all in one transaction.
func (s *Store) Insert(ctx context.Context, collection string, build func(id int64) (any, error)) (int64, error) {
	spec, err := Lookup(collection)
	if err != nil {
		return 0, err
	}
	if spec.Kind != AutoKey {
		return 0, fmt.Errorf("collection %s is not auto-keyed", collection)
	}

	var id int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO sequences (collection, last_id) VALUES (?, 1)
			ON CONFLICT(collection) DO UPDATE SET last_id = last_id + 1
			RETURNING last_id`, collection).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to allocate id: %w", err)
		}

		doc, err := build(id)
		if err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode %s/%d: %w", collection, id, err)
		}
		return s.put(ctx, tx, spec, IntKey(id), data)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if _, err := Lookup(collection); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND key = ?`, collection, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, key, err)
	}
	return nil
}

// Clear removes every record of a collection. The id sequence is kept so
// ids are never reused.
func (s *Store) Clear(ctx context.Context, collection string) error {
	if _, err := Lookup(collection); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collection)
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	return nil
}

// Replace clears a collection and stores docs in one transaction.
func (s *Store) Replace(ctx context.Context, collection string, docs []Doc) error {
	spec, err := Lookup(collection)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collection); err != nil {
			return fmt.Errorf("failed to clear %s: %w", collection, err)
		}
		for _, d := range docs {
			if !json.Valid(d.Data) {
				return fmt.Errorf("%s/%s: document is not valid JSON", collection, d.Key)
			}
			if err := s.put(ctx, tx, spec, d.Key, d.Data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) put(ctx context.Context, tx *sql.Tx, spec Spec, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("%s: empty key", spec.Name)
	}

	var numKey any
	if spec.Kind == AutoKey {
		id, err := ParseIntKey(key)
		if err != nil {
			return fmt.Errorf("%s: %w", spec.Name, err)
		}
		numKey = id
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sequences (collection, last_id) VALUES (?, ?)
			ON CONFLICT(collection) DO UPDATE SET last_id = MAX(last_id, excluded.last_id)`,
			spec.Name, id); err != nil {
			return fmt.Errorf("failed to advance sequence: %w", err)
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO records (collection, key, num_key, data, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, key) DO UPDATE SET
			num_key = excluded.num_key,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		spec.Name, key, numKey, string(data), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", spec.Name, key, err)
	}
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/stevemurr/franchise-admin/model"
)

// SqliteBackend stores all collections in a single SQLite database.
//
// Tables:
//
//	documents(collection, id, data)  PRIMARY KEY (collection, id)
//	sequences(collection, seq)       PRIMARY KEY (collection)
type SqliteBackend struct {
	mu sync.RWMutex
	db *sql.DB
}

var _ Backend = (*SqliteBackend)(nil)

func NewSqliteBackend(dbPath string) (*SqliteBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sequences (
		collection TEXT PRIMARY KEY,
		seq INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteBackend{db: db}, nil
}

// NewSqliteStore opens (or creates) a SQLite-backed store at dbPath.
func NewSqliteStore(dbPath string) (*DocStore, error) {
	b, err := NewSqliteBackend(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	return newDocStore(b), nil
}

func (s *SqliteBackend) Name() string { return "sqlite" }

func (s *SqliteBackend) Close() error {
	return s.db.Close()
}

func (s *SqliteBackend) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SqliteBackend) All(ctx context.Context, collection string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM documents WHERE collection = ? ORDER BY id", collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([][]byte, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		result = append(result, []byte(raw))
	}
	return result, rows.Err()
}

func (s *SqliteBackend) Get(ctx context.Context, collection string, id int) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(raw), nil
}

// Create bumps the collection's sequence (starting above the highest stored
// id) and writes the document in the same transaction.
func (s *SqliteBackend) Create(ctx context.Context, collection string, build func(id int) ([]byte, error)) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sequences (collection, seq)
		 VALUES (?, COALESCE((SELECT MAX(id) FROM documents WHERE collection = ?), 0) + 1)
		 ON CONFLICT(collection) DO UPDATE SET seq = MAX(sequences.seq + 1, excluded.seq)`,
		collection, collection,
	); err != nil {
		return nil, err
	}
	var id int
	if err := tx.QueryRowContext(ctx,
		"SELECT seq FROM sequences WHERE collection = ?", collection,
	).Scan(&id); err != nil {
		return nil, err
	}

	data, err := build(id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)",
		collection, id, string(data),
	); err != nil {
		return nil, translateSqliteErr(collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *SqliteBackend) Insert(ctx context.Context, collection string, id int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)",
		collection, id, string(data),
	); err != nil {
		return translateSqliteErr(collection, id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sequences (collection, seq) VALUES (?, ?)
		 ON CONFLICT(collection) DO UPDATE SET seq = MAX(sequences.seq, excluded.seq)`,
		collection, id,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SqliteBackend) Modify(ctx context.Context, collection string, id int, fn func([]byte) ([]byte, error)) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	next, err := fn([]byte(raw))
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET data = ? WHERE collection = ? AND id = ?",
		string(next), collection, id,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *SqliteBackend) Delete(ctx context.Context, collection string, id int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func translateSqliteErr(collection string, id int, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%s %d: %w", collection, id, model.ErrIdentityCollision)
	}
	return err
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ============================================================
// SQLite Store
// ============================================================

// SQLiteStore хранит все коллекции в одной таблице records
// с JSON-документом в колонке data.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Init запускает миграции.
func (s *SQLiteStore) Init(migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := s.db.Exec(string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Read(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, data
        FROM records
        WHERE collection = ?
    `, collection)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		var doc map[string]any
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		if matches(doc, filter) {
			out = append(out, Record{ID: id, Data: doc})
		}
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Write(ctx context.Context, collection, id string, patch map[string]any) error {
	row := s.db.QueryRowContext(ctx, `
        SELECT data
        FROM records
        WHERE collection = ? AND id = ?
    `, collection, id)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	normalized, err := normalize(patch)
	if err != nil {
		return err
	}
	for key, value := range normalized {
		doc[key] = value
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	if _, err := s.db.ExecContext(ctx, `
        UPDATE records SET data = ?
        WHERE collection = ? AND id = ?
    `, string(merged), collection, id); err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, collection string, record map[string]any) (string, error) {
	doc, err := normalize(record)
	if err != nil {
		return "", err
	}
	id, _ := doc["id"].(string)
	if id == "" {
		id = uuid.NewString()
		doc["id"] = id
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", collection, err)
	}
	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO records (collection, id, data) VALUES (?, ?, ?)
        ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data
    `, collection, id, string(raw)); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `
        DELETE FROM records
        WHERE collection = ? AND id = ?
    `, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

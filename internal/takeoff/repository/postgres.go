package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ============================================================
// Postgres Store
// ============================================================

// PostgresStore — production-бэкенд: та же таблица records,
// но data лежит в JSONB и фильтр выполняется через containment.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Init создает таблицу, если её еще нет.
func (s *PostgresStore) Init(ctx context.Context) error {
	if s.pool == nil {
		return ErrNoConnection
	}
	_, err := s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS records (
            collection TEXT  NOT NULL,
            id         TEXT  NOT NULL,
            data       JSONB NOT NULL,
            PRIMARY KEY (collection, id)
        )
    `)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	filterJSON, err := json.Marshal(map[string]any(filter))
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
        SELECT id, data
        FROM records
        WHERE collection = $1 AND data @> $2::jsonb
    `, collection, string(filterJSON))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var id string
		var doc map[string]any
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, Record{ID: id, Data: doc})
	}
	return out, rows.Err()
}

func (s *PostgresStore) Write(ctx context.Context, collection, id string, patch map[string]any) error {
	normalized, err := normalize(patch)
	if err != nil {
		return err
	}
	patchJSON, err := json.Marshal(normalized)
	if err != nil {
		return fmt.Errorf("encode patch: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
        UPDATE records SET data = data || $3::jsonb
        WHERE collection = $1 AND id = $2
    `, collection, id, string(patchJSON))
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, collection string, record map[string]any) (string, error) {
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
	if _, err := s.pool.Exec(ctx, `
        INSERT INTO records (collection, id, data) VALUES ($1, $2, $3::jsonb)
        ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data
    `, collection, id, string(raw)); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, `
        DELETE FROM records
        WHERE collection = $1 AND id = $2
    `, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// OpenPostgres открывает пул соединений по DATABASE_URL.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

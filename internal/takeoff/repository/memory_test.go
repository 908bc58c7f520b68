package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreInsertRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Insert(ctx, "plans", map[string]any{"job_id": "j1", "name": "Level 1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id, "id генерируется, если не задан")

	given, err := store.Insert(ctx, "plans", map[string]any{"id": "p2", "job_id": "j1", "name": "Level 2"})
	require.NoError(t, err)
	assert.Equal(t, "p2", given)

	records, err := store.Read(ctx, "plans", Filter{"job_id": "j1"})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = store.Read(ctx, "plans", Filter{"job_id": "other"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryStoreNumericFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Insert(ctx, "scale_settings", map[string]any{"document_id": "d1", "page": 3})
	require.NoError(t, err)

	// Числовой ключ находится и как int, и как float64.
	records, err := store.Read(ctx, "scale_settings", Filter{"document_id": "d1", "page": 3})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	records, err = store.Read(ctx, "scale_settings", Filter{"document_id": "d1", "page": 3.0})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryStoreWrite(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Insert(ctx, "jobs", map[string]any{"id": "j1", "name": "Office", "owner_id": "u1"})
	require.NoError(t, err)

	require.NoError(t, store.Write(ctx, "jobs", "j1", map[string]any{"name": "Office Tower"}))

	records, err := store.Read(ctx, "jobs", Filter{"id": "j1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Office Tower", records[0].Data["name"])
	assert.Equal(t, "u1", records[0].Data["owner_id"], "patch не трогает остальные поля")

	assert.ErrorIs(t, store.Write(ctx, "jobs", "missing", map[string]any{"name": "x"}), ErrNotFound)
}

func TestMemoryStoreInsertUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Insert(ctx, "jobs", map[string]any{"id": "j1", "name": "First"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "jobs", map[string]any{"id": "j1", "name": "Second"})
	require.NoError(t, err)

	records, err := store.Read(ctx, "jobs", Filter{"id": "j1"})
	require.NoError(t, err)
	require.Len(t, records, 1, "повторный insert с тем же id затирает запись")
	assert.Equal(t, "Second", records[0].Data["name"])
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Insert(ctx, "jobs", map[string]any{"id": "j1", "name": "Office"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "jobs", "j1"))
	assert.ErrorIs(t, store.Delete(ctx, "jobs", "j1"), ErrNotFound)

	records, err := store.Read(ctx, "jobs", Filter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryStoreReadIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Insert(ctx, "jobs", map[string]any{"id": "j1", "name": "Office"})
	require.NoError(t, err)

	records, err := store.Read(ctx, "jobs", Filter{"id": "j1"})
	require.NoError(t, err)
	records[0].Data["name"] = "mutated"

	fresh, err := store.Read(ctx, "jobs", Filter{"id": "j1"})
	require.NoError(t, err)
	assert.Equal(t, "Office", fresh[0].Data["name"], "Read отдает копию документа")
}

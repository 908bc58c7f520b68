package measure

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"takeoff-api/internal/takeoff/models"
	"takeoff-api/internal/takeoff/repository"
)

func annotation(id string, points ...models.Point) models.MeasurementAnnotation {
	return models.MeasurementAnnotation{
		ID:     id,
		Page:   1,
		Kind:   models.MeasurementLine,
		Points: points,
	}
}

func ids(annotations []models.MeasurementAnnotation) []string {
	out := make([]string, 0, len(annotations))
	for _, a := range annotations {
		out = append(out, a.ID)
	}
	return out
}

func TestSyncPersistsPendingLocal(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(repository.NewMemoryStore())

	client := []models.MeasurementAnnotation{
		annotation("a", models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 0}),
		annotation("b", models.Point{X: 5, Y: 5}, models.Point{X: 5, Y: 25}),
	}

	result, err := reconciler.Sync(ctx, "doc-1", "user-1", client)
	require.NoError(t, err)
	assert.Empty(t, result.Failed)
	assert.ElementsMatch(t, []string{"a", "b"}, ids(result.Annotations))

	stored, err := reconciler.Load(ctx, "doc-1", "user-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids(stored))
}

func TestSyncIdempotent(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(repository.NewMemoryStore())

	client := []models.MeasurementAnnotation{
		annotation("a", models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 0}),
	}

	first, err := reconciler.Sync(ctx, "doc-1", "user-1", client)
	require.NoError(t, err)

	// Повторный Sync без новых аннотаций ничего не меняет.
	second, err := reconciler.Sync(ctx, "doc-1", "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, first.Annotations, second.Annotations)
	assert.Empty(t, second.Failed)

	// И с тем же входом — тоже.
	third, err := reconciler.Sync(ctx, "doc-1", "user-1", client)
	require.NoError(t, err)
	assert.Equal(t, first.Annotations, third.Annotations)
}

func TestSyncUnionClientGeometryWins(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(repository.NewMemoryStore())

	g1 := []models.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}
	g2 := []models.Point{{X: 0, Y: 0}, {X: 42, Y: 0}}

	_, err := reconciler.Sync(ctx, "doc-1", "user-1", []models.MeasurementAnnotation{annotation("a", g1...)})
	require.NoError(t, err)

	result, err := reconciler.Sync(ctx, "doc-1", "user-1", []models.MeasurementAnnotation{
		annotation("a", g2...),
		annotation("b", models.Point{X: 1, Y: 1}, models.Point{X: 2, Y: 2}),
	})
	require.NoError(t, err)
	require.Len(t, result.Annotations, 2)

	byID := make(map[string]models.MeasurementAnnotation)
	for _, a := range result.Annotations {
		byID[a.ID] = a
	}
	assert.Equal(t, g2, byID["a"].Points, "геометрия клиента побеждает")
	assert.Contains(t, byID, "b")

	// Обновленная геометрия дошла до хранилища.
	stored, err := reconciler.Load(ctx, "doc-1", "user-1")
	require.NoError(t, err)
	for _, a := range stored {
		if a.ID == "a" {
			assert.Equal(t, g2, a.Points)
		}
	}
}

func TestSyncDeduplicatesClientInput(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(repository.NewMemoryStore())

	duplicate := annotation("a", models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 0})
	result, err := reconciler.Sync(ctx, "doc-1", "user-1", []models.MeasurementAnnotation{duplicate, duplicate})
	require.NoError(t, err)
	assert.Len(t, result.Annotations, 1)
}

// insertFailingStore отказывает в Insert для заданного id.
type insertFailingStore struct {
	repository.Store
	failID string
}

func (s *insertFailingStore) Insert(ctx context.Context, collection string, record map[string]any) (string, error) {
	if id, ok := record["id"].(string); ok && id == s.failID {
		return "", fmt.Errorf("simulated write failure")
	}
	return s.Store.Insert(ctx, collection, record)
}

func TestSyncPartialFailure(t *testing.T) {
	ctx := context.Background()
	memory := repository.NewMemoryStore()
	reconciler := NewReconciler(&insertFailingStore{Store: memory, failID: "b"})

	result, err := reconciler.Sync(ctx, "doc-1", "user-1", []models.MeasurementAnnotation{
		annotation("a", models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 0}),
		annotation("b", models.Point{X: 1, Y: 1}, models.Point{X: 2, Y: 2}),
	})
	require.NoError(t, err, "частичный отказ — предупреждение, не ошибка")

	assert.Equal(t, []string{"a"}, ids(result.Annotations))
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "b", result.Failed[0].ID)
	assert.Equal(t, "1 of 2 annotations synced", result.Summary())
}

func TestSyncScopedByDocumentAndUser(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(repository.NewMemoryStore())

	_, err := reconciler.Sync(ctx, "doc-1", "user-1", []models.MeasurementAnnotation{
		annotation("a", models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 0}),
	})
	require.NoError(t, err)

	other, err := reconciler.Load(ctx, "doc-1", "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	otherDoc, err := reconciler.Load(ctx, "doc-2", "user-1")
	require.NoError(t, err)
	assert.Empty(t, otherDoc)
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(repository.NewMemoryStore())

	_, err := reconciler.Sync(ctx, "doc-1", "user-1", []models.MeasurementAnnotation{
		annotation("a", models.Point{X: 0, Y: 0}, models.Point{X: 10, Y: 0}),
	})
	require.NoError(t, err)

	require.NoError(t, reconciler.Delete(ctx, "a"))
	require.NoError(t, reconciler.Delete(ctx, "a"), "повторное удаление не ошибка")

	stored, err := reconciler.Load(ctx, "doc-1", "user-1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSyncAssignsMissingIDs(t *testing.T) {
	ctx := context.Background()
	reconciler := NewReconciler(repository.NewMemoryStore())

	result, err := reconciler.Sync(ctx, "doc-1", "user-1", []models.MeasurementAnnotation{
		{Page: 1, Kind: models.MeasurementLine, Points: []models.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, CreatedAt: time.Now()},
	})
	require.NoError(t, err)
	require.Len(t, result.Annotations, 1)
	assert.NotEmpty(t, result.Annotations[0].ID)
}

package measure

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"takeoff-api/internal/takeoff/models"
	"takeoff-api/internal/takeoff/repository"
)

// ============================================================
// Measurement Reconciler
// ============================================================

// Reconciler сводит клиентский набор аннотаций с durable-хранилищем.
// Хранилище — источник истины о существовании аннотации, клиент —
// о её геометрии. Любая мутация на клиенте приводит к полному Sync.
type Reconciler struct {
	store repository.Store
}

func NewReconciler(store repository.Store) *Reconciler {
	return &Reconciler{store: store}
}

// SyncFailure — аннотация, которую не удалось записать за этот проход.
type SyncFailure struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

// SyncResult — объединенный набор плюс частичные отказы.
type SyncResult struct {
	Annotations []models.MeasurementAnnotation `json:"annotations"`
	Failed      []SyncFailure                  `json:"failed,omitempty"`
}

// Summary — итог вида "3 of 4 annotations synced".
func (r SyncResult) Summary() string {
	total := len(r.Annotations) + len(r.Failed)
	return fmt.Sprintf("%d of %d annotations synced", len(r.Annotations), total)
}

// Load возвращает все сохраненные аннотации пользователя по документу.
func (r *Reconciler) Load(ctx context.Context, documentID, userID string) ([]models.MeasurementAnnotation, error) {
	records, err := r.store.Read(ctx, repository.CollectionMeasurements, repository.Filter{
		"document_id": documentID,
		"created_by":  userID,
	})
	if err != nil {
		return nil, fmt.Errorf("load measurements: %w", err)
	}

	annotations := make([]models.MeasurementAnnotation, 0, len(records))
	for _, record := range records {
		annotations = append(annotations, annotationFromDoc(record.Data))
	}
	sortAnnotations(annotations)
	return annotations, nil
}

// Sync объединяет клиентский набор с хранимым:
//  1. аннотации с неизвестным хранилищу id записываются как новые;
//  2. для известных id геометрия клиента затирает хранимую;
//  3. результат — дедуплицированное по id объединение.
//
// Повторный вызов с тем же входом ничего не меняет. Отказ записи одной
// аннотации не прерывает остальные: она исключается из объединения
// и попадает в Failed.
func (r *Reconciler) Sync(ctx context.Context, documentID, userID string, client []models.MeasurementAnnotation) (SyncResult, error) {
	stored, err := r.Load(ctx, documentID, userID)
	if err != nil {
		return SyncResult{}, err
	}

	known := make(map[string]int, len(stored))
	for i, annotation := range stored {
		known[annotation.ID] = i
	}

	result := SyncResult{Annotations: stored}
	seen := make(map[string]bool, len(client))

	for _, annotation := range client {
		annotation.DocumentID = documentID
		annotation.CreatedBy = userID
		if annotation.ID == "" {
			annotation.ID = uuid.NewString()
		}
		if seen[annotation.ID] {
			continue
		}
		seen[annotation.ID] = true

		if index, ok := known[annotation.ID]; ok {
			// Известная аннотация: геометрия клиента побеждает.
			updated := result.Annotations[index]
			updated.Kind = annotation.Kind
			updated.Points = annotation.Points
			updated.Page = annotation.Page
			if err := r.store.Write(ctx, repository.CollectionMeasurements, annotation.ID, geometryPatch(updated)); err != nil {
				log.Printf("[TAKEOFF] sync update %s: %v", annotation.ID, err)
				result.Failed = append(result.Failed, SyncFailure{ID: annotation.ID, Err: err.Error()})
				continue
			}
			result.Annotations[index] = updated
			continue
		}

		// Pending-local: записываем как новую.
		if annotation.CreatedAt.IsZero() {
			annotation.CreatedAt = time.Now().UTC()
		}
		if _, err := r.store.Insert(ctx, repository.CollectionMeasurements, docFromAnnotation(annotation)); err != nil {
			log.Printf("[TAKEOFF] sync insert %s: %v", annotation.ID, err)
			result.Failed = append(result.Failed, SyncFailure{ID: annotation.ID, Err: err.Error()})
			continue
		}
		known[annotation.ID] = len(result.Annotations)
		result.Annotations = append(result.Annotations, annotation)
	}

	sortAnnotations(result.Annotations)
	return result, nil
}

// Delete удаляет аннотацию. Повторное удаление не ошибка.
func (r *Reconciler) Delete(ctx context.Context, id string) error {
	err := r.store.Delete(ctx, repository.CollectionMeasurements, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// ============================================================
// Encoding
// ============================================================

func docFromAnnotation(a models.MeasurementAnnotation) map[string]any {
	points := make([]map[string]any, 0, len(a.Points))
	for _, p := range a.Points {
		points = append(points, map[string]any{"x": p.X, "y": p.Y})
	}
	return map[string]any{
		"id":          a.ID,
		"document_id": a.DocumentID,
		"page":        a.Page,
		"kind":        string(a.Kind),
		"points":      points,
		"created_by":  a.CreatedBy,
		"created_at":  a.CreatedAt.Format(time.RFC3339Nano),
	}
}

func geometryPatch(a models.MeasurementAnnotation) map[string]any {
	points := make([]map[string]any, 0, len(a.Points))
	for _, p := range a.Points {
		points = append(points, map[string]any{"x": p.X, "y": p.Y})
	}
	return map[string]any{
		"kind":   string(a.Kind),
		"points": points,
		"page":   a.Page,
	}
}

func annotationFromDoc(doc map[string]any) models.MeasurementAnnotation {
	a := models.MeasurementAnnotation{}
	if id, ok := doc["id"].(string); ok {
		a.ID = id
	}
	if documentID, ok := doc["document_id"].(string); ok {
		a.DocumentID = documentID
	}
	if page, ok := doc["page"].(float64); ok {
		a.Page = int(page)
	}
	if kind, ok := doc["kind"].(string); ok {
		a.Kind = models.MeasurementKind(kind)
	}
	if createdBy, ok := doc["created_by"].(string); ok {
		a.CreatedBy = createdBy
	}
	if createdAt, ok := doc["created_at"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			a.CreatedAt = ts
		}
	}
	if rawPoints, ok := doc["points"].([]any); ok {
		for _, rawPoint := range rawPoints {
			point, ok := rawPoint.(map[string]any)
			if !ok {
				continue
			}
			x, _ := point["x"].(float64)
			y, _ := point["y"].(float64)
			a.Points = append(a.Points, models.Point{X: x, Y: y})
		}
	}
	return a
}

func sortAnnotations(annotations []models.MeasurementAnnotation) {
	sort.SliceStable(annotations, func(i, j int) bool {
		if annotations[i].CreatedAt.Equal(annotations[j].CreatedAt) {
			return annotations[i].ID < annotations[j].ID
		}
		return annotations[i].CreatedAt.Before(annotations[j].CreatedAt)
	})
}

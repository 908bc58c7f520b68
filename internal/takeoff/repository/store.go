package repository

import (
	"context"
	"encoding/json"
	"fmt"
)

// ============================================================
// Generic Data Access
// ============================================================

// Коллекции, с которыми работает сервис.
const (
	CollectionScaleSettings = "scale_settings"
	CollectionMeasurements  = "measurements"
	CollectionPlanAnalyses  = "plan_analyses"
	CollectionPlans         = "plans"
	CollectionJobs          = "jobs"
)

// Record — одна запись коллекции: идентификатор плюс JSON-документ.
type Record struct {
	ID   string
	Data map[string]any
}

// Filter отбирает записи по равенству полей верхнего уровня документа.
type Filter map[string]any

// Store — обобщенный интерфейс хранилища. Все компоненты сервиса
// определены только через эти операции; бэкенд (sqlite, postgres,
// память) взаимозаменяем.
type Store interface {
	Read(ctx context.Context, collection string, filter Filter) ([]Record, error)
	Write(ctx context.Context, collection, id string, patch map[string]any) error
	Insert(ctx context.Context, collection string, record map[string]any) (string, error)
	Delete(ctx context.Context, collection, id string) error
}

// normalize прогоняет документ через JSON, чтобы типы значений совпадали
// с тем, что вернет любой бэкенд (числа становятся float64 и т.д.).
func normalize(doc map[string]any) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize record: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize record: %w", err)
	}
	return out, nil
}

// matches проверяет запись против фильтра.
func matches(doc map[string]any, filter Filter) bool {
	for key, want := range filter {
		got, ok := doc[key]
		if !ok || !equalValue(got, want) {
			return false
		}
	}
	return true
}

// equalValue сравнивает значения с учетом того, что числа из JSON
// приходят как float64, а вызывающий код может держать int.
func equalValue(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

package scale

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"takeoff-api/internal/takeoff/models"
	"takeoff-api/internal/takeoff/repository"
)

// ErrInvalidSetting — масштаб нарушает инвариант pixelsPerUnit > 0.
var ErrInvalidSetting = errors.New("invalid scale setting")

// ============================================================
// Scale Settings Store
// ============================================================

// Settings — durable-хранилище масштабов: по одной записи на пару
// (документ, страница). Замена только целиком, частичных патчей нет.
type Settings struct {
	store repository.Store
}

func NewSettings(store repository.Store) *Settings {
	return &Settings{store: store}
}

// ParsePage приводит строковый номер страницы к каноническому int.
// На границе интерфейса ключ страницы всегда int: это убирает класс
// багов с коллизией числового и строкового ключа.
func ParsePage(raw string) (int, error) {
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid page %q", raw)
	}
	if page < 1 {
		return 0, fmt.Errorf("invalid page %d", page)
	}
	return page, nil
}

// Get возвращает масштаб страницы. Второй результат false — страница
// не откалибрована.
func (s *Settings) Get(ctx context.Context, documentID string, page int) (models.ScaleSetting, bool, error) {
	records, err := s.store.Read(ctx, repository.CollectionScaleSettings, repository.Filter{
		"document_id": documentID,
		"page":        page,
	})
	if err != nil {
		return models.ScaleSetting{}, false, fmt.Errorf("get scale: %w", err)
	}
	if len(records) == 0 {
		return models.ScaleSetting{}, false, nil
	}
	return settingFromDoc(records[0].Data), true, nil
}

// Set записывает масштаб страницы, затирая предыдущий. Идемпотентна:
// id записи детерминирован парой (документ, страница).
func (s *Settings) Set(ctx context.Context, documentID string, page int, setting models.ScaleSetting) error {
	if setting.PixelsPerUnit <= 0 {
		return fmt.Errorf("%w: pixels per unit %v", ErrInvalidSetting, setting.PixelsPerUnit)
	}
	if page < 1 {
		return fmt.Errorf("invalid page %d", page)
	}

	_, err := s.store.Insert(ctx, repository.CollectionScaleSettings, map[string]any{
		"id":              settingID(documentID, page),
		"document_id":     documentID,
		"page":            page,
		"ratio":           setting.Ratio,
		"pixels_per_unit": setting.PixelsPerUnit,
		"unit":            string(setting.Unit),
	})
	if err != nil {
		return fmt.Errorf("set scale: %w", err)
	}
	return nil
}

// ============================================================
// Bulk propagation
// ============================================================

// PageFailure — одна неудавшаяся страница bulk-операции.
type PageFailure struct {
	Page int    `json:"page"`
	Err  string `json:"error"`
}

// PageReport — итог ApplyToAll: какие страницы записались, какие нет.
type PageReport struct {
	Total     int           `json:"total"`
	Succeeded []int         `json:"succeeded"`
	Failed    []PageFailure `json:"failed"`
}

// Summary — человекочитаемый итог вида "4 of 5 pages updated".
func (r PageReport) Summary() string {
	return fmt.Sprintf("%d of %d pages updated", len(r.Succeeded), r.Total)
}

// ApplyToAll копирует масштаб на каждую страницу 1..totalPages.
// Операция не транзакционна: отказ одной страницы не откатывает
// и не отменяет остальные, результат по каждой странице в отчете.
func (s *Settings) ApplyToAll(ctx context.Context, documentID string, setting models.ScaleSetting, totalPages int) (PageReport, error) {
	if totalPages < 1 {
		return PageReport{}, fmt.Errorf("invalid total pages %d", totalPages)
	}

	report := PageReport{Total: totalPages}
	for page := 1; page <= totalPages; page++ {
		if err := s.Set(ctx, documentID, page, setting); err != nil {
			report.Failed = append(report.Failed, PageFailure{Page: page, Err: err.Error()})
			continue
		}
		report.Succeeded = append(report.Succeeded, page)
	}
	return report, nil
}

// ============================================================
// Helpers
// ============================================================

func settingID(documentID string, page int) string {
	return fmt.Sprintf("%s:%d", documentID, page)
}

func settingFromDoc(doc map[string]any) models.ScaleSetting {
	setting := models.ScaleSetting{}
	if ratio, ok := doc["ratio"].(string); ok {
		setting.Ratio = ratio
	}
	if ppu, ok := doc["pixels_per_unit"].(float64); ok {
		setting.PixelsPerUnit = ppu
	}
	if unit, ok := doc["unit"].(string); ok {
		setting.Unit = models.Unit(unit)
	}
	return setting
}

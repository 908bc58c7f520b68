package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"takeoff-api/internal/takeoff/measure"
	"takeoff-api/internal/takeoff/models"
	"takeoff-api/internal/takeoff/scale"
)

// ============================================================
// Measurements Handler
// ============================================================

type MeasurementsHandler struct {
	reconciler *measure.Reconciler
	settings   *scale.Settings
}

func NewMeasurementsHandler(reconciler *measure.Reconciler, settings *scale.Settings) *MeasurementsHandler {
	return &MeasurementsHandler{reconciler: reconciler, settings: settings}
}

type syncRequest struct {
	UserID      string                         `json:"user_id"`
	Annotations []models.MeasurementAnnotation `json:"annotations"`
}

// List возвращает сохраненные аннотации пользователя с производными
// значениями по масштабу страниц.
func (h *MeasurementsHandler) List(c fiber.Ctx) error {
	documentID := c.Params("id")
	userID := c.Query("user")
	if userID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "user query parameter required"})
	}

	annotations, err := h.reconciler.Load(c.Context(), documentID, userID)
	if err != nil {
		log.Printf("[TAKEOFF] load measurements error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load measurements"})
	}

	h.attachDerived(c.Context(), documentID, annotations)
	return c.JSON(fiber.Map{"annotations": annotations})
}

// Sync принимает клиентский набор аннотаций и возвращает объединение
// с хранилищем. Частичные отказы записи — предупреждение, не ошибка.
func (h *MeasurementsHandler) Sync(c fiber.Ctx) error {
	documentID := c.Params("id")

	var req syncRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if req.UserID == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "user_id required"})
	}

	result, err := h.reconciler.Sync(c.Context(), documentID, req.UserID, req.Annotations)
	if err != nil {
		log.Printf("[TAKEOFF] sync error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to sync measurements"})
	}

	h.attachDerived(c.Context(), documentID, result.Annotations)
	if len(result.Failed) > 0 {
		log.Printf("[TAKEOFF] sync partial: %s", result.Summary())
	}
	return c.JSON(fiber.Map{
		"message":     result.Summary(),
		"annotations": result.Annotations,
		"failed":      result.Failed,
	})
}

// Delete удаляет аннотацию; повторный вызов безопасен.
func (h *MeasurementsHandler) Delete(c fiber.Ctx) error {
	measurementID := c.Params("mid")
	if err := h.reconciler.Delete(c.Context(), measurementID); err != nil {
		log.Printf("[TAKEOFF] delete measurement error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete measurement"})
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// attachDerived заполняет Length/Area по масштабу страницы. Страница без
// масштаба остается geometry-only.
func (h *MeasurementsHandler) attachDerived(ctx context.Context, documentID string, annotations []models.MeasurementAnnotation) {
	type cached struct {
		setting models.ScaleSetting
		ok      bool
	}
	cache := make(map[int]cached)

	for i := range annotations {
		page := annotations[i].Page
		entry, seen := cache[page]
		if !seen {
			setting, ok, err := h.settings.Get(ctx, documentID, page)
			if err != nil {
				log.Printf("[TAKEOFF] scale lookup for page %d: %v", page, err)
				ok = false
			}
			entry = cached{setting: setting, ok: ok}
			cache[page] = entry
		}
		if entry.ok {
			measure.Apply(&annotations[i], entry.setting)
		}
	}
}

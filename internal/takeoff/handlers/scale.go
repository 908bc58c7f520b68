package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"takeoff-api/internal/takeoff/models"
	"takeoff-api/internal/takeoff/scale"
)

// ============================================================
// Scale Handler
// ============================================================

type ScaleHandler struct {
	settings *scale.Settings
}

func NewScaleHandler(settings *scale.Settings) *ScaleHandler {
	return &ScaleHandler{settings: settings}
}

type calibrateRequest struct {
	Points   []models.Point `json:"points"`
	Distance string         `json:"distance"`
}

type applyAllRequest struct {
	Ratio         string  `json:"ratio"`
	PixelsPerUnit float64 `json:"pixels_per_unit"`
	Unit          string  `json:"unit"`
	TotalPages    int     `json:"total_pages"`
}

// GetScale возвращает масштаб страницы; 404 — страница не откалибрована.
func (h *ScaleHandler) GetScale(c fiber.Ctx) error {
	documentID := c.Params("id")
	page, err := scale.ParsePage(c.Params("page"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	setting, ok, err := h.settings.Get(c.Context(), documentID, page)
	if err != nil {
		log.Printf("[TAKEOFF] get scale error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read scale"})
	}
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "page is not calibrated"})
	}
	return c.JSON(setting)
}

// SetScale завершает калибровку: две точки жеста плюс строка дистанции.
// Невалидный вход отклоняется до какой-либо записи.
func (h *ScaleHandler) SetScale(c fiber.Ctx) error {
	documentID := c.Params("id")
	page, err := scale.ParsePage(c.Params("page"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var req calibrateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if len(req.Points) != 2 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "exactly two calibration points required"})
	}

	setting, err := scale.Resolve(req.Points[0], req.Points[1], req.Distance)
	if err != nil {
		if errors.Is(err, scale.ErrDegenerateGesture) || errors.Is(err, scale.ErrInvalidDistance) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("[TAKEOFF] resolve scale error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to resolve scale"})
	}

	if err := h.settings.Set(c.Context(), documentID, page, setting); err != nil {
		log.Printf("[TAKEOFF] set scale error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save scale"})
	}
	return c.JSON(setting)
}

// ApplyToAll копирует масштаб на все страницы документа и отдает
// по-страничный отчет: частичный отказ — не общий fail.
func (h *ScaleHandler) ApplyToAll(c fiber.Ctx) error {
	documentID := c.Params("id")

	var req applyAllRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if req.PixelsPerUnit <= 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "pixels_per_unit must be positive"})
	}
	if !models.KnownUnit(models.Unit(req.Unit)) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "unknown unit"})
	}
	if req.TotalPages < 1 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "total_pages must be at least 1"})
	}

	setting := models.ScaleSetting{
		Ratio:         req.Ratio,
		PixelsPerUnit: req.PixelsPerUnit,
		Unit:          models.Unit(req.Unit),
	}

	report, err := h.settings.ApplyToAll(c.Context(), documentID, setting, req.TotalPages)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if len(report.Failed) > 0 {
		log.Printf("[TAKEOFF] apply-all partial: %s", report.Summary())
	}
	return c.JSON(fiber.Map{
		"message": report.Summary(),
		"report":  report,
	})
}

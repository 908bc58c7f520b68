package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"takeoff-api/internal/analysis/client"
	"takeoff-api/internal/takeoff/aggregate"
	"takeoff-api/internal/takeoff/models"
	"takeoff-api/internal/takeoff/repository"
)

// ============================================================
// Takeoff Handler
// ============================================================

type TakeoffHandler struct {
	aggregator *aggregate.Aggregator
	store      repository.Store
	analysis   *client.Client
}

func NewTakeoffHandler(aggregator *aggregate.Aggregator, store repository.Store, analysis *client.Client) *TakeoffHandler {
	return &TakeoffHandler{aggregator: aggregator, store: store, analysis: analysis}
}

// GetTakeoff собирает единый список строк объемов по всем планам job.
func (h *TakeoffHandler) GetTakeoff(c fiber.Ctx) error {
	jobID := c.Params("id")

	items, err := h.aggregator.Aggregate(c.Context(), jobID)
	if err != nil {
		log.Printf("[TAKEOFF] aggregate error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to aggregate takeoff"})
	}
	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
	})
}

// EditItem заменяет строку в агрегате и записывает обратно только план,
// которому строка принадлежит. При отказе записи клиент перезагружает
// агрегат из хранилища.
func (h *TakeoffHandler) EditItem(c fiber.Ctx) error {
	jobID := c.Params("id")
	itemID := c.Params("itemID")

	var edited models.TakeoffItem
	if err := json.Unmarshal(c.Body(), &edited); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	edited.ID = itemID

	items, err := h.aggregator.Aggregate(c.Context(), jobID)
	if err != nil {
		log.Printf("[TAKEOFF] aggregate error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to aggregate takeoff"})
	}

	items, ownerPlan := aggregate.ApplyEdit(items, edited)

	report, err := h.aggregator.Persist(c.Context(), jobID, items, ownerPlan)
	if err != nil {
		log.Printf("[TAKEOFF] persist error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to persist takeoff"})
	}

	if report.Failed() {
		log.Printf("[TAKEOFF] persist partial: %s", report.Summary())
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{
			"message": report.Summary() + ", please retry",
			"report":  report,
		})
	}
	return c.JSON(fiber.Map{
		"message": report.Summary(),
		"report":  report,
		"items":   items,
	})
}

// AnalyzePlan отправляет отрендеренные страницы плана на AI-анализ
// и сохраняет результат как analysis-запись плана.
func (h *TakeoffHandler) AnalyzePlan(c fiber.Ctx) error {
	planID := c.Params("id")

	plans, err := h.store.Read(c.Context(), repository.CollectionPlans, repository.Filter{"id": planID})
	if err != nil {
		log.Printf("[TAKEOFF] read plan error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read plan"})
	}
	if len(plans) == 0 {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "plan not found"})
	}
	jobID, _ := plans[0].Data["job_id"].(string)

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "multipart form required"})
	}
	fileHeaders := form.File["pages"]
	if len(fileHeaders) == 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "at least one page image required"})
	}

	pages := make([]client.PageImage, 0, len(fileHeaders))
	for _, fileHeader := range fileHeaders {
		file, err := fileHeader.Open()
		if err != nil {
			log.Printf("[TAKEOFF] open page %s: %v", fileHeader.Filename, err)
			continue
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			log.Printf("[TAKEOFF] read page %s: %v", fileHeader.Filename, err)
			continue
		}
		pages = append(pages, client.PageImage{Name: fileHeader.Filename, Data: data})
	}

	result, err := h.analysis.Analyze(c.Context(), planID, pages)
	if err != nil {
		log.Printf("[TAKEOFF] analysis error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "analysis failed"})
	}

	if result.Status != client.StatusComplete {
		return c.JSON(fiber.Map{"status": result.Status})
	}

	var payload any
	if err := json.Unmarshal(result.Payload, &payload); err != nil {
		log.Printf("[TAKEOFF] decode payload error: %v", err)
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "invalid analysis payload"})
	}

	// Одна analysis-запись на план: повторный анализ затирает прежний.
	if _, err := h.store.Insert(c.Context(), repository.CollectionPlanAnalyses, map[string]any{
		"id":      "analysis:" + planID,
		"plan_id": planID,
		"job_id":  jobID,
		"payload": payload,
	}); err != nil {
		log.Printf("[TAKEOFF] save analysis error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save analysis"})
	}

	items := aggregate.Collect([]aggregate.PlanAnalysis{{PlanID: planID, Payload: payload}})
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"status": result.Status,
		"items":  len(items),
	})
}

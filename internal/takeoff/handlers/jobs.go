package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"

	"takeoff-api/internal/takeoff/repository"
)

// ============================================================
// Jobs Handler
// ============================================================

// JobsHandler — минимальная регистрация job и планов, чтобы у
// analysis-записей и агрегата были владельцы.
type JobsHandler struct {
	store repository.Store
}

func NewJobsHandler(store repository.Store) *JobsHandler {
	return &JobsHandler{store: store}
}

type createJobRequest struct {
	Name    string `json:"name"`
	OwnerID string `json:"owner_id"`
}

type createPlanRequest struct {
	Name      string `json:"name"`
	PageCount int    `json:"page_count"`
}

// CreateJob регистрирует job.
func (h *JobsHandler) CreateJob(c fiber.Ctx) error {
	var req createJobRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if req.Name == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}

	id, err := h.store.Insert(c.Context(), repository.CollectionJobs, map[string]any{
		"name":       req.Name,
		"owner_id":   req.OwnerID,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("[TAKEOFF] create job error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create job"})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id})
}

// CreatePlan регистрирует план внутри job.
func (h *JobsHandler) CreatePlan(c fiber.Ctx) error {
	jobID := c.Params("id")

	var req createPlanRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid json"})
	}
	if req.Name == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "name required"})
	}

	id, err := h.store.Insert(c.Context(), repository.CollectionPlans, map[string]any{
		"job_id":     jobID,
		"name":       req.Name,
		"page_count": req.PageCount,
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("[TAKEOFF] create plan error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create plan"})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"id": id})
}

// ListPlans возвращает планы job.
func (h *JobsHandler) ListPlans(c fiber.Ctx) error {
	jobID := c.Params("id")

	records, err := h.store.Read(c.Context(), repository.CollectionPlans, repository.Filter{"job_id": jobID})
	if err != nil {
		log.Printf("[TAKEOFF] list plans error: %v", err)
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list plans"})
	}

	plans := make([]map[string]any, 0, len(records))
	for _, record := range records {
		plans = append(plans, record.Data)
	}
	return c.JSON(fiber.Map{"plans": plans})
}

package handlers

import (
	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Health Check Handlers
// ============================================================

// LivenessProbe проверяет, что gateway работает.
func LivenessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": "gateway",
	})
}

// ReadinessProbe проверяет готовность принимать запросы.
// Доступность takeoff/analysis сервисов здесь не проверяется:
// их отказ виден клиенту как 502 от прокси.
func ReadinessProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ready",
		"service": "gateway",
	})
}

// StartupProbe проверяет, что gateway успешно запустился.
func StartupProbe(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "started",
		"service": "gateway",
	})
}

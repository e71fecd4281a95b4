package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/config"
	"github.com/localnerve/layersync/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports service health
type HealthHandler struct {
	Config  *config.Config
	DB      *gorm.DB
	Catalog catalog.Catalog
}

// Health handles GET /health
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	result := services.HealthCheck(c.UserContext(), h.Config, h.DB, h.Catalog)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}

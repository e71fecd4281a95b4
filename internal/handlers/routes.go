package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/config"
	"github.com/localnerve/layersync/internal/middleware"
	"github.com/localnerve/layersync/internal/services"
	"github.com/localnerve/layersync/internal/types"
	"gorm.io/gorm"
)

// Deps are what the routes need.
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Catalog    catalog.Catalog
	Service    *services.Service
	Authorizer *services.Authorizer
}

// Register mounts the health and API routes on app.
func Register(app *fiber.App, d Deps) {
	health := &HealthHandler{Config: d.Config, DB: d.DB, Catalog: d.Catalog}
	app.Get("/health", health.Health)

	api := app.Group("/api")
	admin := middleware.AuthAdmin(d.Authorizer)

	layerHandler := &LayerHandler{Service: d.Service}
	api.Post("/layers/sync", admin, layerHandler.Sync)
	api.Get("/layers/sync/runs", layerHandler.Runs)
	api.Get("/layers", layerHandler.List)
	api.Post("/layers", admin, layerHandler.Upload)
	api.Delete("/layers/:name", admin, layerHandler.Delete)
	api.Post("/layers/:name/cleanup", admin, layerHandler.Cleanup)
	api.Post("/layers/:name/attributes", admin, layerHandler.RefreshAttributes)
	api.Get("/layers/:name/grid", layerHandler.GridExtent)
	api.Get("/stores", layerHandler.Stores)

	styleHandler := &StyleHandler{Service: d.Service}
	api.Delete("/styles/:name", admin, styleHandler.Delete)
	api.Post("/styles/*", admin, styleHandler.Notify)
	api.Put("/styles/*", admin, styleHandler.Notify)
}

// NotFound is the fallback handler for unmatched routes.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"status":    fiber.StatusNotFound,
		"message":   "[404] Resource Not Found",
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
	})
}

// ErrorHandler renders errors that escape the handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	var fe *fiber.Error
	var ce *types.CustomError
	switch {
	case errors.As(err, &ce):
		code = ce.Code
		message = ce.Message
		errorType = ce.Type
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/layersync/internal/services"
	"github.com/localnerve/layersync/internal/styles"
	"github.com/localnerve/layersync/internal/utils"
)

// StyleHandler mirrors style changes made through the map editor
type StyleHandler struct {
	Service *services.Service
}

// Notify handles POST and PUT /api/styles/*
// @Summary Style created or updated
// @Description Record a style document created or edited on GeoServer
// @Tags Styles
// @Accept xml
// @Produce json
// @Param request body string true "SLD document"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 400 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /styles/{path} [post]
// @Router /styles/{path} [put]
func (h *StyleHandler) Notify(c *fiber.Ctx) error {
	n, err := styles.ParseNotification(c.Method(), c.OriginalURL(), c.Body())
	if err != nil {
		return errorResponse(c, err)
	}
	if err := h.Service.ApplyStyleNotification(c.UserContext(), n); err != nil {
		return errorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fmt.Sprintf("Style %s saved", n.StyleName))
}

// Delete handles DELETE /api/styles/:name
// @Summary Style deleted
// @Description Remove a style deleted on GeoServer
// @Tags Styles
// @Produce json
// @Param name path string true "Style name"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /styles/{name} [delete]
func (h *StyleHandler) Delete(c *fiber.Ctx) error {
	n := styles.DeleteNotification(c.Path())
	if err := h.Service.ApplyStyleNotification(c.UserContext(), n); err != nil {
		return errorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fmt.Sprintf("Style %s deleted", n.StyleName))
}

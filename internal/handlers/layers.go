package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/services"
	"github.com/localnerve/layersync/internal/utils"
)

// LayerHandler serves the layer sync and publishing routes
type LayerHandler struct {
	Service *services.Service
}

// SyncRequest is the body of a sync request
type SyncRequest struct {
	IgnoreErrors     bool   `json:"ignore_errors"`
	Owner            string `json:"owner"`
	Workspace        string `json:"workspace"`
	Store            string `json:"store"`
	Filter           string `json:"filter"`
	SkipUnadvertised bool   `json:"skip_unadvertised"`
	SkipRegistered   bool   `json:"skip_registered"`
	RemoveDeleted    bool   `json:"remove_deleted"`
}

// Sync handles POST /api/layers/sync
// @Summary Reconcile layers
// @Description Crawl the GeoServer catalog and create, update or delete local layer records to match
// @Tags Layers
// @Accept json
// @Produce json
// @Param request body SyncRequest false "Sync options"
// @Success 200 {object} services.SyncReport
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /layers/sync [post]
func (h *LayerHandler) Sync(c *fiber.Ctx) error {
	var req SyncRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.ErrorResponse(c, "Invalid request body", fiber.StatusBadRequest, "sync")
		}
	}

	report, err := h.Service.Reconcile(c.UserContext(), services.SyncOptions{
		IgnoreErrors:     req.IgnoreErrors,
		Owner:            req.Owner,
		Workspace:        req.Workspace,
		Store:            req.Store,
		Filter:           req.Filter,
		SkipUnadvertised: req.SkipUnadvertised,
		SkipRegistered:   req.SkipRegistered,
		RemoveDeleted:    req.RemoveDeleted,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(report)
}

// Runs handles GET /api/layers/sync/runs
// @Summary Recent sync runs
// @Description The stored reports of the latest reconciliation runs, newest first
// @Tags Layers
// @Produce json
// @Param limit query int false "Number of runs, 1 to 100" default(10)
// @Success 200 {array} models.SyncRun
// @Router /layers/sync/runs [get]
func (h *LayerHandler) Runs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	if limit < 1 || limit > 100 {
		return utils.ErrorResponse(c, "limit must be between 1 and 100", fiber.StatusBadRequest, "sync")
	}
	runs, err := h.Service.Records().LatestSyncRuns(c.UserContext(), limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(runs)
}

// List handles GET /api/layers
// @Summary List registered layers
// @Tags Layers
// @Produce json
// @Success 200 {array} models.Layer
// @Router /layers [get]
func (h *LayerHandler) List(c *fiber.Ctx) error {
	layers, err := h.Service.Records().ListLayers(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(layers)
}

// Upload handles POST /api/layers
// @Summary Publish a dataset
// @Description Upload a vector or raster dataset to GeoServer and register the layer
// @Tags Layers
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Base file and companion files"
// @Param name formData string false "Layer name, defaults to the base file name"
// @Param title formData string false "Title"
// @Param abstract formData string false "Abstract"
// @Param overwrite formData bool false "Replace an existing layer of the same name"
// @Param charset formData string false "Character set of the data"
// @Param owner formData string false "Owner of the new layer"
// @Param keywords formData string false "Comma-separated keywords"
// @Success 201 {object} models.Layer
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Failure 422 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /layers [post]
func (h *LayerHandler) Upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return utils.ErrorResponse(c, "Expected a multipart form", fiber.StatusBadRequest, "upload")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return utils.ErrorResponse(c, "No files uploaded", fiber.StatusBadRequest, "upload")
	}

	dir, err := os.MkdirTemp("", "layersync-form-*")
	if err != nil {
		return errorResponse(c, err)
	}
	defer os.RemoveAll(dir)

	var base string
	for _, fh := range files {
		dest := filepath.Join(dir, filepath.Base(fh.Filename))
		if err := c.SaveFile(fh, dest); err != nil {
			return errorResponse(c, err)
		}
		if !catalog.IsBaseFile(dest) {
			continue
		}
		if base == "" || strings.EqualFold(filepath.Ext(dest), ".shp") {
			base = dest
		}
	}
	if base == "" {
		return utils.ErrorResponse(c, "No vector or raster file among the uploads", fiber.StatusBadRequest, "upload")
	}

	layer, err := h.Service.Upload(c.UserContext(), services.UploadRequest{
		BaseFile:  base,
		User:      c.FormValue("owner"),
		Name:      c.FormValue("name"),
		Overwrite: strings.EqualFold(c.FormValue("overwrite", "true"), "true"),
		Title:     c.FormValue("title"),
		Abstract:  c.FormValue("abstract"),
		Charset:   c.FormValue("charset", "UTF-8"),
		Keywords:  splitList(c.FormValue("keywords")),
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(layer)
}

// Delete handles DELETE /api/layers/:name
// @Summary Delete a layer
// @Description Remove the layer from GeoServer with its custom styles and store, then delete the local record
// @Tags Layers
// @Produce json
// @Param name path string true "Layer name"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 502 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /layers/{name} [delete]
func (h *LayerHandler) Delete(c *fiber.Ctx) error {
	name := c.Params("name")
	ctx := c.UserContext()

	layer, err := h.Service.Records().GetLayer(ctx, name)
	if err != nil {
		return errorResponse(c, err)
	}
	if err := h.Service.CascadingDelete(ctx, layer.Typename); err != nil {
		return errorResponse(c, err)
	}
	if err := h.Service.Records().DeleteLayerCascade(ctx, layer); err != nil {
		return errorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fmt.Sprintf("Layer %s deleted", name))
}

// Cleanup handles POST /api/layers/:name/cleanup
// @Summary Clean up after a failed upload
// @Description Remove the GeoServer layer, resource and store left under a name with no local record
// @Tags Layers
// @Produce json
// @Param name path string true "Layer name"
// @Param uuid query string false "Catalogue record to remove"
// @Success 200 {object} utils.SuccessResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /layers/{name}/cleanup [post]
func (h *LayerHandler) Cleanup(c *fiber.Ctx) error {
	name := c.Params("name")
	if err := h.Service.Cleanup(c.UserContext(), name, c.Query("uuid")); err != nil {
		return errorResponse(c, err)
	}
	return utils.MutationSuccessResponse(c, fmt.Sprintf("Cleaned up %s", name))
}

// RefreshAttributes handles POST /api/layers/:name/attributes
// @Summary Refresh layer attributes
// @Description Rediscover the layer's fields from GeoServer
// @Tags Layers
// @Produce json
// @Param name path string true "Layer name"
// @Param overwrite query bool false "Recreate every attribute"
// @Success 200 {array} models.Attribute
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /layers/{name}/attributes [post]
func (h *LayerHandler) RefreshAttributes(c *fiber.Ctx) error {
	ctx := c.UserContext()
	layer, err := h.Service.Records().GetLayer(ctx, c.Params("name"))
	if err != nil {
		return errorResponse(c, err)
	}
	if err := h.Service.DiscoverAttributes(ctx, layer, queryBool(c, "overwrite", false)); err != nil {
		return errorResponse(c, err)
	}
	attrs, err := h.Service.Records().Attributes(ctx, layer.ID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(attrs)
}

// GridExtent handles GET /api/layers/:name/grid
// @Summary Coverage grid size
// @Description Pixel size of a raster layer's grid, per axis
// @Tags Layers
// @Produce json
// @Param name path string true "Layer name"
// @Success 200 {array} int
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Router /layers/{name}/grid [get]
func (h *LayerHandler) GridExtent(c *fiber.Ctx) error {
	extent, err := h.Service.GridExtent(c.UserContext(), c.Params("name"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(extent)
}

// Stores handles GET /api/stores
// @Summary List GeoServer stores
// @Tags Stores
// @Produce json
// @Param type query string false "Store type, e.g. postgis or shapefile"
// @Success 200 {array} services.StoreInfo
// @Failure 502 {object} utils.ErrorResponseStruct
// @Router /stores [get]
func (h *LayerHandler) Stores(c *fiber.Ctx) error {
	stores, err := h.Service.GetStores(c.UserContext(), c.Query("type"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(stores)
}

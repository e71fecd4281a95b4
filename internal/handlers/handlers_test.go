package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/catalog/catalogtest"
	"github.com/localnerve/layersync/internal/config"
	"github.com/localnerve/layersync/internal/database"
	"github.com/localnerve/layersync/internal/handlers"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/localnerve/layersync/internal/models"
	"github.com/localnerve/layersync/internal/ogc"
	"github.com/localnerve/layersync/internal/records"
	"github.com/localnerve/layersync/internal/services"
	"github.com/localnerve/layersync/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type staticDiscoverer []ogc.Field

func (d staticDiscoverer) Discover(context.Context, ogc.Target) []ogc.Field {
	return d
}

type testEnv struct {
	app   *fiber.App
	cat   *catalogtest.Catalog
	store *records.Store
	cfg   *config.Config
}

// setupTestApp builds the routes over an in-memory registry and catalog.
func setupTestApp(t *testing.T, authz *services.Authorizer) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	geoserver := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(geoserver.Close)

	cfg := &config.Config{
		DBType:             "sqlite",
		DBDatabase:         ":memory:",
		GeoServerLocation:  geoserver.URL + "/geoserver/",
		GeoServerWorkspace: catalogtest.DefaultWorkspace,
		GeoServerTimeout:   time.Second,
	}
	env := &testEnv{cat: catalogtest.New(), store: records.New(db), cfg: cfg}
	svc := services.New(services.Options{
		Catalog:    env.cat,
		Records:    env.store,
		Discoverer: staticDiscoverer{{Name: "name", Type: "xsd:string"}},
		Log:        logging.Discard(),
	})

	env.app = fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.Register(env.app, handlers.Deps{
		Config:     cfg,
		DB:         db,
		Catalog:    env.cat,
		Service:    svc,
		Authorizer: authz,
	})
	env.app.Use(handlers.NotFound)
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (e *testEnv) localLayer(t *testing.T, name, storeType string) *models.Layer {
	t.Helper()
	layer, _, err := e.store.GetOrCreateLayer(context.Background(), name, models.Layer{
		Workspace: catalogtest.DefaultWorkspace, Store: name, StoreType: storeType,
	})
	require.NoError(t, err)
	return layer
}

func resource(name string) catalog.Resource {
	return catalog.Resource{
		Name:       name,
		Workspace:  catalogtest.DefaultWorkspace,
		Store:      name,
		Kind:       catalog.KindVector,
		Enabled:    catalog.FlagTrue,
		LatLonBBox: &catalog.BBox{MinX: 1, MaxX: 2, MinY: 3, MaxY: 4, CRS: "EPSG:4326"},
	}
}

func errorType(t *testing.T, body []byte) string {
	t.Helper()
	var er utils.ErrorResponseStruct
	require.NoError(t, json.Unmarshal(body, &er))
	assert.False(t, er.Ok)
	return er.Type
}

func uploadRequest(t *testing.T, fields map[string]string, files ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("data"))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/layers", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	env := setupTestApp(t, nil)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var result services.HealthCheckResult
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "healthy", result.Status)
	assert.Equal(t, "ok", result.GeoServer)

	env.cfg.GeoServerWorkspace = "missing"
	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "unhealthy", result.Status)
	assert.Equal(t, "error", result.GeoServer)
}

func TestSync(t *testing.T) {
	env := setupTestApp(t, nil)
	env.cat.AddResource(resource("roads"), "line")

	req := httptest.NewRequest(http.MethodPost, "/api/layers/sync", strings.NewReader(`{"owner":"alice","ignore_errors":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := env.do(t, req)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))

	var report services.SyncReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 1, report.Created)
	require.Len(t, report.Layers, 1)
	assert.Equal(t, services.StatusCreated, report.Layers[0].Status)

	layer, err := env.store.GetLayer(context.Background(), "roads")
	require.NoError(t, err)
	assert.Equal(t, "alice", layer.Owner)

	// An empty body syncs with defaults.
	resp, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/api/layers/sync", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/api/layers/sync", strings.NewReader(`{"owner":`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = env.do(t, req)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/layers/sync/runs?limit=1", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var runs []models.SyncRun
	require.NoError(t, json.Unmarshal(body, &runs))
	require.Len(t, runs, 1)
	var stored services.SyncReport
	require.NoError(t, runs[0].Report.Decode(&stored))
	assert.Equal(t, 1, stored.Updated)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/layers/sync/runs?limit=0", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUpload(t *testing.T) {
	env := setupTestApp(t, nil)

	req := uploadRequest(t, map[string]string{"title": "Roads", "owner": "alice", "keywords": "a, b"},
		"roads.shp", "roads.shx", "roads.dbf", "roads.prj")
	resp, body := env.do(t, req)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var layer models.Layer
	require.NoError(t, json.Unmarshal(body, &layer))
	assert.Equal(t, "roads", layer.Name)
	assert.Equal(t, "Roads", layer.Title)
	assert.Equal(t, "alice", layer.Owner)
	assert.True(t, env.cat.HasLayer("roads"))

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/layers", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var listed []models.Layer
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "geonode:roads", listed[0].Typename)

	// Same name again without overwrite
	req = uploadRequest(t, map[string]string{"overwrite": "false"}, "roads.shp", "roads.shx", "roads.dbf")
	resp, body = env.do(t, req)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "nameConflict", errorType(t, body))
}

func TestUploadRejectsBadForms(t *testing.T) {
	env := setupTestApp(t, nil)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodPost, "/api/layers", strings.NewReader("plain")))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, uploadRequest(t, map[string]string{"title": "x"}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, uploadRequest(t, nil, "notes.txt"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// A shapefile without its companions
	resp, body := env.do(t, uploadRequest(t, nil, "roads.shp"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "uploadFailed", errorType(t, body))
}

func TestDeleteLayer(t *testing.T) {
	env := setupTestApp(t, nil)
	env.cat.AddResource(resource("roads"), "point", "roads_style")
	env.localLayer(t, "roads", "dataStore")

	resp, body := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/layers/roads", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.False(t, env.cat.HasLayer("roads"))
	assert.False(t, env.cat.HasStyle("roads_style"))
	assert.True(t, env.cat.HasStyle("point"))
	_, err := env.store.GetLayer(context.Background(), "roads")
	assert.ErrorIs(t, err, records.ErrNotFound)

	resp, body = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/layers/roads", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "notFound", errorType(t, body))
}

func TestCleanup(t *testing.T) {
	env := setupTestApp(t, nil)
	env.cat.AddResource(resource("roads"), "point")
	env.localLayer(t, "roads", "dataStore")

	resp, body := env.do(t, httptest.NewRequest(http.MethodPost, "/api/layers/roads/cleanup", nil))
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, "localRecordExists", errorType(t, body))

	env.cat.AddResource(resource("orphan"), "point")
	resp, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/api/layers/orphan/cleanup?uuid=abc", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.False(t, env.cat.HasStore("orphan"))
}

func TestRefreshAttributes(t *testing.T) {
	env := setupTestApp(t, nil)
	env.localLayer(t, "roads", "dataStore")

	resp, body := env.do(t, httptest.NewRequest(http.MethodPost, "/api/layers/roads/attributes?overwrite=true", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var attrs []models.Attribute
	require.NoError(t, json.Unmarshal(body, &attrs))
	require.Len(t, attrs, 1)
	assert.Equal(t, "name", attrs[0].Attribute)
	assert.Equal(t, "Name", attrs[0].AttributeLabel)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/api/layers/missing/attributes", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGridExtent(t *testing.T) {
	env := setupTestApp(t, nil)
	env.localLayer(t, "roads", "dataStore")

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/layers/roads/grid", nil))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/layers/missing/grid", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStores(t *testing.T) {
	env := setupTestApp(t, nil)
	env.cat.AddStore(catalog.Store{Name: "db", Workspace: "geonode", Kind: catalog.DataStore, Type: "PostGIS"})
	env.cat.AddStore(catalog.Store{Name: "files", Workspace: "geonode", Kind: catalog.DataStore, Type: "Shapefile"})

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/stores?type=postgis", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var stores []services.StoreInfo
	require.NoError(t, json.Unmarshal(body, &stores))
	assert.Equal(t, []services.StoreInfo{{Name: "db", Type: "postgis", Workspace: "geonode"}}, stores)

	env.cat.Failures["ListStores"] = &catalog.RequestError{Method: "GET", URL: "/rest/workspaces", Status: 500}
	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/stores", nil))
	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "geoserver", errorType(t, body))
}

const sld = `<?xml version="1.0" encoding="UTF-8"?>
<sld:StyledLayerDescriptor xmlns:sld="http://www.opengis.net/sld">
  <sld:NamedLayer>
    <sld:Name>geonode:roads</sld:Name>
    <sld:UserStyle>
      <sld:Name>roads_fancy</sld:Name>
      <sld:Title>Fancy roads</sld:Title>
    </sld:UserStyle>
  </sld:NamedLayer>
</sld:StyledLayerDescriptor>`

func TestStyleNotifications(t *testing.T) {
	env := setupTestApp(t, nil)
	layer := env.localLayer(t, "roads", "dataStore")
	ctx := context.Background()

	resp, body := env.do(t, httptest.NewRequest(http.MethodPost, "/api/styles/rest/styles", strings.NewReader(sld)))
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	style, err := env.store.GetStyle(ctx, "roads_fancy")
	require.NoError(t, err)
	assert.Equal(t, "Fancy roads", style.SLDTitle)
	linked, err := env.store.LayerStyles(ctx, layer)
	require.NoError(t, err)
	assert.Len(t, linked, 1)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodPut, "/api/styles/rest/styles/roads_fancy", strings.NewReader(sld)))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = env.do(t, httptest.NewRequest(http.MethodPost, "/api/styles/rest/styles", strings.NewReader("<sld/>")))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "badRequest", errorType(t, body))

	resp, _ = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/styles/roads_fancy", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/styles/roads_fancy", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodPut, "/api/styles/rest/styles/roads_fancy", strings.NewReader(sld)))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	_, err = env.store.GetStyle(ctx, "roads_fancy")
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestNotFound(t *testing.T) {
	env := setupTestApp(t, nil)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/nothing", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "Resource Not Found")
}

func TestAdminRoutesRequireSession(t *testing.T) {
	authz := services.NewAuthorizer(&config.Config{AuthzURL: "http://127.0.0.1:1", AuthzClientID: "client"})
	env := setupTestApp(t, authz)

	resp, body := env.do(t, httptest.NewRequest(http.MethodPost, "/api/layers/sync", nil))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "layers.authorization.admin", errorType(t, body))

	req := httptest.NewRequest(http.MethodPost, "/api/layers/sync", nil)
	req.AddCookie(&http.Cookie{Name: "cookie_session", Value: "abc"})
	resp, _ = env.do(t, req)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode, "authorizer unreachable")

	// Read-only routes stay open
	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/stores", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

package geoserver

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer serves canned JSON by method and path.
type fakeServer struct {
	mu       sync.Mutex
	routes   map[string]string
	status   map[string]int
	requests []*http.Request
	bodies   map[string][]byte
}

func newFakeServer() *fakeServer {
	return &fakeServer{routes: map[string]string{}, status: map[string]int{}, bodies: map[string][]byte{}}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(r.Body)
	k := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, r)
	f.bodies[k] = body
	if code, ok := f.status[k]; ok {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(f.routes[k]))
		return
	}
	resp, ok := f.routes[k]
	if !ok {
		if r.Method == http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusCreated)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(resp))
}

func setup(t *testing.T) (*Client, *fakeServer) {
	t.Helper()
	fs := newFakeServer()
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/geoserver/rest", "admin", "geoserver", "geonode", 5*time.Second), fs
}

func TestGetStoreNotFound(t *testing.T) {
	c, _ := setup(t)
	s, err := c.GetStore(context.Background(), "missing", "")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestListResources(t *testing.T) {
	c, fs := setup(t)
	fs.routes["GET /geoserver/rest/workspaces/geonode/datastores/roads.json"] = `{"dataStore":{"name":"roads","type":"PostGIS","enabled":true,
		"connectionParameters":{"entry":[{"@key":"dbtype","$":"postgis"},{"@key":"port","$":5432}]}}}`
	fs.routes["GET /geoserver/rest/workspaces/geonode/datastores/roads/featuretypes.json"] = `{"featureTypes":{"featureType":[{"name":"highways"},{"name":"paths"}]}}`
	fs.routes["GET /geoserver/rest/workspaces/geonode/datastores/roads/featuretypes/highways.json"] = `{"featureType":{"name":"highways","title":"Highways",
		"enabled":true,"advertised":false,"srs":"EPSG:4326",
		"latLonBoundingBox":{"minx":-10,"maxx":10,"miny":-5,"maxy":5,"crs":"EPSG:4326"},
		"nativeBoundingBox":{"minx":-10,"maxx":10,"miny":-5,"maxy":5,"crs":{"@class":"projected","$":"EPSG:4326"}}}}`
	fs.routes["GET /geoserver/rest/workspaces/geonode/datastores/roads/featuretypes/paths.json"] = `{"featureType":{"name":"paths","title":"Paths"}}`

	resources, err := c.ListResources(context.Background(), catalog.ResourceFilter{Workspace: "geonode", Store: "roads"})
	require.NoError(t, err)
	require.Len(t, resources, 2)

	hw := resources[0]
	assert.Equal(t, "geonode:highways", hw.Typename())
	assert.Equal(t, catalog.KindVector, hw.Kind)
	assert.Equal(t, catalog.DataStore, hw.StoreKind)
	assert.Equal(t, catalog.FlagTrue, hw.Enabled)
	assert.Equal(t, catalog.FlagFalse, hw.Advertised)
	require.NotNil(t, hw.NativeBBox)
	assert.Equal(t, "EPSG:4326", hw.NativeBBox.CRS)

	assert.Equal(t, catalog.FlagUnset, resources[1].Advertised)
	assert.True(t, resources[1].Advertised.TrueOrUnset())
}

func TestStoreConnectionParameters(t *testing.T) {
	c, fs := setup(t)
	fs.routes["GET /geoserver/rest/workspaces/geonode/datastores/uploaded.json"] = `{"dataStore":{"name":"uploaded","type":"PostGIS",
		"connectionParameters":{"entry":{"@key":"dbtype","$":"PostGIS"}}}}`

	s, err := c.GetStore(context.Background(), "uploaded", "geonode")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "postgis", s.DBType())
}

func TestEmptyListing(t *testing.T) {
	names, err := decodeListing([]byte(`{"featureTypes":""}`), "featureTypes", "featureType")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestGetLayerResolvesResource(t *testing.T) {
	c, fs := setup(t)
	fs.routes["GET /geoserver/rest/layers/geonode:roads.json"] = `{"layer":{"name":"roads",
		"defaultStyle":{"name":"line"},
		"styles":{"@class":"linked-hash-set","style":{"name":"geonode:roads_alt"}},
		"resource":{"@class":"featureType","name":"geonode:roads","href":"http://gs/geoserver/rest/workspaces/geonode/datastores/shp/featuretypes/roads.json"}}}`
	fs.routes["GET /geoserver/rest/workspaces/geonode/datastores/shp/featuretypes/roads.json"] = `{"featureType":{"name":"roads"}}`

	lyr, err := c.GetLayer(context.Background(), "geonode:roads")
	require.NoError(t, err)
	require.NotNil(t, lyr)
	assert.Equal(t, "line", lyr.DefaultStyle.Name)
	assert.Equal(t, []catalog.StyleRef{{Name: "roads_alt", Workspace: "geonode"}}, lyr.Styles)
	require.NotNil(t, lyr.Resource)
	assert.Equal(t, "shp", lyr.Resource.Store)
}

func TestCreateStyleConflict(t *testing.T) {
	c, fs := setup(t)
	fs.routes["POST /geoserver/rest/styles"] = "Style roads already exists"
	fs.status["POST /geoserver/rest/styles"] = http.StatusForbidden

	err := c.CreateStyle(context.Background(), "roads", "<sld/>")
	assert.True(t, errors.Is(err, catalog.ErrConflict))
	assert.True(t, errors.Is(err, catalog.ErrRequestFailed))
}

func TestCreateFeatureStoreZipsShapefile(t *testing.T) {
	c, fs := setup(t)
	dir := t.TempDir()
	for _, name := range []string{"upload.shp", "upload.shx", "upload.dbf"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	ds, err := catalog.GatherFiles(filepath.Join(dir, "upload.shp"))
	require.NoError(t, err)

	require.NoError(t, c.CreateFeatureStore(context.Background(), "roads", ds, true, "UTF-8"))

	body := fs.bodies["PUT /geoserver/rest/workspaces/geonode/datastores/roads/file.shp"]
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"roads.shp", "roads.shx", "roads.dbf"}, names)

	last := fs.requests[len(fs.requests)-1]
	assert.Equal(t, "overwrite", last.URL.Query().Get("update"))
	assert.Equal(t, "UTF-8", last.URL.Query().Get("charset"))
}

func TestCreateFeatureStoreExisting(t *testing.T) {
	c, fs := setup(t)
	fs.routes["GET /geoserver/rest/workspaces/geonode/datastores/roads.json"] = `{"dataStore":{"name":"roads"}}`

	err := c.CreateFeatureStore(context.Background(), "roads", catalog.Dataset{Base: "roads.shp"}, false, "")
	assert.True(t, errors.Is(err, catalog.ErrConflict))
}

func TestUploadRejected(t *testing.T) {
	c, fs := setup(t)
	dir := t.TempDir()
	tif := filepath.Join(dir, "dem.tif")
	require.NoError(t, os.WriteFile(tif, []byte("II*"), 0o644))
	fs.routes["PUT /geoserver/rest/workspaces/geonode/coveragestores/dem/file.geotiff"] = "bad tiff"
	fs.status["PUT /geoserver/rest/workspaces/geonode/coveragestores/dem/file.geotiff"] = http.StatusInternalServerError

	err := c.CreateCoverageStore(context.Background(), "dem", catalog.Dataset{Base: tif}, true)
	assert.True(t, errors.Is(err, catalog.ErrUpload))
}

func TestConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := New(addr+"/geoserver/rest", "admin", "geoserver", "geonode", time.Second)
	_, err := c.GetLayer(context.Background(), "roads")
	assert.True(t, errors.Is(err, catalog.ErrConnectionRefused))
}

func TestSaveResourceForcesDeclaredProjection(t *testing.T) {
	c, fs := setup(t)
	r := &catalog.Resource{Name: "roads", Workspace: "geonode", Store: "roads", StoreKind: catalog.DataStore,
		Projection: "EPSG:4326", LatLonBBox: &catalog.BBox{MinX: 1, MaxX: 2, MinY: 3, MaxY: 4}}

	require.NoError(t, c.SaveResource(context.Background(), r))
	body := string(fs.bodies["PUT /geoserver/rest/workspaces/geonode/datastores/roads/featuretypes/roads"])
	assert.True(t, strings.Contains(body, `"projectionPolicy":"FORCE_DECLARED"`), body)
	assert.True(t, strings.Contains(body, `"featureType"`), body)
}

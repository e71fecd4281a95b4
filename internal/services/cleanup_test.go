package services

import (
	"context"
	"syscall"
	"testing"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanup(t *testing.T) {
	f := setupService(t)
	f.cat.AddResource(vector("geonode", "roads", "roads"), "polygon")

	require.NoError(t, f.svc.Cleanup(context.Background(), "roads", "abc"))
	assert.False(t, f.cat.HasLayer("roads"))
	assert.False(t, f.cat.HasResource("roads"))
	assert.False(t, f.cat.HasStore("roads"))
	assert.Equal(t, []string{"abc"}, f.metadata.removed)
}

func TestCleanupRefusesWhileRegistered(t *testing.T) {
	f := setupService(t)
	f.cat.AddResource(vector("geonode", "roads", "roads"), "polygon")
	f.localLayer(t, models.Layer{Name: "roads", Workspace: "geonode", Store: "roads"})

	err := f.svc.Cleanup(context.Background(), "roads", "abc")
	assert.ErrorIs(t, err, ErrLocalRecordExists)
	assert.True(t, f.cat.HasLayer("roads"))
	assert.Empty(t, f.metadata.removed)
}

func TestCleanupToleratesFailures(t *testing.T) {
	f := setupService(t)
	f.cat.AddResource(vector("geonode", "roads", "roads"), "polygon")
	f.cat.Failures["DeleteLayer"] = catalog.ErrRequestFailed

	require.NoError(t, f.svc.Cleanup(context.Background(), "roads", ""))
	assert.True(t, f.cat.HasLayer("roads"))
	assert.False(t, f.cat.HasResource("roads"))
	assert.Empty(t, f.metadata.removed)
}

func TestCascadingDeleteStyles(t *testing.T) {
	f := setupService(t)
	f.cat.AddResource(vector("geonode", "roads", "roads"), "point", "roads_custom")

	require.NoError(t, f.svc.CascadingDelete(context.Background(), "geonode:roads"))
	assert.Zero(t, called(f.cat, "DeleteStyle:point"))
	assert.True(t, f.cat.HasStyle("point"))
	assert.False(t, f.cat.HasStyle("roads_custom"))
	assert.False(t, f.cat.HasLayer("roads"))
	assert.False(t, f.cat.HasResource("roads"))
	assert.False(t, f.cat.HasStore("roads"), "an emptied store is removed")
}

func TestCascadingDeleteToleratesSharedStyles(t *testing.T) {
	f := setupService(t)
	f.cat.AddResource(vector("geonode", "roads", "roads"), "shared")
	f.cat.Failures["DeleteStyle:shared"] = catalog.ErrRequestFailed

	require.NoError(t, f.svc.CascadingDelete(context.Background(), "roads"))
	assert.False(t, f.cat.HasResource("roads"))
}

func TestCascadingDeleteStores(t *testing.T) {
	t.Run("database table is dropped and store kept", func(t *testing.T) {
		f := setupService(t)
		f.cat.AddStore(catalog.Store{
			Name: "datastore", Workspace: "geonode", Kind: catalog.DataStore, Type: "PostGIS",
			ConnectionParameters: map[string]string{"dbtype": "PostGIS"},
		})
		f.cat.AddResource(vector("geonode", "datastore", "parcels"), "polygon")

		require.NoError(t, f.svc.CascadingDelete(context.Background(), "parcels"))
		assert.Equal(t, []string{"parcels"}, f.dropper.tables)
		assert.True(t, f.cat.HasStore("datastore"))
	})

	t.Run("shared versioned store is kept", func(t *testing.T) {
		f := setupService(t)
		f.cat.AddStore(catalog.Store{Name: "repo", Workspace: "geonode", Kind: catalog.DataStore, Type: "GeoGig"})
		f.cat.AddResource(vector("geonode", "repo", "history"), "line")

		require.NoError(t, f.svc.CascadingDelete(context.Background(), "history"))
		assert.True(t, f.cat.HasStore("repo"))
		assert.Empty(t, f.dropper.tables)
	})

	t.Run("store with other resources is kept", func(t *testing.T) {
		f := setupService(t)
		f.cat.AddResource(vector("geonode", "files", "a"), "")
		f.cat.AddResource(vector("geonode", "files", "b"), "")

		require.NoError(t, f.svc.CascadingDelete(context.Background(), "a"))
		assert.True(t, f.cat.HasStore("files"))
		assert.True(t, f.cat.HasResource("b"))
	})
}

func TestCascadingDeleteReloadsWhenResourceRefused(t *testing.T) {
	f := setupService(t)
	f.cat.AddResource(vector("geonode", "roads", "roads"), "")
	f.cat.Failures["DeleteResource"] = catalog.ErrRequestFailed

	require.NoError(t, f.svc.CascadingDelete(context.Background(), "roads"))
	assert.Equal(t, 1, f.cat.Reloads)
}

func TestCascadingDeleteNoops(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	assert.NoError(t, f.svc.CascadingDelete(ctx, "nothing"))
	assert.NoError(t, f.svc.CascadingDelete(ctx, "nowhere:roads"))
	assert.Zero(t, called(f.cat, "GetResource:roads"), "unknown workspace stops the lookup")

	f.cat.AddResource(vector("geonode", "orphan", "orphan"), "")
	f.cat.RemoveResource("geonode", "orphan")
	assert.NoError(t, f.svc.CascadingDelete(ctx, "orphan"))

	f.cat.Failures["GetResource"] = &catalog.RequestError{Method: "GET", URL: "/rest", Err: syscall.ECONNREFUSED}
	assert.NoError(t, f.svc.CascadingDelete(ctx, "roads"))

	f.cat.Failures["GetResource"] = &catalog.RequestError{Method: "GET", URL: "/rest", Status: 500}
	assert.ErrorIs(t, f.svc.CascadingDelete(ctx, "roads"), catalog.ErrRequestFailed)
}

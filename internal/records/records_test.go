package records

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/localnerve/layersync/internal/database"
	"github.com/localnerve/layersync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return New(db)
}

func TestGetOrCreateLayer(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	layer, created, err := store.GetOrCreateLayer(ctx, "roads", models.Layer{Workspace: "geonode", Store: "roads", StoreType: "dataStore", Title: "Roads"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "geonode:roads", layer.Typename)
	assert.NotZero(t, layer.ID)

	again, created, err := store.GetOrCreateLayer(ctx, "roads", models.Layer{Workspace: "other", Title: "Ignored"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, layer.ID, again.ID)
	assert.Equal(t, "Roads", again.Title)
}

func TestTypenamesAndScope(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	for _, l := range []models.Layer{
		{Name: "a", Workspace: "ws1", Store: "s1", StoreType: "dataStore"},
		{Name: "b", Workspace: "ws1", Store: "s2", StoreType: "dataStore"},
		{Name: "c", Workspace: "ws2", Store: "s1", StoreType: "coverageStore"},
	} {
		_, _, err := store.GetOrCreateLayer(ctx, l.Name, l)
		require.NoError(t, err)
	}

	names, err := store.Typenames(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 3)
	assert.Contains(t, names, "ws2:c")

	inScope, err := store.LayersInScope(ctx, "ws1", "")
	require.NoError(t, err)
	assert.Len(t, inScope, 2)

	inScope, err = store.LayersInScope(ctx, "", "s1")
	require.NoError(t, err)
	assert.Len(t, inScope, 2)

	inScope, err = store.LayersInScope(ctx, "ws1", "s1")
	require.NoError(t, err)
	require.Len(t, inScope, 1)
	assert.Equal(t, "a", inScope[0].Name)
}

func TestDeleteLayerCascade(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	db := store.DB()

	layer, _, err := store.GetOrCreateLayer(ctx, "roads", models.Layer{Workspace: "geonode", Store: "roads", StoreType: "dataStore", Owner: "admin"})
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Rating{LayerID: layer.ID, UserID: "u1", Rating: 4}).Error)
	require.NoError(t, db.Create(&models.Comment{LayerID: layer.ID, Author: "u1", Body: "nice"}).Error)
	require.NoError(t, store.SetKeywords(ctx, layer, []string{"transport", "roads"}))
	require.NoError(t, store.SetDefaultPermissions(ctx, layer))
	_, _, err = store.GetOrCreateAttribute(ctx, layer.ID, "name", "xsd:string")
	require.NoError(t, err)
	style, err := store.UpsertStyle(ctx, models.Style{Name: "roads_style", SLDBody: "<sld/>"})
	require.NoError(t, err)
	require.NoError(t, store.SetLayerStyles(ctx, layer, style, []models.Style{*style}))

	require.NoError(t, store.DeleteLayerCascade(ctx, layer))

	var count int64
	for _, m := range []any{&models.Layer{}, &models.Rating{}, &models.Comment{}, &models.Attribute{}, &models.LayerPermission{}} {
		require.NoError(t, db.Model(m).Count(&count).Error)
		assert.Zero(t, count, "%T should be empty", m)
	}
	require.NoError(t, db.Table("layer_keywords").Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, db.Table("layer_styles").Count(&count).Error)
	assert.Zero(t, count)

	// tags and styles are shared and survive
	require.NoError(t, db.Model(&models.Tag{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
	_, err = store.GetStyle(ctx, "roads_style")
	assert.NoError(t, err)

	assert.True(t, errors.Is(store.DeleteLayerCascade(ctx, layer), ErrNotFound))
}

func TestSetDefaultPermissions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	layer, _, err := store.GetOrCreateLayer(ctx, "roads", models.Layer{Workspace: "geonode", Store: "roads", StoreType: "dataStore", Owner: "alex"})
	require.NoError(t, err)
	require.NoError(t, store.SetDefaultPermissions(ctx, layer))
	require.NoError(t, store.SetDefaultPermissions(ctx, layer))

	perms, err := store.Permissions(ctx, layer.ID)
	require.NoError(t, err)
	assert.Len(t, perms, len(AnonymousPermissions)+len(OwnerPermissions))
}

func TestUpsertStyle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.UpsertStyle(ctx, models.Style{Name: "roads", SLDTitle: "Roads", SLDBody: "<a/>"})
	require.NoError(t, err)
	second, err := store.UpsertStyle(ctx, models.Style{Name: "roads", SLDTitle: "Roads v2", SLDBody: "<b/>"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	loaded, err := store.GetStyle(ctx, "roads")
	require.NoError(t, err)
	assert.Equal(t, "Roads v2", loaded.SLDTitle)
	assert.Equal(t, "<b/>", loaded.SLDBody)
}

func TestUpdateStyle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.UpsertStyle(ctx, models.Style{Name: "roads", SLDTitle: "Roads", SLDBody: "<a/>"})
	require.NoError(t, err)

	_, err = store.UpdateStyle(ctx, "roads", "", "<b/>", "http://gs/styles/roads.sld")
	require.NoError(t, err)
	loaded, err := store.GetStyle(ctx, "roads")
	require.NoError(t, err)
	assert.Equal(t, "Roads", loaded.SLDTitle)
	assert.Equal(t, "<b/>", loaded.SLDBody)
	assert.Equal(t, "http://gs/styles/roads.sld", loaded.SLDURL)

	_, err = store.UpdateStyle(ctx, "missing", "Missing", "<c/>", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetStyle(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddAndDeleteStyle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	layer, _, err := store.GetOrCreateLayer(ctx, "roads", models.Layer{Workspace: "geonode", Store: "roads", StoreType: "dataStore"})
	require.NoError(t, err)
	style, err := store.UpsertStyle(ctx, models.Style{Name: "roads_red"})
	require.NoError(t, err)

	require.NoError(t, store.AddStyleToLayer(ctx, style, "geonode:roads"))
	styles, err := store.LayerStyles(ctx, layer)
	require.NoError(t, err)
	require.Len(t, styles, 1)

	assert.True(t, errors.Is(store.AddStyleToLayer(ctx, style, "geonode:missing"), ErrNotFound))

	require.NoError(t, store.DeleteStyle(ctx, "roads_red"))
	styles, err = store.LayerStyles(ctx, layer)
	require.NoError(t, err)
	assert.Empty(t, styles)
	assert.True(t, errors.Is(store.DeleteStyle(ctx, "roads_red"), ErrNotFound))
}

func TestAttributes(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	layer, _, err := store.GetOrCreateLayer(ctx, "roads", models.Layer{Workspace: "geonode", Store: "roads", StoreType: "dataStore"})
	require.NoError(t, err)

	attr, created, err := store.GetOrCreateAttribute(ctx, layer.ID, "lanes", "xsd:int")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "NA", attr.Min)

	_, created, err = store.GetOrCreateAttribute(ctx, layer.ID, "lanes", "xsd:int")
	require.NoError(t, err)
	assert.False(t, created)

	count, err := store.CountAttributes(ctx, layer.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, store.DeleteAttribute(ctx, attr))
	count, err = store.CountAttributes(ctx, layer.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/catalog/catalogtest"
	"github.com/localnerve/layersync/internal/database"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/localnerve/layersync/internal/models"
	"github.com/localnerve/layersync/internal/ogc"
	"github.com/localnerve/layersync/internal/records"
	"github.com/localnerve/layersync/internal/wps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeDiscoverer struct {
	fields map[string][]ogc.Field
}

func (f *fakeDiscoverer) Discover(_ context.Context, t ogc.Target) []ogc.Field {
	return f.fields[t.Typename]
}

type fakeStats struct {
	calls []string
	err   error
}

func (f *fakeStats) AttributeStatistics(_ context.Context, typename, field string) (*wps.Statistics, error) {
	f.calls = append(f.calls, typename+"/"+field)
	if f.err != nil {
		return nil, f.err
	}
	return &wps.Statistics{Count: 10, Min: "1", Max: "9", Average: "5", Median: "5", StdDev: "2.5", Sum: "50"}, nil
}

type fakeDropper struct {
	tables []string
}

func (f *fakeDropper) DropGeometryTable(_ context.Context, table string) error {
	f.tables = append(f.tables, table)
	return nil
}

type fakeMetadata struct {
	removed []string
}

func (f *fakeMetadata) RemoveRecord(_ context.Context, uuid string) error {
	f.removed = append(f.removed, uuid)
	return nil
}

type fakeCoverages struct{}

func (fakeCoverages) GridExtent(_ context.Context, workspace, name string) ([]int, error) {
	return []int{100, 200}, nil
}

type fixture struct {
	svc      *Service
	cat      *catalogtest.Catalog
	store    *records.Store
	discover *fakeDiscoverer
	stats    *fakeStats
	dropper  *fakeDropper
	metadata *fakeMetadata
}

func setupService(t *testing.T, mods ...func(*Options)) *fixture {
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

	f := &fixture{
		cat:      catalogtest.New(),
		store:    records.New(db),
		discover: &fakeDiscoverer{fields: map[string][]ogc.Field{}},
		stats:    &fakeStats{},
		dropper:  &fakeDropper{},
		metadata: &fakeMetadata{},
	}
	n := 0
	opts := Options{
		Catalog:    f.cat,
		Records:    f.store,
		Discoverer: f.discover,
		Stats:      f.stats,
		Dropper:    f.dropper,
		Metadata:   f.metadata,
		Coverages:  fakeCoverages{},
		Log:        logging.Discard(),
		NewUUID: func() string {
			n++
			return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
		},
	}
	for _, mod := range mods {
		mod(&opts)
	}
	f.svc = New(opts)
	return f
}

func (f *fixture) localLayer(t *testing.T, l models.Layer) *models.Layer {
	t.Helper()
	if l.StoreType == "" {
		l.StoreType = string(catalog.DataStore)
	}
	layer, created, err := f.store.GetOrCreateLayer(context.Background(), l.Name, l)
	require.NoError(t, err)
	require.True(t, created)
	return layer
}

func vector(ws, store, name string) catalog.Resource {
	return catalog.Resource{
		Name:       name,
		Workspace:  ws,
		Store:      store,
		Kind:       catalog.KindVector,
		Title:      strings.ToUpper(name[:1]) + name[1:],
		Enabled:    catalog.FlagTrue,
		Projection: "EPSG:4326",
		LatLonBBox: &catalog.BBox{MinX: -10, MaxX: 10, MinY: -5, MaxY: 5, CRS: "EPSG:4326"},
	}
}

func called(cat *catalogtest.Catalog, prefix string) int {
	n := 0
	for _, c := range cat.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func TestReconcileCreatesThenUpdates(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	r := vector("geonode", "roads", "roads")
	r.Keywords = []string{"transport", "network"}
	f.cat.AddResource(r, "line", "roads_alt")
	f.discover.fields["geonode:roads"] = []ogc.Field{
		{Name: "the_geom", Type: "gml:MultiLineStringPropertyType"},
		{Name: "name", Type: "xsd:string"},
		{Name: "lanes", Type: "xsd:int"},
		{Name: "id", Type: "xsd:long"},
	}

	var progress []string
	report, err := f.svc.Reconcile(ctx, SyncOptions{
		Owner: "alice",
		Progress: func(item ItemStatus, index, total int) {
			progress = append(progress, fmt.Sprintf("[%s] %s (%d/%d)", item.Status, item.Name, index, total))
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, []string{"[created] roads (1/1)"}, progress)

	layer, err := f.store.GetLayer(ctx, "roads")
	require.NoError(t, err)
	assert.Equal(t, "geonode:roads", layer.Typename)
	assert.Equal(t, "Roads", layer.Title)
	assert.Equal(t, NoAbstract, layer.Abstract)
	assert.Equal(t, "alice", layer.Owner)
	assert.Equal(t, "EPSG:4326", layer.SRID)
	assert.Equal(t, "-10", layer.BBoxX0.String())
	assert.Equal(t, "5", layer.BBoxY1.String())
	require.NotNil(t, layer.DefaultStyle)
	assert.Equal(t, "line", layer.DefaultStyle.Name)
	assert.Len(t, layer.Styles, 2)

	attrs, err := f.store.Attributes(ctx, layer.ID)
	require.NoError(t, err)
	require.Len(t, attrs, 4)
	assert.Equal(t, "the_geom", attrs[0].Attribute)
	assert.False(t, attrs[0].Visible)
	assert.Equal(t, "The_Geom", attrs[0].AttributeLabel)
	assert.Equal(t, "lanes", attrs[2].Attribute)
	assert.Equal(t, int64(10), attrs[2].Count)
	assert.Equal(t, "9", attrs[2].Max)
	assert.Equal(t, "NA", attrs[3].Max, "identifiers get no statistics")
	assert.Equal(t, []string{"geonode:roads/lanes"}, f.stats.calls)

	perms, err := f.store.Permissions(ctx, layer.ID)
	require.NoError(t, err)
	assert.Len(t, perms, len(records.AnonymousPermissions)+len(records.OwnerPermissions))

	keywords := f.store.DB().Model(layer).Association("Keywords").Count()
	assert.Equal(t, int64(2), keywords)

	report, err = f.svc.Reconcile(ctx, SyncOptions{Owner: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, StatusUpdated, report.Layers[0].Status)

	runs, err := f.store.LatestSyncRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	var stored SyncReport
	require.NoError(t, runs[0].Report.Decode(&stored))
	assert.Equal(t, 1, stored.Updated)
	assert.Equal(t, "alice", runs[0].Owner)
}

func TestReconcileFilters(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	f.cat.AddResource(vector("geonode", "s", "rivers"), "")
	f.cat.AddResource(vector("geonode", "s", "roads"), "")
	disabled := vector("geonode", "s", "roads_disabled")
	disabled.Enabled = catalog.FlagFalse
	f.cat.AddResource(disabled, "")
	hidden := vector("geonode", "s", "roads_hidden")
	hidden.Advertised = catalog.FlagFalse
	f.cat.AddResource(hidden, "")

	report, err := f.svc.Reconcile(ctx, SyncOptions{Filter: "roads", SkipUnadvertised: true})
	require.NoError(t, err)
	require.Len(t, report.Layers, 1)
	assert.Equal(t, "roads", report.Layers[0].Name)

	report, err = f.svc.Reconcile(ctx, SyncOptions{Filter: "roads"})
	require.NoError(t, err)
	assert.Len(t, report.Layers, 2, "unadvertised layers are kept unless skipped")
}

func TestReconcileSkipRegistered(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	f.cat.AddResource(vector("geonode", "a", "a"), "")
	f.cat.AddResource(vector("geonode", "b", "b"), "")
	f.localLayer(t, models.Layer{Name: "a", Workspace: "geonode", Store: "a"})

	report, err := f.svc.Reconcile(ctx, SyncOptions{SkipRegistered: true})
	require.NoError(t, err)
	require.Len(t, report.Layers, 1)
	assert.Equal(t, "b", report.Layers[0].Name)
	assert.Equal(t, 1, report.Created)
	assert.Equal(t, 0, report.Updated)
}

func TestReconcileUnknownScopeIsEmpty(t *testing.T) {
	f := setupService(t)
	f.cat.AddResource(vector("geonode", "a", "a"), "")

	report, err := f.svc.Reconcile(context.Background(), SyncOptions{Workspace: "nowhere"})
	require.NoError(t, err)
	assert.Empty(t, report.Layers)

	report, err = f.svc.Reconcile(context.Background(), SyncOptions{Workspace: "geonode", Store: "missing"})
	require.NoError(t, err)
	assert.Empty(t, report.Layers)
}

func TestReconcileRemoveDeleted(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	f.localLayer(t, models.Layer{Name: "A", Workspace: "ws1", Store: "store1"})
	b := f.localLayer(t, models.Layer{Name: "B", Workspace: "ws1", Store: "store1"})
	require.NoError(t, f.store.DB().Create(&models.Rating{LayerID: b.ID, UserID: "u1", Rating: 4}).Error)
	require.NoError(t, f.store.DB().Create(&models.Comment{LayerID: b.ID, Author: "u1", Body: "nice"}).Error)
	f.cat.AddResource(vector("ws1", "store1", "A"), "")

	report, err := f.svc.Reconcile(ctx, SyncOptions{RemoveDeleted: true, Workspace: "ws1", Store: "store1"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Deleted)
	require.Len(t, report.DeletedLayers, 1)
	assert.Equal(t, ItemStatus{Name: "B", Status: StatusDeleteSucceeded}, report.DeletedLayers[0])

	_, err = f.store.GetLayer(ctx, "B")
	assert.ErrorIs(t, err, records.ErrNotFound)
	_, err = f.store.GetLayer(ctx, "A")
	assert.NoError(t, err)

	var ratings int64
	f.store.DB().Model(&models.Rating{}).Where("layer_id = ?", b.ID).Count(&ratings)
	assert.Zero(t, ratings)
}

func TestReconcileRemoveDeletedMatchesStoreExactly(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	f.localLayer(t, models.Layer{Name: "a", Workspace: "geonode", Store: "old"})
	f.cat.AddResource(vector("geonode", "new", "a"), "")

	report, err := f.svc.Reconcile(ctx, SyncOptions{RemoveDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Deleted)
	require.Len(t, report.DeletedLayers, 1)
	assert.Equal(t, "a", report.DeletedLayers[0].Name)
}

func TestReconcileFailures(t *testing.T) {
	sameUUID := func(o *Options) {
		o.NewUUID = func() string { return "11111111-1111-1111-1111-111111111111" }
	}

	t.Run("ignored", func(t *testing.T) {
		f := setupService(t, sameUUID)
		f.localLayer(t, models.Layer{Name: "x", Workspace: "elsewhere", Store: "x", UUID: "11111111-1111-1111-1111-111111111111"})
		f.cat.AddResource(vector("geonode", "a", "a"), "")
		f.cat.AddResource(vector("geonode", "b", "b"), "")

		report, err := f.svc.Reconcile(context.Background(), SyncOptions{IgnoreErrors: true})
		require.NoError(t, err)
		assert.Equal(t, 2, report.Failed)
		for _, item := range report.Layers {
			assert.Equal(t, StatusFailed, item.Status)
			assert.NotEmpty(t, item.Error)
			assert.NotEmpty(t, item.ExceptionType)
			assert.NotContains(t, item.ExceptionType, "withStack")
			assert.Contains(t, item.Traceback, "syncResource")
		}
	})

	t.Run("aborts", func(t *testing.T) {
		f := setupService(t, sameUUID)
		f.localLayer(t, models.Layer{Name: "x", Workspace: "elsewhere", Store: "x", UUID: "11111111-1111-1111-1111-111111111111"})
		f.cat.AddResource(vector("geonode", "a", "a"), "")
		f.cat.AddResource(vector("geonode", "b", "b"), "")

		report, err := f.svc.Reconcile(context.Background(), SyncOptions{})
		assert.Error(t, err)
		assert.Nil(t, report)
		assert.Contains(t, err.Error(), "sync layer a")
	})
}

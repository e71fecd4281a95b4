// Package catalogtest provides an in-memory catalog.Catalog for tests.
package catalogtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/localnerve/layersync/internal/catalog"
)

// DefaultWorkspace is where uploads land.
const DefaultWorkspace = "geonode"

// Catalog is an in-memory catalog. Creating a store from an upload also creates
// the resource and its layer, as the real server does.
type Catalog struct {
	mu sync.Mutex

	workspaces map[string]bool
	stores     map[string]*catalog.Store
	resources  map[string]*catalog.Resource
	layers     map[string]*catalog.Layer
	styles     map[string]*catalog.Style

	// UploadBBox is the native bbox given to uploaded resources.
	UploadBBox catalog.BBox
	// UploadDefaultStyle is assigned as the default style of uploaded layers.
	UploadDefaultStyle string
	// Failures makes the named operation (or "Op:name") return the error.
	Failures map[string]error

	Calls   []string
	Reloads int
}

// New returns an empty catalog with the default workspace.
func New() *Catalog {
	return &Catalog{
		workspaces:         map[string]bool{DefaultWorkspace: true},
		stores:             map[string]*catalog.Store{},
		resources:          map[string]*catalog.Resource{},
		layers:             map[string]*catalog.Layer{},
		styles:             map[string]*catalog.Style{},
		UploadBBox:         catalog.BBox{MinX: -10, MaxX: 10, MinY: -5, MaxY: 5, CRS: "EPSG:4326"},
		UploadDefaultStyle: "polygon",
		Failures:           map[string]error{},
	}
}

func key(ws, name string) string { return ws + ":" + name }

func (c *Catalog) fail(op, name string) error {
	c.Calls = append(c.Calls, op+":"+name)
	if err, ok := c.Failures[op+":"+name]; ok {
		return err
	}
	return c.Failures[op]
}

// AddStore registers a store.
func (c *Catalog) AddStore(s catalog.Store) *catalog.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workspaces[s.Workspace] = true
	cp := s
	c.stores[key(s.Workspace, s.Name)] = &cp
	return &cp
}

// AddResource registers a resource and a layer over it, creating the store
// when needed.
func (c *Catalog) AddResource(r catalog.Resource, defaultStyle string, styles ...string) *catalog.Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.workspaces[r.Workspace] = true
	if r.StoreKind == "" {
		r.StoreKind = catalog.StoreKindFor(r.Kind)
	}
	if _, ok := c.stores[key(r.Workspace, r.Store)]; !ok {
		c.stores[key(r.Workspace, r.Store)] = &catalog.Store{Name: r.Store, Workspace: r.Workspace, Kind: r.StoreKind, Enabled: true}
	}
	cp := r
	c.resources[key(r.Workspace, r.Name)] = &cp
	c.addLayer(&cp, defaultStyle, styles)
	return &cp
}

func (c *Catalog) addLayer(r *catalog.Resource, defaultStyle string, styles []string) {
	lyr := &catalog.Layer{Name: r.Name, Resource: r}
	if defaultStyle != "" {
		lyr.DefaultStyle = &catalog.StyleRef{Name: defaultStyle}
		if _, ok := c.styles[defaultStyle]; !ok {
			c.styles[defaultStyle] = &catalog.Style{Name: defaultStyle, Title: defaultStyle, Body: "<sld/>"}
		}
	}
	for _, s := range styles {
		lyr.Styles = append(lyr.Styles, catalog.StyleRef{Name: s})
		if _, ok := c.styles[s]; !ok {
			c.styles[s] = &catalog.Style{Name: s, Title: s, Body: "<sld/>"}
		}
	}
	c.layers[r.Name] = lyr
}

// AddStyle registers a style document.
func (c *Catalog) AddStyle(s catalog.Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := s
	c.styles[s.Name] = &cp
}

// HasStore reports whether a store with the name exists in any workspace.
func (c *Catalog) HasStore(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.stores {
		if s.Name == name {
			return true
		}
	}
	return false
}

// HasResource reports whether a resource with the name exists in any workspace.
func (c *Catalog) HasResource(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findResource(name, "", "") != nil
}

// HasLayer reports whether a layer with the name exists.
func (c *Catalog) HasLayer(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.layers[name]
	return ok
}

// HasStyle reports whether a style with the name exists.
func (c *Catalog) HasStyle(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.styles[name]
	return ok
}

// RemoveResource drops a resource and its layer without recording a call.
func (c *Catalog) RemoveResource(ws, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.resources, key(ws, name))
	delete(c.layers, name)
}

func (c *Catalog) GetWorkspace(_ context.Context, name string) (*catalog.Workspace, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("GetWorkspace", name); err != nil {
		return nil, err
	}
	if !c.workspaces[name] {
		return nil, nil
	}
	return &catalog.Workspace{Name: name}, nil
}

func (c *Catalog) ListStores(_ context.Context, workspace string) ([]catalog.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("ListStores", workspace); err != nil {
		return nil, err
	}
	var out []catalog.Store
	for _, s := range c.stores {
		if workspace == "" || s.Workspace == workspace {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i].Workspace, out[i].Name) < key(out[j].Workspace, out[j].Name) })
	return out, nil
}

func (c *Catalog) GetStore(_ context.Context, name, workspace string) (*catalog.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("GetStore", name); err != nil {
		return nil, err
	}
	if workspace == "" {
		workspace = DefaultWorkspace
	}
	s, ok := c.stores[key(workspace, name)]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (c *Catalog) ListResources(_ context.Context, filter catalog.ResourceFilter) ([]catalog.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("ListResources", filter.Workspace+"/"+filter.Store); err != nil {
		return nil, err
	}
	var out []catalog.Resource
	for _, r := range c.resources {
		if filter.Workspace != "" && r.Workspace != filter.Workspace {
			continue
		}
		if filter.Store != "" && r.Store != filter.Store {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Typename() < out[j].Typename() })
	return out, nil
}

func (c *Catalog) findResource(name, workspace, store string) *catalog.Resource {
	for _, r := range c.resources {
		if r.Name != name {
			continue
		}
		if workspace != "" && r.Workspace != workspace {
			continue
		}
		if store != "" && r.Store != store {
			continue
		}
		return r
	}
	return nil
}

func (c *Catalog) GetResource(_ context.Context, name, workspace, store string) (*catalog.Resource, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("GetResource", name); err != nil {
		return nil, err
	}
	r := c.findResource(name, workspace, store)
	if r == nil {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (c *Catalog) GetLayer(_ context.Context, name string) (*catalog.Layer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("GetLayer", name); err != nil {
		return nil, err
	}
	l, ok := c.layers[name]
	if !ok {
		return nil, nil
	}
	cp := *l
	cp.Styles = append([]catalog.StyleRef(nil), l.Styles...)
	return &cp, nil
}

func (c *Catalog) GetStyle(_ context.Context, name string) (*catalog.Style, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("GetStyle", name); err != nil {
		return nil, err
	}
	s, ok := c.styles[name]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (c *Catalog) upload(store *catalog.Store, name string, kind catalog.ResourceKind) {
	bbox := c.UploadBBox
	r := &catalog.Resource{
		Name:       name,
		Workspace:  store.Workspace,
		Store:      store.Name,
		StoreKind:  store.Kind,
		Kind:       kind,
		Title:      name,
		Enabled:    catalog.FlagTrue,
		Advertised: catalog.FlagTrue,
		Projection: bbox.CRS,
		NativeBBox: &bbox,
	}
	if bbox.CRS == "EPSG:4326" {
		ll := bbox
		r.LatLonBBox = &ll
	}
	c.resources[key(store.Workspace, name)] = r
	c.addLayer(r, c.UploadDefaultStyle, nil)
}

func (c *Catalog) CreateFeatureStore(_ context.Context, name string, data catalog.Dataset, overwrite bool, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("CreateFeatureStore", name); err != nil {
		return err
	}
	if _, ok := c.stores[key(DefaultWorkspace, name)]; ok && !overwrite {
		return fmt.Errorf("store %s exists: %w", name, catalog.ErrConflict)
	}
	s := &catalog.Store{Name: name, Workspace: DefaultWorkspace, Kind: catalog.DataStore, Type: "Shapefile", Enabled: true}
	c.stores[key(DefaultWorkspace, name)] = s
	c.upload(s, name, catalog.KindVector)
	return nil
}

func (c *Catalog) CreateCoverageStore(_ context.Context, name string, data catalog.Dataset, overwrite bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("CreateCoverageStore", name); err != nil {
		return err
	}
	if _, ok := c.stores[key(DefaultWorkspace, name)]; ok && !overwrite {
		return fmt.Errorf("store %s exists: %w", name, catalog.ErrConflict)
	}
	s := &catalog.Store{Name: name, Workspace: DefaultWorkspace, Kind: catalog.CoverageStore, Type: "GeoTIFF", Enabled: true}
	c.stores[key(DefaultWorkspace, name)] = s
	c.upload(s, name, catalog.KindRaster)
	return nil
}

func (c *Catalog) CreateDatastore(_ context.Context, name string, params map[string]string) (*catalog.Store, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("CreateDatastore", name); err != nil {
		return nil, err
	}
	s := &catalog.Store{Name: name, Workspace: DefaultWorkspace, Kind: catalog.DataStore, Type: "PostGIS", Enabled: true, ConnectionParameters: params}
	c.stores[key(DefaultWorkspace, name)] = s
	cp := *s
	return &cp, nil
}

func (c *Catalog) AddDataToStore(_ context.Context, store *catalog.Store, name string, _ catalog.Dataset, overwrite bool, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("AddDataToStore", name); err != nil {
		return err
	}
	if _, ok := c.resources[key(store.Workspace, name)]; ok && !overwrite {
		return fmt.Errorf("resource %s exists: %w", name, catalog.ErrConflict)
	}
	c.upload(store, name, catalog.KindVector)
	return nil
}

func (c *Catalog) CreateStyle(_ context.Context, name, sld string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("CreateStyle", name); err != nil {
		return err
	}
	if _, ok := c.styles[name]; ok {
		return fmt.Errorf("style %s exists: %w", name, catalog.ErrConflict)
	}
	c.styles[name] = &catalog.Style{Name: name, Title: name, Body: sld}
	return nil
}

func (c *Catalog) SaveResource(_ context.Context, r *catalog.Resource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("SaveResource", r.Name); err != nil {
		return err
	}
	cp := *r
	c.resources[key(r.Workspace, r.Name)] = &cp
	if l, ok := c.layers[r.Name]; ok {
		l.Resource = &cp
	}
	return nil
}

func (c *Catalog) SaveLayer(_ context.Context, l *catalog.Layer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("SaveLayer", l.Name); err != nil {
		return err
	}
	cp := *l
	c.layers[l.Name] = &cp
	return nil
}

func (c *Catalog) DeleteLayer(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("DeleteLayer", name); err != nil {
		return err
	}
	delete(c.layers, name)
	return nil
}

func (c *Catalog) DeleteStyle(_ context.Context, name string, _ bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("DeleteStyle", name); err != nil {
		return err
	}
	delete(c.styles, name)
	return nil
}

func (c *Catalog) DeleteResource(_ context.Context, r *catalog.Resource) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("DeleteResource", r.Name); err != nil {
		return err
	}
	delete(c.resources, key(r.Workspace, r.Name))
	return nil
}

func (c *Catalog) DeleteStore(_ context.Context, s *catalog.Store, recurse bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail("DeleteStore", s.Name); err != nil {
		return err
	}
	for k, r := range c.resources {
		if r.Workspace == s.Workspace && r.Store == s.Name {
			if !recurse {
				return fmt.Errorf("store %s is not empty: %w", s.Name, catalog.ErrRequestFailed)
			}
			delete(c.resources, k)
			delete(c.layers, r.Name)
		}
	}
	delete(c.stores, key(s.Workspace, s.Name))
	return nil
}

func (c *Catalog) Reload(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Reloads++
	return c.fail("Reload", "")
}

var _ catalog.Catalog = (*Catalog)(nil)

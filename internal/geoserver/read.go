package geoserver

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/localnerve/layersync/internal/catalog"
)

// collection describes one class of store and the resources it holds.
type collection struct {
	kind         catalog.StoreKind
	path         string
	outer        string
	inner        string
	resourceKind catalog.ResourceKind
	resPath      string
	resOuter     string
	resInner     string
}

var collections = []collection{
	{catalog.DataStore, "datastores", "dataStores", "dataStore", catalog.KindVector, "featuretypes", "featureTypes", "featureType"},
	{catalog.CoverageStore, "coveragestores", "coverageStores", "coverageStore", catalog.KindRaster, "coverages", "coverages", "coverage"},
	{catalog.WMSStore, "wmsstores", "wmsStores", "wmsStore", catalog.KindVector, "wmslayers", "wmsLayers", "wmsLayer"},
}

func collectionFor(kind catalog.StoreKind) collection {
	for _, c := range collections {
		if c.kind == kind {
			return c
		}
	}
	return collections[0]
}

func collectionByPath(path string) (collection, bool) {
	for _, c := range collections {
		if c.path == path {
			return c, true
		}
	}
	return collection{}, false
}

// GetWorkspace returns the workspace or nil when it does not exist.
func (c *Client) GetWorkspace(ctx context.Context, name string) (*catalog.Workspace, error) {
	var out struct {
		Workspace named `json:"workspace"`
	}
	found, err := c.getJSON(ctx, "/workspaces/"+esc(name)+".json", &out)
	if err != nil || !found {
		return nil, err
	}
	return &catalog.Workspace{Name: out.Workspace.Name}, nil
}

func (c *Client) workspaces(ctx context.Context) ([]string, error) {
	body, _, err := c.do(ctx, request{method: http.MethodGet, path: "/workspaces.json"})
	if err != nil {
		return nil, err
	}
	return decodeListing(body, "workspaces", "workspace")
}

// ListStores lists every store of the workspace, or of all workspaces when
// workspace is empty.
func (c *Client) ListStores(ctx context.Context, workspace string) ([]catalog.Store, error) {
	spaces := []string{workspace}
	if workspace == "" {
		var err error
		if spaces, err = c.workspaces(ctx); err != nil {
			return nil, err
		}
	}

	var stores []catalog.Store
	for _, ws := range spaces {
		for _, coll := range collections {
			body, found, err := c.do(ctx, request{method: http.MethodGet, path: "/workspaces/" + esc(ws) + "/" + coll.path + ".json"})
			if err != nil {
				return nil, err
			}
			if !found {
				continue
			}
			names, err := decodeListing(body, coll.outer, coll.inner)
			if err != nil {
				return nil, err
			}
			for _, name := range names {
				s, err := c.getStoreIn(ctx, ws, coll, name)
				if err != nil {
					return nil, err
				}
				if s != nil {
					stores = append(stores, *s)
				}
			}
		}
	}
	return stores, nil
}

func (c *Client) getStoreIn(ctx context.Context, ws string, coll collection, name string) (*catalog.Store, error) {
	var out map[string]storeJSON
	found, err := c.getJSON(ctx, "/workspaces/"+esc(ws)+"/"+coll.path+"/"+esc(name)+".json", &out)
	if err != nil || !found {
		return nil, err
	}
	s, ok := out[coll.inner]
	if !ok {
		return nil, nil
	}
	return &catalog.Store{
		Name:                 s.Name,
		Workspace:            ws,
		Kind:                 coll.kind,
		Type:                 s.Type,
		Enabled:              s.Enabled,
		ConnectionParameters: s.ConnectionParameters.toMap(),
	}, nil
}

// GetStore finds a store of any class by name. An empty workspace means the
// default workspace.
func (c *Client) GetStore(ctx context.Context, name, workspace string) (*catalog.Store, error) {
	if workspace == "" {
		workspace = c.workspace
	}
	for _, coll := range collections {
		s, err := c.getStoreIn(ctx, workspace, coll, name)
		if err != nil || s != nil {
			return s, err
		}
	}
	return nil, nil
}

// storesFor resolves the stores a resource filter covers.
func (c *Client) storesFor(ctx context.Context, filter catalog.ResourceFilter) ([]catalog.Store, error) {
	if filter.Store != "" && filter.Workspace != "" {
		s, err := c.GetStore(ctx, filter.Store, filter.Workspace)
		if err != nil || s == nil {
			return nil, err
		}
		return []catalog.Store{*s}, nil
	}
	all, err := c.ListStores(ctx, filter.Workspace)
	if err != nil || filter.Store == "" {
		return all, err
	}
	var out []catalog.Store
	for _, s := range all {
		if s.Name == filter.Store {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Client) resourceNames(ctx context.Context, s *catalog.Store) ([]string, error) {
	coll := collectionFor(s.Kind)
	path := "/workspaces/" + esc(s.Workspace) + "/" + coll.path + "/" + esc(s.Name) + "/" + coll.resPath + ".json"
	body, found, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil || !found {
		return nil, err
	}
	return decodeListing(body, coll.resOuter, coll.resInner)
}

// ListResources lists the resources in every store the filter covers.
func (c *Client) ListResources(ctx context.Context, filter catalog.ResourceFilter) ([]catalog.Resource, error) {
	stores, err := c.storesFor(ctx, filter)
	if err != nil {
		return nil, err
	}
	var resources []catalog.Resource
	for i := range stores {
		names, err := c.resourceNames(ctx, &stores[i])
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			r, err := c.getResourceIn(ctx, &stores[i], name)
			if err != nil {
				return nil, err
			}
			if r != nil {
				resources = append(resources, *r)
			}
		}
	}
	return resources, nil
}

func (c *Client) getResourceIn(ctx context.Context, s *catalog.Store, name string) (*catalog.Resource, error) {
	coll := collectionFor(s.Kind)
	path := "/workspaces/" + esc(s.Workspace) + "/" + coll.path + "/" + esc(s.Name) + "/" + coll.resPath + "/" + esc(name) + ".json"
	var out map[string]resourceJSON
	found, err := c.getJSON(ctx, path, &out)
	if err != nil || !found {
		return nil, err
	}
	r, ok := out[coll.resInner]
	if !ok {
		return nil, nil
	}
	return &catalog.Resource{
		Name:       r.Name,
		Workspace:  s.Workspace,
		Store:      s.Name,
		StoreKind:  s.Kind,
		Kind:       coll.resourceKind,
		Title:      r.Title,
		Abstract:   r.Abstract,
		Keywords:   r.keywords(),
		Enabled:    flagOf(r.Enabled),
		Advertised: flagOf(r.Advertised),
		Projection: r.SRS,
		NativeBBox: r.NativeBoundingBox.toBBox(),
		LatLonBBox: r.LatLonBoundingBox.toBBox(),
	}, nil
}

// GetResource finds a resource by name. Without a store it resolves through
// the layer of the same name, then falls back to scanning stores.
func (c *Client) GetResource(ctx context.Context, name, workspace, store string) (*catalog.Resource, error) {
	if store == "" {
		qualified := name
		if workspace != "" {
			qualified = workspace + ":" + name
		}
		lyr, err := c.GetLayer(ctx, qualified)
		if err != nil {
			return nil, err
		}
		if lyr != nil && lyr.Resource != nil && (workspace == "" || lyr.Resource.Workspace == workspace) {
			return lyr.Resource, nil
		}
	}

	stores, err := c.storesFor(ctx, catalog.ResourceFilter{Workspace: workspace, Store: store})
	if err != nil {
		return nil, err
	}
	for i := range stores {
		names, err := c.resourceNames(ctx, &stores[i])
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			if n == name {
				return c.getResourceIn(ctx, &stores[i], name)
			}
		}
	}
	return nil, nil
}

// resourceFromHref loads the resource a layer's href points at:
// .../workspaces/{ws}/{stores}/{store}/{resources}/{name}.json
func (c *Client) resourceFromHref(ctx context.Context, href string) (*catalog.Resource, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p != "workspaces" || i+5 >= len(parts) {
			continue
		}
		coll, ok := collectionByPath(parts[i+2])
		if !ok {
			return nil, nil
		}
		ws, _ := url.PathUnescape(parts[i+1])
		store, _ := url.PathUnescape(parts[i+3])
		name, _ := url.PathUnescape(strings.TrimSuffix(parts[i+5], ".json"))
		return c.getResourceIn(ctx, &catalog.Store{Name: store, Workspace: ws, Kind: coll.kind}, name)
	}
	return nil, nil
}

// GetLayer returns the layer, its styles and its resource.
func (c *Client) GetLayer(ctx context.Context, name string) (*catalog.Layer, error) {
	var out struct {
		Layer layerJSON `json:"layer"`
	}
	found, err := c.getJSON(ctx, "/layers/"+esc(name)+".json", &out)
	if err != nil || !found {
		return nil, err
	}

	lyr := &catalog.Layer{Name: out.Layer.Name}
	if ds := out.Layer.DefaultStyle; ds != nil && ds.Name != "" {
		ws, local := splitQualified(ds.Name)
		if ds.Workspace != "" {
			ws = ds.Workspace
		}
		lyr.DefaultStyle = &catalog.StyleRef{Name: local, Workspace: ws}
	}
	if out.Layer.Styles != nil {
		refs, err := decodeOneOrMany[styleRefJSON](out.Layer.Styles.Style)
		if err != nil {
			return nil, err
		}
		for _, ref := range refs {
			ws, local := splitQualified(ref.Name)
			if ref.Workspace != "" {
				ws = ref.Workspace
			}
			lyr.Styles = append(lyr.Styles, catalog.StyleRef{Name: local, Workspace: ws})
		}
	}
	if res := out.Layer.Resource; res != nil && res.Href != "" {
		if lyr.Resource, err = c.resourceFromHref(ctx, res.Href); err != nil {
			return nil, err
		}
	}
	return lyr, nil
}

func stylePath(name string) string {
	ws, local := splitQualified(name)
	if ws != "" {
		return "/workspaces/" + esc(ws) + "/styles/" + esc(local)
	}
	return "/styles/" + esc(local)
}

// GetStyle returns the style with its SLD body.
func (c *Client) GetStyle(ctx context.Context, name string) (*catalog.Style, error) {
	path := stylePath(name)
	var out struct {
		Style styleJSON `json:"style"`
	}
	found, err := c.getJSON(ctx, path+".json", &out)
	if err != nil || !found {
		return nil, err
	}

	body, _, err := c.do(ctx, request{method: http.MethodGet, path: path + ".sld", accept: "application/vnd.ogc.sld+xml"})
	if err != nil {
		return nil, err
	}

	style := &catalog.Style{Name: out.Style.Name, Body: string(body), URL: c.restURL + path + ".sld"}
	if out.Style.Workspace != nil {
		style.Workspace = out.Style.Workspace.Name
	}
	if out.Style.Filename != "" {
		style.URL = c.restURL + strings.TrimSuffix(path, "/"+esc(out.Style.Name)) + "/" + esc(out.Style.Filename)
	}
	return style, nil
}

package geoserver

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/mholt/archiver/v3"
)

// uploadFormat maps a base file extension onto the REST upload endpoint
// suffix and content type.
func uploadFormat(data catalog.Dataset) (endpoint, contentType string, zipped bool, err error) {
	switch strings.ToLower(filepath.Ext(data.Base)) {
	case ".shp":
		return "file.shp", "application/zip", true, nil
	case ".zip":
		return "file.shp", "application/zip", false, nil
	case ".tif", ".tiff", ".geotif", ".geotiff":
		return "file.geotiff", "image/tiff", false, nil
	case ".asc":
		return "file.arcgrid", "text/plain", false, nil
	}
	return "", "", false, fmt.Errorf("%w: unsupported file type %s", catalog.ErrUpload, filepath.Ext(data.Base))
}

// payload reads the bytes to upload. Shapefile sets are zipped with every
// component renamed to name so the server names the feature type after it.
func payload(data catalog.Dataset, name string, zipped bool) ([]byte, error) {
	if !zipped {
		return os.ReadFile(data.Base)
	}

	dir, err := os.MkdirTemp("", "layersync-upload-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	var sources []string
	for _, p := range data.Paths() {
		dst := filepath.Join(dir, name+strings.ToLower(filepath.Ext(p)))
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(dst, b, 0o600); err != nil {
			return nil, err
		}
		sources = append(sources, dst)
	}

	archive := filepath.Join(dir, name+".zip")
	if err := archiver.NewZip().Archive(sources, archive); err != nil {
		return nil, fmt.Errorf("zip %s: %w", name, err)
	}
	return os.ReadFile(archive)
}

func (c *Client) upload(ctx context.Context, storePath, name string, data catalog.Dataset, query url.Values) error {
	endpoint, contentType, zipped, err := uploadFormat(data)
	if err != nil {
		return err
	}
	body, err := payload(data, name, zipped)
	if err != nil {
		return fmt.Errorf("%w: %w", catalog.ErrUpload, err)
	}
	_, _, err = c.do(ctx, request{
		method:      http.MethodPut,
		path:        storePath + "/" + endpoint,
		query:       query,
		body:        bytes.NewReader(body),
		contentType: contentType,
	})
	if err != nil {
		return uploadErr(err)
	}
	return nil
}

func uploadQuery(overwrite bool, charset string) url.Values {
	q := url.Values{}
	if overwrite {
		q.Set("update", "overwrite")
	}
	if charset != "" {
		q.Set("charset", charset)
	}
	return q
}

// CreateFeatureStore uploads a file-backed vector store named name.
func (c *Client) CreateFeatureStore(ctx context.Context, name string, data catalog.Dataset, overwrite bool, charset string) error {
	if !overwrite {
		existing, err := c.GetStore(ctx, name, c.workspace)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: store %s already exists", catalog.ErrConflict, name)
		}
	}
	storePath := "/workspaces/" + esc(c.workspace) + "/datastores/" + esc(name)
	return c.upload(ctx, storePath, name, data, uploadQuery(overwrite, charset))
}

// CreateCoverageStore uploads a raster store named name.
func (c *Client) CreateCoverageStore(ctx context.Context, name string, data catalog.Dataset, overwrite bool) error {
	if !overwrite {
		existing, err := c.GetStore(ctx, name, c.workspace)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: store %s already exists", catalog.ErrConflict, name)
		}
	}
	storePath := "/workspaces/" + esc(c.workspace) + "/coveragestores/" + esc(name)
	return c.upload(ctx, storePath, name, data, uploadQuery(overwrite, ""))
}

// CreateDatastore creates a database-backed store with the connection parameters.
func (c *Client) CreateDatastore(ctx context.Context, name string, params map[string]string) (*catalog.Store, error) {
	body := map[string]any{
		"dataStore": map[string]any{
			"name":                 name,
			"enabled":              true,
			"connectionParameters": entriesOf(params),
		},
	}
	if err := c.sendJSON(ctx, http.MethodPost, "/workspaces/"+esc(c.workspace)+"/datastores", body); err != nil {
		return nil, err
	}
	return c.GetStore(ctx, name, c.workspace)
}

// AddDataToStore imports data into an existing (database-backed) store.
func (c *Client) AddDataToStore(ctx context.Context, store *catalog.Store, name string, data catalog.Dataset, overwrite bool, charset string) error {
	q := uploadQuery(overwrite, charset)
	q.Set("configure", "all")
	storePath := "/workspaces/" + esc(store.Workspace) + "/datastores/" + esc(store.Name)
	return c.upload(ctx, storePath, name, data, q)
}

// CreateStyle posts an SLD document as a new style.
func (c *Client) CreateStyle(ctx context.Context, name, sld string) error {
	_, _, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/styles",
		query:       url.Values{"name": {name}},
		body:        strings.NewReader(sld),
		contentType: "application/vnd.ogc.sld+xml",
	})
	return conflictOr(err)
}

// SaveResource writes back title, abstract, projection and bounding boxes.
func (c *Client) SaveResource(ctx context.Context, r *catalog.Resource) error {
	coll := collectionFor(r.StoreKind)
	body := resourceJSON{
		Name:              r.Name,
		Title:             r.Title,
		Abstract:          r.Abstract,
		SRS:               r.Projection,
		Enabled:           boolOf(r.Enabled),
		Advertised:        boolOf(r.Advertised),
		NativeBoundingBox: fromBBox(r.NativeBBox),
		LatLonBoundingBox: fromBBox(r.LatLonBBox),
	}
	if r.Projection != "" {
		body.ProjectionPolicy = "FORCE_DECLARED"
	}
	path := "/workspaces/" + esc(r.Workspace) + "/" + coll.path + "/" + esc(r.Store) + "/" + coll.resPath + "/" + esc(r.Name)
	return c.sendJSON(ctx, http.MethodPut, path, map[string]any{coll.resInner: body})
}

// SaveLayer writes back the layer's default and alternate styles.
func (c *Client) SaveLayer(ctx context.Context, l *catalog.Layer) error {
	body := layerJSON{}
	if l.DefaultStyle != nil {
		body.DefaultStyle = &styleRefJSON{Name: l.DefaultStyle.Name, Workspace: l.DefaultStyle.Workspace}
	}
	if len(l.Styles) > 0 {
		refs := make([]styleRefJSON, 0, len(l.Styles))
		for _, s := range l.Styles {
			refs = append(refs, styleRefJSON{Name: s.Name, Workspace: s.Workspace})
		}
		raw, err := jsonRaw(refs)
		if err != nil {
			return err
		}
		body.Styles = &layerStylesJSON{Class: "linked-hash-set", Style: raw}
	}
	return c.sendJSON(ctx, http.MethodPut, "/layers/"+esc(l.Name), map[string]any{"layer": body})
}

// DeleteLayer removes the published layer.
func (c *Client) DeleteLayer(ctx context.Context, name string) error {
	return c.del(ctx, "/layers/"+esc(name), nil)
}

// DeleteStyle removes a style; purge also removes the SLD file.
func (c *Client) DeleteStyle(ctx context.Context, name string, purge bool) error {
	q := url.Values{}
	if purge {
		q.Set("purge", "true")
	}
	return c.del(ctx, stylePath(name), q)
}

// DeleteResource removes a feature type or coverage.
func (c *Client) DeleteResource(ctx context.Context, r *catalog.Resource) error {
	coll := collectionFor(r.StoreKind)
	path := "/workspaces/" + esc(r.Workspace) + "/" + coll.path + "/" + esc(r.Store) + "/" + coll.resPath + "/" + esc(r.Name)
	return c.del(ctx, path, nil)
}

// DeleteStore removes a store; recurse also removes its resources.
func (c *Client) DeleteStore(ctx context.Context, s *catalog.Store, recurse bool) error {
	coll := collectionFor(s.Kind)
	q := url.Values{}
	if recurse {
		q.Set("recurse", "true")
	}
	return c.del(ctx, "/workspaces/"+esc(s.Workspace)+"/"+coll.path+"/"+esc(s.Name), q)
}

// Reload asks the server to reload its catalog from disk.
func (c *Client) Reload(ctx context.Context) error {
	_, _, err := c.do(ctx, request{method: http.MethodPost, path: "/reload"})
	return err
}

var _ catalog.Catalog = (*Client)(nil)

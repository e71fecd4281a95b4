// publish.go
//
// Keeps GeoServer layers and the local layer registry in sync
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of layersync.
// layersync is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// layersync is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with layersync.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"os"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/metrics"
	"github.com/localnerve/layersync/internal/styles"
	"github.com/pkg/errors"
)

// GeographicCRS is assigned to uploads whose bounds look like lon/lat.
const GeographicCRS = "EPSG:4326"

// PublishRequest describes one dataset to publish.
type PublishRequest struct {
	Dataset   catalog.Dataset
	User      string
	Name      string
	Overwrite bool
	Title     string
	Abstract  string
	Charset   string
}

// LayerDefaults are the field values the caller persists on the local layer.
type LayerDefaults struct {
	Store     string
	StoreType string
	Typename  string
	Title     string
	Abstract  string
	UUID      string
	Owner     string
	BBox      *catalog.BBox
	SRID      string
}

// PublishResult is what a successful publish hands back.
type PublishResult struct {
	Name      string
	Workspace string
	Defaults  LayerDefaults
}

// storeCreator uploads data under name and returns the store and the resource
// the server created for it. The resource is nil when the server did not
// create one.
type storeCreator func(ctx context.Context, name string, data catalog.Dataset, overwrite bool, charset string) (*catalog.Store, *catalog.Resource, error)

func (s *Service) storeCreators() map[catalog.ResourceKind]storeCreator {
	creators := map[catalog.ResourceKind]storeCreator{
		catalog.KindVector: s.createFeatureStore,
		catalog.KindRaster: s.createCoverageStore,
	}
	if s.datastore != "" {
		creators[catalog.KindVector] = s.createDBFeatureStore
	}
	return creators
}

func (s *Service) createFeatureStore(ctx context.Context, name string, data catalog.Dataset, overwrite bool, charset string) (*catalog.Store, *catalog.Resource, error) {
	if err := s.cat.CreateFeatureStore(ctx, name, data, overwrite, charset); err != nil {
		return nil, nil, err
	}
	return s.createdResource(ctx, name, name)
}

func (s *Service) createCoverageStore(ctx context.Context, name string, data catalog.Dataset, overwrite bool, _ string) (*catalog.Store, *catalog.Resource, error) {
	if err := s.cat.CreateCoverageStore(ctx, name, data, overwrite); err != nil {
		return nil, nil, err
	}
	return s.createdResource(ctx, name, name)
}

// createDBFeatureStore imports into the shared database store, creating that
// store on first use.
func (s *Service) createDBFeatureStore(ctx context.Context, name string, data catalog.Dataset, overwrite bool, charset string) (*catalog.Store, *catalog.Resource, error) {
	ds, err := s.cat.GetStore(ctx, s.datastore, "")
	if err != nil {
		return nil, nil, err
	}
	if ds == nil {
		s.log.Infof("creating datastore %s", s.datastore)
		if ds, err = s.cat.CreateDatastore(ctx, s.datastore, s.datastoreParams); err != nil {
			return nil, nil, err
		}
	}
	if err := s.cat.AddDataToStore(ctx, ds, name, data, overwrite, charset); err != nil {
		return nil, nil, err
	}
	return s.createdResource(ctx, ds.Name, name)
}

func (s *Service) createdResource(ctx context.Context, storeName, name string) (*catalog.Store, *catalog.Resource, error) {
	store, err := s.cat.GetStore(ctx, storeName, "")
	if err != nil {
		return nil, nil, err
	}
	if store == nil {
		return nil, nil, nil
	}
	resource, err := s.cat.GetResource(ctx, name, store.Workspace, store.Name)
	return store, resource, err
}

// Publish uploads a dataset to the server and returns the values for the
// matching local layer. It never writes the local record.
func (s *Service) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	res, err := s.publish(ctx, req)
	if err != nil {
		metrics.Publishes.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.Publishes.WithLabelValues("published").Inc()
	return res, nil
}

func (s *Service) publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	name := req.Name
	log := s.log.WithField("layer", name)

	log.Info("resolving dataset type")
	kind := req.Dataset.Kind()
	creator, ok := s.storeCreators()[kind]
	if !ok {
		return nil, publishErr(ErrUploadFailed, name, nil,
			"the layer type for %s is %s, it should be %s or %s", name, kind, catalog.KindVector, catalog.KindRaster)
	}

	log.Info("checking for an existing store")
	replacing, err := s.checkCollision(ctx, name, kind, req.Overwrite)
	if err != nil {
		return nil, err
	}
	// Everything after the upload is backed out on failure, unless the
	// store was already there before this publish.
	fail := func(err error) (*PublishResult, error) {
		if replacing {
			log.WithError(err).Warn("publish into an existing store failed, leaving it in place")
		} else {
			s.backOut(ctx, name)
		}
		return nil, err
	}

	log.Info("uploading")
	store, resource, err := creator(ctx, name, req.Dataset, req.Overwrite, req.Charset)
	if err != nil {
		if errors.Is(err, catalog.ErrConflict) {
			return nil, publishErr(ErrNameConflict, name, err,
				"the server reported a conflict creating a store named %s, rename the file or delete the store", name)
		}
		return fail(publishErr(ErrUploadFailed, name, err, "could not save the layer %s, there was an upload error", name))
	}

	if resource == nil || resource.Name != name {
		return fail(publishErr(ErrResourceMissing, name, nil,
			"cannot find the resource created for %s, try renaming the files", name))
	}

	log.Info("checking projection")
	if err := s.ensureProjection(ctx, resource); err != nil {
		return fail(err)
	}

	log.Info("assigning style")
	if err := s.assignStyle(ctx, name, req.Dataset); err != nil {
		return fail(err)
	}

	title := req.Title
	if title == "" {
		title = resource.Title
	}
	abstract := req.Abstract
	if abstract == "" {
		abstract = resource.Abstract
	}
	storeType := string(resource.StoreKind)
	if store != nil {
		storeType = string(store.Kind)
	}
	return &PublishResult{
		Name:      name,
		Workspace: resource.Workspace,
		Defaults: LayerDefaults{
			Store:     resource.Store,
			StoreType: storeType,
			Typename:  resource.Typename(),
			Title:     title,
			Abstract:  abstract,
			UUID:      s.newUUID(),
			Owner:     req.User,
			BBox:      resource.LatLonBBox,
			SRID:      resource.Projection,
		},
	}, nil
}

// checkCollision clears an empty store left under name and refuses to
// replace an existing resource unless overwrite is set and the kinds match.
// It reports whether a populated store of that name already exists.
func (s *Service) checkCollision(ctx context.Context, name string, kind catalog.ResourceKind, overwrite bool) (bool, error) {
	store, err := s.cat.GetStore(ctx, name, "")
	if err != nil {
		return false, publishErr(ErrUploadFailed, name, err, "could not look up store %s", name)
	}
	if store == nil {
		return false, nil
	}
	resources, err := s.cat.ListResources(ctx, catalog.ResourceFilter{Workspace: store.Workspace, Store: store.Name})
	if err != nil {
		return false, publishErr(ErrUploadFailed, name, err, "could not list the resources of store %s", name)
	}
	if len(resources) == 0 {
		if err := s.cat.DeleteStore(ctx, store, false); err != nil {
			return false, publishErr(ErrUploadFailed, name, err, "could not delete empty store %s", name)
		}
		return false, nil
	}
	for _, r := range resources {
		if r.Name != name {
			continue
		}
		if !overwrite {
			return true, publishErr(ErrNameConflict, name, nil, "name %s already in use and overwrite is false", name)
		}
		if r.Kind != kind {
			return true, publishErr(ErrTypeMismatch, name, nil,
				"type of uploaded file %s (%s) does not match type of existing resource %s", name, kind, r.Kind)
		}
	}
	return true, nil
}

// backOut removes the layer, resource and store a failed publish left under
// name. The shared database store itself is kept; its table goes with the
// cascading delete.
func (s *Service) backOut(ctx context.Context, name string) {
	log := s.log.WithField("layer", name)
	log.Info("backing out the partial upload")
	metrics.Cleanups.WithLabelValues("backout").Inc()

	store, err := s.cat.GetStore(ctx, name, "")
	if err != nil {
		log.WithError(err).Warn("could not look up the store while backing out")
	}
	typename := name
	if store != nil {
		typename = store.Workspace + ":" + name
	}
	if err := s.CascadingDelete(ctx, typename); err != nil {
		log.WithError(err).Warn("backing out the layer failed")
	}
	if store == nil || name == s.datastore {
		return
	}
	// A store without a published layer survives the cascading delete.
	if store, err = s.cat.GetStore(ctx, name, store.Workspace); err != nil || store == nil {
		return
	}
	if err := s.cat.DeleteStore(ctx, store, true); err != nil {
		log.WithError(err).Warn("could not delete the store while backing out")
	}
}

// ensureProjection assumes lon/lat when the server could not work out the
// resource's reference system but its bounds fit.
func (s *Service) ensureProjection(ctx context.Context, resource *catalog.Resource) error {
	if resource.LatLonBBox != nil {
		return nil
	}
	name := resource.Name
	if resource.NativeBBox != nil && resource.NativeBBox.IsGeographic() {
		s.log.WithField("layer", name).Infof("server failed to detect the projection, guessing %s", GeographicCRS)
		bbox := *resource.NativeBBox
		bbox.CRS = GeographicCRS
		resource.LatLonBBox = &bbox
		resource.Projection = GeographicCRS
		if err := s.cat.SaveResource(ctx, resource); err != nil {
			return publishErr(ErrUploadFailed, name, err, "could not save the projection of %s", name)
		}
		return nil
	}

	s.log.WithField("layer", name).Info("projection does not look like lon/lat")
	return publishErr(ErrProjectionUnresolvable, name, nil,
		"the server failed to detect the projection for layer %s and it does not look like %s", name, GeographicCRS)
}

// assignStyle registers the dataset's own SLD, or a generated one, under name
// and makes it the layer's default style.
func (s *Service) assignStyle(ctx context.Context, name string, data catalog.Dataset) error {
	layer, err := s.cat.GetLayer(ctx, name)
	if err != nil {
		return publishErr(ErrUploadFailed, name, err, "could not read layer %s", name)
	}
	if layer == nil {
		return publishErr(ErrResourceMissing, name, nil, "layer %s was not published", name)
	}

	var sld string
	if path := data.SLD(); path != "" {
		body, err := os.ReadFile(path)
		if err != nil {
			return publishErr(ErrUploadFailed, name, err, "could not read style file %s", path)
		}
		sld = string(body)
	} else {
		geometry := styles.Point
		if layer.DefaultStyle != nil {
			geometry = layer.DefaultStyle.Name
		}
		var ok bool
		if sld, ok = styles.Generate(geometry, name, s.palette.Next()); !ok {
			return nil
		}
	}

	created := true
	if err := s.cat.CreateStyle(ctx, name, sld); err != nil {
		if !errors.Is(err, catalog.ErrConflict) {
			return publishErr(ErrUploadFailed, name, err, "could not create style %s", name)
		}
		created = false
		s.log.WithField("layer", name).WithError(err).Warnf("there was already a style named %s, cannot overwrite", name)
	}
	layer.DefaultStyle = &catalog.StyleRef{Name: name}
	if err := s.cat.SaveLayer(ctx, layer); err != nil {
		if created {
			if derr := s.cat.DeleteStyle(ctx, name, true); derr != nil {
				s.log.WithField("layer", name).WithError(derr).Warn("could not remove the unused style")
			}
		}
		return publishErr(ErrUploadFailed, name, err, "could not set the default style of %s", name)
	}
	return nil
}

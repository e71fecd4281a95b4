// cleanup.go
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
	"strings"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/metrics"
	"github.com/localnerve/layersync/internal/styles"
	"github.com/pkg/errors"
)

// sharedStoreTypes are versioned store backends where many layers point at one
// repository. They are kept even when no resource references them.
var sharedStoreTypes = map[string]bool{
	"geogig": true,
	"geogit": true,
}

// Cleanup removes the remote layer, resource and store left behind under name
// when no local record was created for them, then drops the catalogue record
// for uuid. It refuses with ErrLocalRecordExists while a local layer of that
// name exists. Individual deletion failures are logged and skipped.
func (s *Service) Cleanup(ctx context.Context, name, uuid string) error {
	exists, err := s.records.LayerExists(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "check local layer %s", name)
	}
	if exists {
		return errors.Wrapf(ErrLocalRecordExists, "not cleaning up %s", name)
	}
	metrics.Cleanups.WithLabelValues("cleanup").Inc()
	log := s.log.WithField("layer", name)

	var (
		store    *catalog.Store
		layer    *catalog.Layer
		resource *catalog.Resource
	)
	store, err = s.cat.GetStore(ctx, name, "")
	if err != nil {
		log.WithError(err).Warn("could not reach the server while cleaning up")
	}
	if store != nil {
		if layer, err = s.cat.GetLayer(ctx, name); err != nil {
			log.WithError(err).Warn("could not look up layer during cleanup")
		}
		if layer != nil && layer.Resource != nil {
			resource = layer.Resource
		} else if resource, err = s.cat.GetResource(ctx, name, store.Workspace, store.Name); err != nil {
			log.WithError(err).Warn("could not look up resource during cleanup")
		}
	}

	if layer != nil {
		if err := s.cat.DeleteLayer(ctx, layer.Name); err != nil {
			log.WithError(err).Warn("could not delete layer during cleanup")
		}
	}
	if resource != nil {
		if err := s.cat.DeleteResource(ctx, resource); err != nil {
			log.WithError(err).Warn("could not delete resource during cleanup")
		}
	}
	if store != nil {
		if err := s.cat.DeleteStore(ctx, store, false); err != nil {
			log.WithError(err).Warn("could not delete store during cleanup")
		}
	}

	if s.metadata != nil && uuid != "" {
		log.Warn("deleting dangling catalogue record")
		if err := s.metadata.RemoveRecord(ctx, uuid); err != nil {
			log.WithError(err).Warn("could not remove catalogue record")
		}
	}
	return nil
}

// CascadingDelete removes a published layer from the server along with its
// custom styles, its resource and, when nothing else uses it, its store.
// name may be workspace-qualified. Unknown names are ignored.
func (s *Service) CascadingDelete(ctx context.Context, name string) error {
	log := s.log.WithField("layer", name)

	var (
		resource *catalog.Resource
		err      error
	)
	if ws, bare, ok := strings.Cut(name, ":"); ok {
		var workspace *catalog.Workspace
		workspace, err = s.cat.GetWorkspace(ctx, ws)
		if err == nil && workspace == nil {
			log.Debug("cascading delete on a layer whose workspace was not found")
			return nil
		}
		if err == nil {
			resource, err = s.cat.GetResource(ctx, bare, ws, "")
		}
	} else {
		resource, err = s.cat.GetResource(ctx, name, "", "")
	}
	if err != nil {
		if errors.Is(err, catalog.ErrConnectionRefused) {
			log.WithError(err).Warn("could not connect to the server for cascading delete")
			return nil
		}
		return errors.Wrapf(err, "resolve %s", name)
	}
	if resource == nil {
		log.Debug("cascading delete called with a non existent resource")
		return nil
	}

	layer, err := s.cat.GetLayer(ctx, resource.Name)
	if err != nil {
		return errors.Wrapf(err, "get layer %s", resource.Name)
	}
	if layer == nil {
		return nil
	}
	metrics.Cleanups.WithLabelValues("cascade").Inc()

	store, err := s.cat.GetStore(ctx, resource.Store, resource.Workspace)
	if err != nil {
		return errors.Wrapf(err, "get store %s", resource.Store)
	}

	if err := s.cat.DeleteLayer(ctx, layer.Name); err != nil {
		return errors.Wrapf(err, "delete layer %s", layer.Name)
	}
	for _, ref := range layer.AllStyles() {
		if ref.Name == "" || styles.IsDefault(ref.Name) {
			continue
		}
		// Styles shared with other layers cannot be deleted.
		if err := s.cat.DeleteStyle(ctx, ref.Name, true); err != nil {
			log.WithError(err).Debugf("style %s not deleted", ref.Name)
		}
	}

	if err := s.cat.DeleteResource(ctx, resource); err != nil {
		log.WithError(err).Debug("resource delete refused, reloading the catalog")
		if err := s.cat.Reload(ctx); err != nil {
			return errors.Wrap(err, "reload catalog")
		}
	}

	if store == nil {
		return nil
	}
	switch {
	case store.Kind == catalog.DataStore && store.DBType() == "postgis":
		if s.dropper != nil {
			if err := s.dropper.DropGeometryTable(ctx, resource.Name); err != nil {
				log.WithError(err).Warn("could not drop the layer table")
			}
		}
	case sharedStoreTypes[strings.ToLower(store.Type)]:
		return nil
	default:
		remaining, err := s.cat.ListResources(ctx, catalog.ResourceFilter{Workspace: store.Workspace, Store: store.Name})
		if err != nil {
			log.WithError(err).Debug("could not list remaining resources")
			return nil
		}
		if len(remaining) == 0 {
			if err := s.cat.DeleteStore(ctx, store, true); err != nil {
				log.WithError(err).Debug("store not deleted")
			}
		}
	}
	return nil
}

// service.go
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

// Package services holds the layer synchronization core: catalog
// reconciliation, the upload pipeline and compensating cleanup.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/logging"
	"github.com/localnerve/layersync/internal/ogc"
	"github.com/localnerve/layersync/internal/records"
	"github.com/localnerve/layersync/internal/styles"
	"github.com/localnerve/layersync/internal/wps"
	"github.com/sirupsen/logrus"
)

// Discoverer finds the fields of a published layer.
type Discoverer interface {
	Discover(ctx context.Context, t ogc.Target) []ogc.Field
}

// StatisticsService computes aggregate statistics for one field.
type StatisticsService interface {
	AttributeStatistics(ctx context.Context, typename, field string) (*wps.Statistics, error)
}

// TableDropper removes the database table behind a database-backed layer.
type TableDropper interface {
	DropGeometryTable(ctx context.Context, table string) error
}

// MetadataRemover removes a layer's record from the metadata catalogue.
type MetadataRemover interface {
	RemoveRecord(ctx context.Context, uuid string) error
}

// CoverageLookup resolves a coverage's grid extent.
type CoverageLookup interface {
	GridExtent(ctx context.Context, workspace, name string) ([]int, error)
}

// Options wires the collaborators of a Service. Catalog and Records are
// required; every other collaborator is optional.
type Options struct {
	Catalog    catalog.Catalog
	Records    *records.Store
	Discoverer Discoverer
	Stats      StatisticsService
	Dropper    TableDropper
	Metadata   MetadataRemover
	Coverages  CoverageLookup

	// Datastore names the database-backed feature store uploads go to;
	// empty means each upload gets its own file store.
	Datastore       string
	DatastoreParams map[string]string

	Palette *styles.Palette
	Log     *logrus.Entry
	Now     func() time.Time
	NewUUID func() string
}

// Service is the sync core. It holds no global state; every collaborator is
// passed in.
type Service struct {
	cat       catalog.Catalog
	records   *records.Store
	discover  Discoverer
	stats     StatisticsService
	dropper   TableDropper
	metadata  MetadataRemover
	coverages CoverageLookup

	datastore       string
	datastoreParams map[string]string

	palette *styles.Palette
	log     *logrus.Entry
	now     func() time.Time
	newUUID func() string
}

// New builds a Service from its options.
func New(opts Options) *Service {
	s := &Service{
		cat:             opts.Catalog,
		records:         opts.Records,
		discover:        opts.Discoverer,
		stats:           opts.Stats,
		dropper:         opts.Dropper,
		metadata:        opts.Metadata,
		coverages:       opts.Coverages,
		datastore:       opts.Datastore,
		datastoreParams: opts.DatastoreParams,
		palette:         opts.Palette,
		log:             opts.Log,
		now:             opts.Now,
		newUUID:         opts.NewUUID,
	}
	if s.palette == nil {
		s.palette = &styles.Palette{}
	}
	if s.log == nil {
		s.log = logging.Component("services")
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newUUID == nil {
		s.newUUID = uuid.NewString
	}
	return s
}

// Records exposes the local record store.
func (s *Service) Records() *records.Store {
	return s.records
}

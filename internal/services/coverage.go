package services

import (
	"context"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/pkg/errors"
)

// ErrNotCoverage is returned for grid requests on layers that are not rasters.
var ErrNotCoverage = errors.New("layer is not a coverage")

// GridExtent returns the pixel size of a raster layer's grid, one entry per
// axis.
func (s *Service) GridExtent(ctx context.Context, name string) ([]int, error) {
	layer, err := s.records.GetLayer(ctx, name)
	if err != nil {
		return nil, err
	}
	if layer.StoreType != string(catalog.CoverageStore) {
		return nil, errors.Wrapf(ErrNotCoverage, "%s is a %s", name, layer.StoreType)
	}
	if s.coverages == nil {
		return nil, errors.New("no coverage service configured")
	}
	return s.coverages.GridExtent(ctx, layer.Workspace, layer.Name)
}

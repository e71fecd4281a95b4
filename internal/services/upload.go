package services

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/localnerve/layersync/internal/catalog"
	"github.com/localnerve/layersync/internal/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// UploadRequest is a dataset on local disk to publish and register.
type UploadRequest struct {
	BaseFile  string
	User      string
	Name      string // defaults to the base file name without extension
	Overwrite bool
	Title     string
	Abstract  string
	Charset   string
	Keywords  []string
}

// Upload publishes the dataset and then creates or updates the local layer.
// When the local record cannot be written the remote artifacts are cleaned up.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*models.Layer, error) {
	data, err := catalog.GatherFiles(req.BaseFile)
	if err != nil {
		return nil, publishErr(ErrUploadFailed, req.Name, err, "invalid dataset %s", req.BaseFile)
	}
	name := req.Name
	if name == "" {
		base := filepath.Base(req.BaseFile)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	charset := req.Charset
	if charset == "" {
		charset = "UTF-8"
	}

	res, err := s.Publish(ctx, PublishRequest{
		Dataset:   data,
		User:      req.User,
		Name:      name,
		Overwrite: req.Overwrite,
		Title:     req.Title,
		Abstract:  req.Abstract,
		Charset:   charset,
	})
	if err != nil {
		return nil, err
	}

	d := res.Defaults
	layer, created, err := s.records.GetOrCreateLayer(ctx, res.Name, models.Layer{
		Name:      res.Name,
		Workspace: res.Workspace,
		Store:     d.Store,
		StoreType: d.StoreType,
		Typename:  d.Typename,
		Title:     d.Title,
		Abstract:  d.Abstract,
		UUID:      d.UUID,
		Owner:     d.Owner,
	})
	if err != nil {
		if cerr := s.Cleanup(ctx, res.Name, d.UUID); cerr != nil {
			s.log.WithField("layer", res.Name).WithError(cerr).Warn("cleanup after failed registration")
		}
		return nil, errors.Wrapf(err, "register layer %s", res.Name)
	}
	if !created {
		layer.Workspace = res.Workspace
		layer.Store = d.Store
		layer.StoreType = d.StoreType
		layer.Title = d.Title
		layer.Abstract = d.Abstract
	}
	setBBox(layer, d.BBox)
	layer.SRID = d.SRID
	if err := s.records.SaveLayer(ctx, layer); err != nil {
		return nil, errors.Wrapf(err, "save layer %s", res.Name)
	}

	log := s.log.WithField("layer", layer.Name)
	if err := s.DiscoverAttributes(ctx, layer, false); err != nil {
		log.WithError(err).Warn("attribute discovery failed")
	}
	if err := s.SetStyles(ctx, layer); err != nil {
		log.WithError(err).Warn("style sync failed")
	}
	if len(req.Keywords) > 0 {
		if err := s.records.SetKeywords(ctx, layer, req.Keywords); err != nil {
			log.WithError(err).Warn("keywords not saved")
		}
	}
	if created {
		if err := s.records.SetDefaultPermissions(ctx, layer); err != nil {
			log.WithError(err).Warn("default permissions not set")
		}
	}
	return layer, nil
}

func setBBox(layer *models.Layer, bbox *catalog.BBox) {
	if bbox == nil {
		return
	}
	layer.BBoxX0 = decimal.NewFromFloat(bbox.MinX)
	layer.BBoxX1 = decimal.NewFromFloat(bbox.MaxX)
	layer.BBoxY0 = decimal.NewFromFloat(bbox.MinY)
	layer.BBoxY1 = decimal.NewFromFloat(bbox.MaxY)
}

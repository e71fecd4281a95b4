// records.go
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

// Package records is the local layer registry, backed by gorm.
package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/localnerve/layersync/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/hints"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the local record store.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the connection for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) quiet(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Session(&gorm.Session{Logger: s.db.Logger.LogMode(logger.Silent)})
}

// GetOrCreateLayer returns the layer named name, creating it from defaults
// when absent. created reports which happened.
func (s *Store) GetOrCreateLayer(ctx context.Context, name string, defaults models.Layer) (*models.Layer, bool, error) {
	var layer models.Layer
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Session(&gorm.Session{Logger: tx.Logger.LogMode(logger.Silent)}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", name).
			First(&layer).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		layer = defaults
		layer.ID = 0
		layer.Name = name
		if err := tx.Create(&layer).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get or create layer %s: %w", name, err)
	}
	return &layer, created, nil
}

// SaveLayer persists every column of the layer.
func (s *Store) SaveLayer(ctx context.Context, layer *models.Layer) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(layer).Error
}

// GetLayer loads a layer by name with its styles.
func (s *Store) GetLayer(ctx context.Context, name string) (*models.Layer, error) {
	var layer models.Layer
	err := s.quiet(ctx).
		Preload("DefaultStyle").
		Preload("Styles").
		Where("name = ?", name).
		First(&layer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &layer, nil
}

// LayerExists reports whether a layer record with the name exists.
func (s *Store) LayerExists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.quiet(ctx).Model(&models.Layer{}).Where("name = ?", name).Count(&count).Error
	return count > 0, err
}

// Typenames returns the set of typenames of every layer record.
func (s *Store) Typenames(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	err := s.quiet(ctx).
		Clauses(hints.Comment("select", "layersync:typenames")).
		Model(&models.Layer{}).
		Pluck("typename", &names).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set, nil
}

// LayersInScope returns layer records filtered by exact workspace and store;
// empty values do not filter.
func (s *Store) LayersInScope(ctx context.Context, workspace, store string) ([]models.Layer, error) {
	q := s.quiet(ctx).
		Clauses(hints.Comment("select", "layersync:scope")).
		Order("id")
	if workspace != "" {
		q = q.Where("workspace = ?", workspace)
	}
	if store != "" {
		q = q.Where("store = ?", store)
	}
	var layers []models.Layer
	if err := q.Find(&layers).Error; err != nil {
		return nil, err
	}
	return layers, nil
}

// ListLayers returns every layer record ordered by name.
func (s *Store) ListLayers(ctx context.Context) ([]models.Layer, error) {
	var layers []models.Layer
	err := s.quiet(ctx).Order("name").Find(&layers).Error
	return layers, err
}

// DeleteLayerCascade removes a layer record together with its ratings,
// comments, keywords, attributes, permissions and style links.
func (s *Store) DeleteLayerCascade(ctx context.Context, layer *models.Layer) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("layer_id = ?", layer.ID).Delete(&models.Rating{}).Error; err != nil {
			return err
		}
		if err := tx.Where("layer_id = ?", layer.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(layer).Association("Keywords").Clear(); err != nil {
			return err
		}
		if err := tx.Model(layer).Association("Styles").Clear(); err != nil {
			return err
		}
		if err := tx.Where("layer_id = ?", layer.ID).Delete(&models.Attribute{}).Error; err != nil {
			return err
		}
		if err := tx.Where("layer_id = ?", layer.ID).Delete(&models.LayerPermission{}).Error; err != nil {
			return err
		}
		result := tx.Delete(layer)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetKeywords replaces a layer's keywords, creating tags as needed.
func (s *Store) SetKeywords(ctx context.Context, layer *models.Layer, keywords []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags := make([]models.Tag, 0, len(keywords))
		for _, k := range keywords {
			if k == "" {
				continue
			}
			var tag models.Tag
			if err := tx.Where(models.Tag{Name: k}).FirstOrCreate(&tag).Error; err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		return tx.Model(layer).Association("Keywords").Replace(tags)
	})
}

// DefaultPermissions are granted to every newly created layer.
var (
	AnonymousPermissions = []string{"view_resourcebase", "download_resourcebase"}
	OwnerPermissions     = []string{
		"view_resourcebase", "download_resourcebase", "change_resourcebase",
		"delete_resourcebase", "change_layer_style", "change_layer_data",
	}
)

// SetDefaultPermissions grants anonymous read access and full access to the owner.
func (s *Store) SetDefaultPermissions(ctx context.Context, layer *models.Layer) error {
	perms := make([]models.LayerPermission, 0, len(AnonymousPermissions)+len(OwnerPermissions))
	for _, p := range AnonymousPermissions {
		perms = append(perms, models.LayerPermission{LayerID: layer.ID, Principal: "anonymous", Permission: p})
	}
	if layer.Owner != "" {
		for _, p := range OwnerPermissions {
			perms = append(perms, models.LayerPermission{LayerID: layer.ID, Principal: layer.Owner, Permission: p})
		}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&perms).Error
}

// Permissions lists the permissions granted on a layer.
func (s *Store) Permissions(ctx context.Context, layerID uint) ([]models.LayerPermission, error) {
	var perms []models.LayerPermission
	err := s.quiet(ctx).Where("layer_id = ?", layerID).Order("id").Find(&perms).Error
	return perms, err
}

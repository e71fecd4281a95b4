package records

import (
	"context"
	"errors"

	"github.com/localnerve/layersync/internal/models"
	"gorm.io/gorm"
)

// notAvailable fills statistics that were never computed.
const notAvailable = "NA"

// Attributes lists a layer's attributes in display order.
func (s *Store) Attributes(ctx context.Context, layerID uint) ([]models.Attribute, error) {
	var attrs []models.Attribute
	err := s.quiet(ctx).Where("layer_id = ?", layerID).Order("display_order, id").Find(&attrs).Error
	return attrs, err
}

// CountAttributes counts a layer's attributes.
func (s *Store) CountAttributes(ctx context.Context, layerID uint) (int64, error) {
	var count int64
	err := s.quiet(ctx).Model(&models.Attribute{}).Where("layer_id = ?", layerID).Count(&count).Error
	return count, err
}

// DeleteAttribute removes one attribute.
func (s *Store) DeleteAttribute(ctx context.Context, attr *models.Attribute) error {
	return s.db.WithContext(ctx).Delete(attr).Error
}

// GetOrCreateAttribute finds the attribute of the layer by name and type, or
// creates it.
func (s *Store) GetOrCreateAttribute(ctx context.Context, layerID uint, name, attrType string) (*models.Attribute, bool, error) {
	var attr models.Attribute
	err := s.quiet(ctx).
		Where("layer_id = ? AND attribute = ? AND attribute_type = ?", layerID, name, attrType).
		First(&attr).Error
	if err == nil {
		return &attr, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	attr = models.Attribute{
		LayerID:       layerID,
		Attribute:     name,
		AttributeType: attrType,
		Visible:       true,
		DisplayOrder:  1,
		Count:         1,
		Min:           notAvailable,
		Max:           notAvailable,
		Average:       notAvailable,
		Median:        notAvailable,
		StdDev:        notAvailable,
		Sum:           notAvailable,
	}
	if err := s.db.WithContext(ctx).Create(&attr).Error; err != nil {
		return nil, false, err
	}
	return &attr, true, nil
}

// SaveAttribute persists every column of the attribute.
func (s *Store) SaveAttribute(ctx context.Context, attr *models.Attribute) error {
	return s.db.WithContext(ctx).Save(attr).Error
}

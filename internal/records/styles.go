package records

import (
	"context"
	"errors"

	"github.com/localnerve/layersync/internal/models"
	"gorm.io/gorm"
)

// UpsertStyle creates the style by name or updates its title, body and URL.
func (s *Store) UpsertStyle(ctx context.Context, style models.Style) (*models.Style, error) {
	var out models.Style
	err := s.db.WithContext(ctx).
		Where(models.Style{Name: style.Name}).
		Assign(models.Style{Workspace: style.Workspace, SLDTitle: style.SLDTitle, SLDBody: style.SLDBody, SLDURL: style.SLDURL}).
		FirstOrCreate(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStyle loads a style by name.
func (s *Store) GetStyle(ctx context.Context, name string) (*models.Style, error) {
	var style models.Style
	err := s.quiet(ctx).Where("name = ?", name).First(&style).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &style, nil
}

// UpdateStyle replaces the body and URL of an existing style, and its title
// when title is non-empty. It returns ErrNotFound for unknown styles.
func (s *Store) UpdateStyle(ctx context.Context, name, title, body, url string) (*models.Style, error) {
	style, err := s.GetStyle(ctx, name)
	if err != nil {
		return nil, err
	}
	fields := []string{"SLDBody", "SLDURL"}
	style.SLDBody = body
	style.SLDURL = url
	if title != "" {
		fields = append(fields, "SLDTitle")
		style.SLDTitle = title
	}
	if err := s.db.WithContext(ctx).Model(style).Select(fields).Updates(style).Error; err != nil {
		return nil, err
	}
	return style, nil
}

// DeleteStyle removes the style by name, unlinking it from layers first.
func (s *Store) DeleteStyle(ctx context.Context, name string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var style models.Style
		if err := tx.Where("name = ?", name).First(&style).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Model(&style).Association("Layers").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&models.Layer{}).Where("default_style_id = ?", style.ID).
			Update("default_style_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&style).Error
	})
}

// SetLayerStyles sets a layer's default style and replaces its style set.
func (s *Store) SetLayerStyles(ctx context.Context, layer *models.Layer, defaultStyle *models.Style, styles []models.Style) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var defaultID *uint
		if defaultStyle != nil {
			defaultID = &defaultStyle.ID
		}
		if err := tx.Model(layer).Update("default_style_id", defaultID).Error; err != nil {
			return err
		}
		layer.DefaultStyleID = defaultID
		layer.DefaultStyle = defaultStyle
		return tx.Model(layer).Association("Styles").Replace(styles)
	})
}

// AddStyleToLayer links a style to the layer with the given typename.
func (s *Store) AddStyleToLayer(ctx context.Context, style *models.Style, typename string) error {
	var layer models.Layer
	if err := s.quiet(ctx).Where("typename = ?", typename).First(&layer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.db.WithContext(ctx).Model(&layer).Association("Styles").Append(style)
}

// LayerStyles lists the styles linked to a layer.
func (s *Store) LayerStyles(ctx context.Context, layer *models.Layer) ([]models.Style, error) {
	var styles []models.Style
	err := s.db.WithContext(ctx).Model(layer).Order("name").Association("Styles").Find(&styles)
	return styles, err
}

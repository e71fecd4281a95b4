package models

import "time"

// Style is a named styling document (SLD) usable by layers
type Style struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	Name      string  `gorm:"uniqueIndex;size:255;not null"`
	Workspace string  `gorm:"size:255"`
	SLDTitle  string  `gorm:"size:255"`
	SLDBody   string  `gorm:"type:text"`
	SLDURL    string  `gorm:"size:1024"`
	Layers    []Layer `gorm:"many2many:layer_styles;"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name for Style
func (Style) TableName() string {
	return "styles"
}

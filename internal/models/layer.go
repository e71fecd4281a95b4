// layer.go
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

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Layer is the local record of a layer published on the OGC server
type Layer struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"uniqueIndex;size:255;not null"`
	Workspace string `gorm:"size:255;not null"`
	Store     string `gorm:"size:255;index;not null"`
	StoreType string `gorm:"size:32;not null"`
	Typename  string `gorm:"size:511;index;not null"`
	Title     string `gorm:"size:255"`
	Abstract  string `gorm:"type:text"`
	Owner     string `gorm:"size:255"`
	UUID      string `gorm:"type:char(36);uniqueIndex"`

	BBoxX0 decimal.Decimal `gorm:"type:decimal(30,15)"`
	BBoxX1 decimal.Decimal `gorm:"type:decimal(30,15)"`
	BBoxY0 decimal.Decimal `gorm:"type:decimal(30,15)"`
	BBoxY1 decimal.Decimal `gorm:"type:decimal(30,15)"`
	SRID   string          `gorm:"size:64"`

	// Set only for layers cascaded from a remote service
	RemoteServiceURL  string `gorm:"size:1024"`
	RemoteServiceType string `gorm:"size:32"`

	DefaultStyleID *uint
	DefaultStyle   *Style
	Styles         []Style `gorm:"many2many:layer_styles;"`
	Keywords       []Tag   `gorm:"many2many:layer_keywords;"`
	Attributes     []Attribute
	Permissions    []LayerPermission

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name for Layer
func (Layer) TableName() string {
	return "layers"
}

// BeforeSave keeps the typename in step with workspace and name and gives
// new records a UUID.
func (l *Layer) BeforeSave(tx *gorm.DB) error {
	l.Typename = l.Workspace + ":" + l.Name
	if l.UUID == "" {
		l.UUID = uuid.NewString()
	}
	return nil
}

// Attribute is a field of a layer's schema with optional statistics
type Attribute struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	LayerID        uint   `gorm:"not null;index:idx_layer_attribute,unique"`
	Attribute      string `gorm:"size:255;not null;index:idx_layer_attribute,unique"`
	AttributeType  string `gorm:"size:64;not null"`
	AttributeLabel string `gorm:"size:255"`
	Description    string `gorm:"type:text"`
	Visible        bool   `gorm:"not null"`
	DisplayOrder   int    `gorm:"not null;default:1"`

	Count            int64  `gorm:"not null;default:1"`
	Min              string `gorm:"size:255;default:NA"`
	Max              string `gorm:"size:255;default:NA"`
	Average          string `gorm:"size:255;default:NA"`
	Median           string `gorm:"size:255;default:NA"`
	StdDev           string `gorm:"size:255;default:NA"`
	Sum              string `gorm:"size:255;default:NA"`
	UniqueValues     string `gorm:"type:text"`
	LastStatsUpdated *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName overrides the table name for Attribute
func (Attribute) TableName() string {
	return "layer_attributes"
}

// LayerPermission grants a permission on a layer to a principal
type LayerPermission struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	LayerID    uint   `gorm:"not null;index:idx_layer_permission,unique"`
	Principal  string `gorm:"size:255;not null;index:idx_layer_permission,unique"`
	Permission string `gorm:"size:64;not null;index:idx_layer_permission,unique"`
	CreatedAt  time.Time
}

// TableName overrides the table name for LayerPermission
func (LayerPermission) TableName() string {
	return "layer_permissions"
}

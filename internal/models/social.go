package models

import "time"

// Rating is a user's rating of a layer
type Rating struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	LayerID   uint   `gorm:"not null;index"`
	UserID    string `gorm:"size:255;not null"`
	Rating    int    `gorm:"not null"`
	CreatedAt time.Time
}

// TableName overrides the table name for Rating
func (Rating) TableName() string {
	return "layer_ratings"
}

// Comment is a user comment on a layer
type Comment struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	LayerID   uint   `gorm:"not null;index"`
	Author    string `gorm:"size:255"`
	Body      string `gorm:"type:text"`
	CreatedAt time.Time
}

// TableName overrides the table name for Comment
func (Comment) TableName() string {
	return "layer_comments"
}

// Tag is a keyword attached to layers
type Tag struct {
	ID   uint   `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"uniqueIndex;size:255;not null"`
}

// TableName overrides the table name for Tag
func (Tag) TableName() string {
	return "tags"
}

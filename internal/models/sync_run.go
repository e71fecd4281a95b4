package models

import "time"

// SyncRun stores the report of one reconciliation run
type SyncRun struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Owner     string `gorm:"size:255"`
	Created   int    `gorm:"not null;default:0"`
	Updated   int    `gorm:"not null;default:0"`
	Failed    int    `gorm:"not null;default:0"`
	Deleted   int    `gorm:"not null;default:0"`
	Duration  float64
	Report    ReportDocument
	StartedAt time.Time
	CreatedAt time.Time
}

// TableName overrides the table name for SyncRun
func (SyncRun) TableName() string {
	return "sync_runs"
}

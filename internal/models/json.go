package models

import (
	"database/sql/driver"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ReportDocument is a JSON column holding the full report of a run
type ReportDocument struct {
	datatypes.JSON
}

// NewReportDocument encodes v as a report column value
func NewReportDocument(v any) (ReportDocument, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return ReportDocument{}, err
	}
	return ReportDocument{JSON: datatypes.JSON(body)}, nil
}

// Decode unmarshals the stored report into v. An empty column leaves v alone.
func (d ReportDocument) Decode(v any) error {
	if len(d.JSON) == 0 {
		return nil
	}
	return json.Unmarshal(d.JSON, v)
}

func (d ReportDocument) Value() (driver.Value, error) {
	if len(d.JSON) == 0 {
		return nil, nil
	}
	return d.JSON.Value()
}

func (d *ReportDocument) Scan(value interface{}) error {
	return d.JSON.Scan(value)
}

// GormDBDataType picks the column type per dialect; SQL Server has no json type.
func (ReportDocument) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "mysql", "sqlite":
		return "JSON"
	}
	return "TEXT"
}

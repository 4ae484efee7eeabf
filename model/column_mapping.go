package model

import (
	"time"

	"gorm.io/datatypes"
)

// MappingColumn is one entry of an institute's column mapping: which raw
// spreadsheet header feeds which catalog field. A nil FieldKey means the
// header was left unmapped.
type MappingColumn struct {
	SourceHeader    string   `json:"source_header"`
	FieldKey        *string  `json:"field_key"`
	Type            string   `json:"type"`
	Required        bool     `json:"required"`
	Transformations []string `json:"transformations,omitempty"`
}

// ColumnMapping is the per-institute finalized header mapping. While Locked
// is true the mapping is immutable except for an unlock by the superadmin.
type ColumnMapping struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	InstituteID uint           `gorm:"uniqueIndex;not null" json:"institute_id"`
	Columns     datatypes.JSON `json:"columns"` // ordered []MappingColumn
	Locked      bool           `gorm:"not null;default:false" json:"locked"`
	UpdatedBy   uint           `json:"updated_by"`
}

package model

import (
	"time"

	"gorm.io/datatypes"
)

// Field value types supported by the catalog.
const (
	FieldTypeString  = "string"
	FieldTypeNumber  = "number"
	FieldTypeBoolean = "boolean"
	FieldTypeDate    = "date"
)

// FieldDefinition is one entry of the field catalog: the authoritative
// definition of a canonical student attribute. The catalog is read-only at
// ingestion time; it is only mutated through seeding/administration.
type FieldDefinition struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FieldKey    string `gorm:"uniqueIndex;not null" json:"field_key"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Type        string `gorm:"type:varchar(10);not null" json:"type"`
	Required    bool   `gorm:"not null;default:false" json:"required"`
	// UseInML routes the value into the scoring feature set; otherwise the
	// value is identity metadata only.
	UseInML      bool           `gorm:"not null;default:true" json:"use_in_ml"`
	Category     string         `json:"category,omitempty"`
	Synonyms     datatypes.JSON `json:"synonyms"`      // JSON array of strings
	DefaultValue datatypes.JSON `json:"default_value"` // type-matching scalar, optional
}

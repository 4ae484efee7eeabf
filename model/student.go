package model

import (
	"time"

	"gorm.io/datatypes"
)

// Risk levels assigned by the scoring service.
const (
	RiskHigh   = "high"
	RiskMedium = "medium"
	RiskLow    = "low"
)

// ValidRiskLevel reports whether s is one of the known risk levels.
func ValidRiskLevel(s string) bool {
	return s == RiskHigh || s == RiskMedium || s == RiskLow
}

// StudentRecord is the canonical per-student record. A student is identified
// by (RollID, InstituteID); re-uploads containing the same roll id mutate the
// existing record. The composite unique index doubles as the serialization
// point for concurrent uploads touching the same student.
type StudentRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RollID      string `gorm:"not null;uniqueIndex:idx_students_roll_institute" json:"roll_id"`
	InstituteID uint   `gorm:"not null;uniqueIndex:idx_students_roll_institute" json:"institute_id"`
	MentorID    uint   `gorm:"not null;index" json:"mentor_id"`

	RiskLevel         string  `gorm:"type:varchar(10);not null" json:"risk_level"`
	PreviousRiskLevel *string `gorm:"type:varchar(10)" json:"previous_risk_level,omitempty"`
	// Success records a one-shot risk-improving transition to low. It is the
	// flag of the latest transition, not a cumulative state; the cumulative
	// count lives in the actor counters.
	Success bool `gorm:"not null;default:false" json:"success"`

	StandardizedInput datatypes.JSON `json:"standardized_input"`
	MetadataVersion   int            `gorm:"not null;default:1" json:"metadata_version"`
	LastUpdatedBy     uint           `gorm:"not null" json:"last_updated_by"`
}

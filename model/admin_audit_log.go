package model

import (
	"time"

	"gorm.io/gorm"
)

// AdminAuditLog records privileged actions: user management, cascading
// deletions, mapping lock changes.
type AdminAuditLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ActorID     uint           `gorm:"not null;index" json:"actor_id"`
	Action      string         `gorm:"type:varchar(100);not null" json:"action"` // e.g. "user_delete", "mapping_unlock"
	Resource    string         `gorm:"type:varchar(100)" json:"resource"`        // e.g. "users", "institutes"
	ResourceID  uint           `json:"resource_id"`
	Description string         `gorm:"type:text" json:"description"`
	IPAddress   string         `gorm:"type:varchar(45)" json:"ip_address"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Actor User `gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE" json:"actor,omitempty"`
}

// TableName specifies the table name for AdminAuditLog
func (AdminAuditLog) TableName() string {
	return "admin_audit_logs"
}

package model

import (
	"time"

	"gorm.io/gorm"
)

// Institute represents a participating institute. Each institute has at most
// one admin account and any number of mentor accounts scoped to it.
type Institute struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Name      string         `gorm:"uniqueIndex;not null" json:"name"`
	AdminID   *uint          `json:"admin_id,omitempty"`

	Admin *User `gorm:"foreignKey:AdminID" json:"admin,omitempty"`
}

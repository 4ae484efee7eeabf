package model

import (
	"time"

	"gorm.io/gorm"
)

// User roles. The hierarchy is mentor -> admin (per institute) -> superAdmin
// (platform singleton). Role is a plain tagged string; aggregation logic
// dispatches on it rather than on a type hierarchy.
const (
	RoleMentor     = "mentor"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superAdmin"
)

// AggregateCounters are the rolled-up risk/success counters attached to every
// actor. They are maintained incrementally by the aggregation service: at any
// quiescent point RiskHigh+RiskMedium+RiskLow equals the number of student
// records currently at each level within the actor's scope. The tier-specific
// pairs are only meaningful on the parent tier (Mentors* on admins,
// Institutes* on the superadmin) and stay zero elsewhere.
type AggregateCounters struct {
	RiskHigh   int64 `gorm:"not null;default:0" json:"risk_high"`
	RiskMedium int64 `gorm:"not null;default:0" json:"risk_medium"`
	RiskLow    int64 `gorm:"not null;default:0" json:"risk_low"`
	Success    int64 `gorm:"not null;default:0" json:"success"`

	MentorsActive      int64 `gorm:"not null;default:0" json:"mentors_active"`
	MentorsInactive    int64 `gorm:"not null;default:0" json:"mentors_inactive"`
	InstitutesActive   int64 `gorm:"not null;default:0" json:"institutes_active"`
	InstitutesInactive int64 `gorm:"not null;default:0" json:"institutes_inactive"`
}

// User represents a registered actor in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Role         string         `gorm:"type:varchar(20);not null;index" json:"role"`
	Department   string         `json:"department,omitempty"`
	InstituteID  *uint          `gorm:"index" json:"institute_id,omitempty"` // nil for the superadmin
	ActiveStatus bool           `gorm:"not null;default:true" json:"active_status"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all user tokens

	Counters AggregateCounters `gorm:"embedded;embeddedPrefix:agg_" json:"counters"`

	// Relationships
	Students       []StudentRecord     `gorm:"foreignKey:MentorID" json:"-"`
	TokenBlacklist []JWTTokenBlacklist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsMentor reports whether the user sits on the mentor tier.
func (u *User) IsMentor() bool { return u.Role == RoleMentor }

// IsAdmin reports whether the user sits on the institute-admin tier.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsSuperAdmin reports whether the user is the platform superadmin.
func (u *User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }

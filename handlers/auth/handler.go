package auth

import (
	"time"

	"github.com/futureguard/api/model"
	"github.com/futureguard/api/services"
	authutil "github.com/futureguard/api/utils/auth"
	"github.com/futureguard/api/utils/middleware"
	"gorm.io/gorm"
)

// AuthHandler bundles the authentication endpoints.
type AuthHandler struct {
	db                   *gorm.DB
	users                *services.UserService
	jwtManager           *authutil.JWTManager
	blacklistService     *authutil.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, users *services.UserService, jwtManager *authutil.JWTManager, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		users:                users,
		jwtManager:           jwtManager,
		blacklistService:     authutil.NewBlacklistService(db),
		bruteForceProtection: bruteForceProtection,
	}
}

// UserResponse is the account shape returned to clients.
type UserResponse struct {
	ID           uint      `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	InstituteID  *uint     `json:"institute_id,omitempty"`
	ActiveStatus bool      `json:"active_status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ToUserResponse maps an account to its API shape.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		InstituteID:  u.InstituteID,
		ActiveStatus: u.ActiveStatus,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

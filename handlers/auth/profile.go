package auth

import (
	"errors"

	"github.com/futureguard/api/services"
	authutil "github.com/futureguard/api/utils/auth"
	"github.com/futureguard/api/utils/middleware"
	"github.com/futureguard/api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// ChangePasswordRequest represents a password change request
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// GetProfile retrieves the current user's profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	return response.Success(c, ToUserResponse(user))
}

// ChangePassword updates the current user's password and invalidates every
// outstanding token.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if !authutil.IsPasswordValid(req.NewPassword) {
		return response.BadRequest(c, "New password does not meet the minimum requirements")
	}

	if err := h.users.ChangePassword(c.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return response.Unauthorized(c, "Current password is incorrect")
		}
		return response.InternalServerError(c, "Failed to change password")
	}

	return response.SuccessWithMessage(c, "Password changed, sign in again", nil)
}

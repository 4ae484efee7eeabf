package auth

import (
	authutil "github.com/futureguard/api/utils/auth"
	"github.com/futureguard/api/utils/middleware"
	"github.com/futureguard/api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// LogoutRequest optionally carries the refresh token to revoke alongside
// the access token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Logout revokes the current access token and, when provided, the refresh
// token.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return response.Unauthorized(c, "Not authenticated")
	}

	claims, ok := c.Locals("claims").(*authutil.Claims)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	if claims.ExpiresAt != nil {
		if err := h.blacklistService.RevokeToken(c.Context(), claims.ID, user.ID, claims.ExpiresAt.Time, "logout"); err != nil {
			return response.InternalServerError(c, "Failed to revoke token")
		}
	}

	var req LogoutRequest
	if err := c.BodyParser(&req); err == nil && req.RefreshToken != "" {
		if rc, err := h.jwtManager.ValidateToken(req.RefreshToken); err == nil &&
			rc.TokenType == "refresh" && rc.UserID == user.ID && rc.ExpiresAt != nil {
			_ = h.blacklistService.RevokeToken(c.Context(), rc.ID, user.ID, rc.ExpiresAt.Time, "logout")
		}
	}

	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}

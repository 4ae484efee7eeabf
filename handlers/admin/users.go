package admin

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/futureguard/api/model"
	"github.com/futureguard/api/services"
	"github.com/futureguard/api/utils/middleware"
	"github.com/futureguard/api/utils/response"
	"github.com/futureguard/api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// UserHandler bundles the user management endpoints for admins and the
// superadmin.
type UserHandler struct {
	users     *services.UserService
	agg       *services.AggregationService
	validator *validation.Validator
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService, agg *services.AggregationService) *UserHandler {
	return &UserHandler{users: users, agg: agg, validator: validation.NewValidator()}
}

// CreateMentorRequest represents a mentor creation request
type CreateMentorRequest struct {
	Name        string `json:"name" validate:"required,min=2"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	InstituteID uint   `json:"institute_id,omitempty"` // superadmin only; admins create in their own institute
}

// CreateMentor registers a mentor. Admins create mentors in their own
// institute; the superadmin must name one.
func (h *UserHandler) CreateMentor(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var req CreateMentorRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if ok, problems := validation.ValidatePassword(req.Password); !ok {
		return response.ErrorWithDetails(c, fiber.StatusBadRequest, "Password is too weak", "BAD_REQUEST", problems[0])
	}

	instituteID := req.InstituteID
	if actor.IsAdmin() {
		if actor.InstituteID == nil {
			return response.Forbidden(c, "Account is not attached to an institute")
		}
		instituteID = *actor.InstituteID
	}
	if instituteID == 0 {
		return response.BadRequest(c, "institute_id is required")
	}

	mentor, err := h.users.CreateMentor(c.Context(), req.Name, req.Email, req.Password, instituteID)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return response.Conflict(c, "Email is already registered")
		}
		return response.InternalServerError(c, "Failed to create mentor")
	}

	h.users.RecordAudit(c.Context(), actor.ID, "mentor_create", "users", mentor.ID,
		fmt.Sprintf("mentor %s created in institute %d", mentor.Email, instituteID), c.IP())

	return response.Created(c, userView(mentor))
}

// ListMentors returns mentors of an institute. Admins see their own
// institute; the superadmin passes ?institute_id=.
func (h *UserHandler) ListMentors(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var instituteID uint
	switch {
	case actor.IsAdmin():
		if actor.InstituteID == nil {
			return response.Forbidden(c, "Account is not attached to an institute")
		}
		instituteID = *actor.InstituteID
	case actor.IsSuperAdmin():
		raw := c.Query("institute_id")
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "institute_id query parameter is required")
		}
		instituteID = uint(parsed)
	default:
		return response.Forbidden(c, "Insufficient permissions")
	}

	mentors, err := h.users.ListMentors(c.Context(), instituteID)
	if err != nil {
		return response.InternalServerError(c, "Failed to list mentors")
	}

	views := make([]fiber.Map, 0, len(mentors))
	for i := range mentors {
		views = append(views, userView(&mentors[i]))
	}
	return response.Success(c, views)
}

// SetStatusRequest represents an activation toggle request
type SetStatusRequest struct {
	Active bool `json:"active"`
}

// SetStatus flips a user's active flag. Re-submitting the current state is
// a no-op.
func (h *UserHandler) SetStatus(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	target, err := h.loadTarget(c)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	if !middleware.CanActOn(actor, target) {
		return response.Forbidden(c, "Insufficient permissions")
	}

	var req SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	changed, err := h.agg.SetActiveStatus(c.Context(), target.ID, req.Active)
	if err != nil {
		return response.InternalServerError(c, "Failed to update status")
	}

	if changed {
		action := "user_deactivate"
		if req.Active {
			action = "user_activate"
		}
		h.users.RecordAudit(c.Context(), actor.ID, action, "users", target.ID,
			fmt.Sprintf("active status set to %t", req.Active), c.IP())
	}

	return response.Success(c, fiber.Map{"id": target.ID, "active": req.Active, "changed": changed})
}

// GetUser returns one account visible to the caller.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	target, err := h.loadTarget(c)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	if target.ID != actor.ID && !middleware.CanActOn(actor, target) {
		return response.Forbidden(c, "Insufficient permissions")
	}

	return response.Success(c, userView(target))
}

// UpdateUserRequest represents a profile update request
type UpdateUserRequest struct {
	Name       string `json:"name,omitempty" validate:"omitempty,min=2"`
	Department string `json:"department,omitempty"`
}

// UpdateUser changes an account's display fields. Role, email and institute
// binding are fixed at creation.
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	target, err := h.loadTarget(c)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	if !middleware.CanActOn(actor, target) {
		return response.Forbidden(c, "Insufficient permissions")
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.users.UpdateProfile(c.Context(), target, req.Name, req.Department); err != nil {
		return response.InternalServerError(c, "Failed to update user")
	}

	h.users.RecordAudit(c.Context(), actor.ID, "user_update", "users", target.ID,
		fmt.Sprintf("%s %s updated", target.Role, target.Email), c.IP())

	return response.Success(c, userView(target))
}

// DeleteUser removes an account with the cascade its role requires.
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	target, err := h.loadTarget(c)
	if err != nil {
		return response.NotFound(c, "User not found")
	}
	if !middleware.CanActOn(actor, target) {
		return response.Forbidden(c, "Insufficient permissions")
	}

	if err := h.users.DeleteUser(c.Context(), target); err != nil {
		return response.InternalServerError(c, "Failed to delete user")
	}

	h.users.RecordAudit(c.Context(), actor.ID, "user_delete", "users", target.ID,
		fmt.Sprintf("%s %s deleted", target.Role, target.Email), c.IP())

	return response.NoContent(c)
}

func (h *UserHandler) loadTarget(c *fiber.Ctx) (*model.User, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	return h.users.GetByID(c.Context(), uint(id))
}

func userView(u *model.User) fiber.Map {
	return fiber.Map{
		"id":            u.ID,
		"email":         u.Email,
		"name":          u.Name,
		"role":          u.Role,
		"institute_id":  u.InstituteID,
		"active_status": u.ActiveStatus,
		"created_at":    u.CreatedAt,
	}
}

package institute

import (
	"errors"
	"fmt"
	"strconv"

	authhandler "github.com/futureguard/api/handlers/auth"
	"github.com/futureguard/api/services"
	"github.com/futureguard/api/utils/middleware"
	"github.com/futureguard/api/utils/response"
	"github.com/futureguard/api/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// InstituteHandler bundles institute provisioning, superadmin only.
type InstituteHandler struct {
	users     *services.UserService
	validator *validation.Validator
}

// NewInstituteHandler creates a new institute handler
func NewInstituteHandler(users *services.UserService) *InstituteHandler {
	return &InstituteHandler{users: users, validator: validation.NewValidator()}
}

// CreateInstituteRequest represents an institute provisioning request
type CreateInstituteRequest struct {
	Name          string `json:"name" validate:"required,min=2"`
	AdminName     string `json:"admin_name" validate:"required,min=2"`
	AdminEmail    string `json:"admin_email" validate:"required,email"`
	AdminPassword string `json:"admin_password" validate:"required,min=8"`
}

// CreateInstitute provisions an institute together with its admin account.
func (h *InstituteHandler) CreateInstitute(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	var req CreateInstituteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}
	if ok, problems := validation.ValidatePassword(req.AdminPassword); !ok {
		return response.ErrorWithDetails(c, fiber.StatusBadRequest, "Password is too weak", "BAD_REQUEST", problems[0])
	}

	institute, admin, err := h.users.CreateInstitute(c.Context(), req.Name, req.AdminName, req.AdminEmail, req.AdminPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInstituteNameTaken):
			return response.Conflict(c, "Institute name is already registered")
		case errors.Is(err, services.ErrEmailTaken):
			return response.Conflict(c, "Admin email is already registered")
		}
		return response.InternalServerError(c, "Failed to create institute")
	}

	h.users.RecordAudit(c.Context(), actor.ID, "institute_create", "institutes", institute.ID,
		fmt.Sprintf("institute %q created with admin %s", institute.Name, admin.Email), c.IP())

	return response.Created(c, fiber.Map{
		"institute": institute,
		"admin":     authhandler.ToUserResponse(admin),
	})
}

// ListInstitutes returns every institute with its admin.
func (h *InstituteHandler) ListInstitutes(c *fiber.Ctx) error {
	institutes, err := h.users.ListInstitutes(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to list institutes")
	}
	return response.Success(c, institutes)
}

// GetInstitute returns one institute.
func (h *InstituteHandler) GetInstitute(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid institute id")
	}

	institute, err := h.users.GetInstitute(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Institute not found")
		}
		return response.InternalServerError(c, "Failed to load institute")
	}
	return response.Success(c, institute)
}

// DeleteInstitute removes an institute with its accounts and students,
// correcting the counter hierarchy on the way.
func (h *InstituteHandler) DeleteInstitute(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return response.BadRequest(c, "Invalid institute id")
	}

	if err := h.users.DeleteInstitute(c.Context(), uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "Institute not found")
		}
		return response.InternalServerError(c, "Failed to delete institute")
	}

	h.users.RecordAudit(c.Context(), actor.ID, "institute_delete", "institutes", uint(id),
		"institute deleted with all scoped accounts and students", c.IP())

	return response.NoContent(c)
}

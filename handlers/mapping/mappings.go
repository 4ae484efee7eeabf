package mapping

import (
	"fmt"

	"github.com/futureguard/api/model"
	"github.com/futureguard/api/services"
	"github.com/futureguard/api/utils/middleware"
	"github.com/futureguard/api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// MappingHandler bundles the field catalog and column mapping endpoints.
type MappingHandler struct {
	catalog  *services.CatalogService
	mappings *services.MappingService
}

// NewMappingHandler creates a new mapping handler
func NewMappingHandler(catalog *services.CatalogService, mappings *services.MappingService) *MappingHandler {
	return &MappingHandler{catalog: catalog, mappings: mappings}
}

// GetCatalog returns the field catalog.
func (h *MappingHandler) GetCatalog(c *fiber.Ctx) error {
	cat, err := h.catalog.Load(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to load field catalog")
	}
	return response.Success(c, cat)
}

// DraftRequest carries the raw header row to match against the catalog.
type DraftRequest struct {
	Headers []string `json:"headers" validate:"required"`
}

// BuildDraft fuzzy-matches headers against the catalog and returns the
// draft mapping for review.
func (h *MappingHandler) BuildDraft(c *fiber.Ctx) error {
	_, instituteID, err := h.actorInstitute(c)
	if instituteID == 0 {
		return err
	}

	var req DraftRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.Headers) == 0 {
		return response.BadRequest(c, "headers are required")
	}

	draft, err := h.mappings.BuildDraft(c.Context(), instituteID, req.Headers)
	if err != nil {
		return pipelineError(c, err, "Failed to build draft mapping")
	}
	return response.Success(c, draft)
}

// GetMapping returns the institute's stored mapping.
func (h *MappingHandler) GetMapping(c *fiber.Ctx) error {
	_, instituteID, err := h.actorInstitute(c)
	if instituteID == 0 {
		return err
	}

	mapping, err := h.mappings.Get(c.Context(), instituteID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load mapping")
	}
	if mapping == nil {
		return response.NotFound(c, "No mapping saved for this institute")
	}
	return response.Success(c, mapping)
}

// SaveRequest carries the reviewed mapping columns.
type SaveRequest struct {
	Columns []model.MappingColumn `json:"columns" validate:"required"`
}

// SaveMapping upserts the reviewed mapping.
func (h *MappingHandler) SaveMapping(c *fiber.Ctx) error {
	actor, instituteID, err := h.actorInstitute(c)
	if actor == nil || instituteID == 0 {
		return err
	}

	var req SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.Columns) == 0 {
		return response.BadRequest(c, "columns are required")
	}

	saved, err := h.mappings.Save(c.Context(), instituteID, req.Columns, actor)
	if err != nil {
		return pipelineError(c, err, "Failed to save mapping")
	}
	return response.Success(c, saved)
}

// LockRequest carries the requested lock state.
type LockRequest struct {
	Locked bool `json:"locked"`
}

// SetLock locks or unlocks the mapping. Unlock is superadmin only.
func (h *MappingHandler) SetLock(c *fiber.Ctx) error {
	actor, instituteID, err := h.actorInstitute(c)
	if actor == nil || instituteID == 0 {
		return err
	}

	var req LockRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	mapping, err := h.mappings.SetLock(c.Context(), instituteID, req.Locked, actor, c.IP())
	if err != nil {
		if err == services.ErrUnlockForbidden {
			return response.Forbidden(c, err.Error())
		}
		return pipelineError(c, err, "Failed to change lock state")
	}
	return response.Success(c, mapping)
}

// actorInstitute resolves the acting user and the institute it manages,
// writing the failure response itself when resolution fails. Admins operate
// on their own institute; the superadmin names one via the institute_id
// route parameter.
func (h *MappingHandler) actorInstitute(c *fiber.Ctx) (*model.User, uint, error) {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return nil, 0, response.Unauthorized(c, "Authentication required")
	}

	if actor.IsSuperAdmin() {
		id, err := c.ParamsInt("institute_id")
		if err != nil || id <= 0 {
			return nil, 0, response.BadRequest(c, "Invalid institute id")
		}
		return actor, uint(id), nil
	}

	if actor.InstituteID == nil {
		return nil, 0, response.Forbidden(c, "Account is not attached to an institute")
	}
	return actor, *actor.InstituteID, nil
}

// pipelineError maps classified pipeline failures onto HTTP statuses; any
// other error is a 500.
func pipelineError(c *fiber.Ctx, err error, fallback string) error {
	pe, ok := services.AsPipelineError(err)
	if !ok {
		return response.InternalServerError(c, fallback)
	}

	status := fiber.StatusBadRequest
	switch pe.Kind {
	case services.KindConfigLocked:
		status = fiber.StatusConflict
	case services.KindRequiredFieldsMissing:
		status = fiber.StatusUnprocessableEntity
	}

	details := ""
	if len(pe.Fields) > 0 {
		details = fmt.Sprintf("fields: %v", pe.Fields)
	}
	return response.ErrorWithDetails(c, status, pe.Message, string(pe.Kind), details)
}

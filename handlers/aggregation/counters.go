package aggregation

import (
	"github.com/futureguard/api/model"
	"github.com/futureguard/api/services"
	"github.com/futureguard/api/utils/middleware"
	"github.com/futureguard/api/utils/response"
	"github.com/gofiber/fiber/v2"
)

// CounterHandler serves the dashboard counters. Every role reads its own
// row; the hierarchy means an admin's row already rolls up its mentors and
// the superadmin's row the whole platform.
type CounterHandler struct {
	agg *services.AggregationService
}

// NewCounterHandler creates a new counter handler
func NewCounterHandler(agg *services.AggregationService) *CounterHandler {
	return &CounterHandler{agg: agg}
}

// counterView shapes one counters row for the dashboard.
func counterView(role string, c *model.AggregateCounters) fiber.Map {
	view := fiber.Map{
		"risk": fiber.Map{
			"high":   c.RiskHigh,
			"medium": c.RiskMedium,
			"low":    c.RiskLow,
		},
		"success": c.Success,
	}
	switch role {
	case model.RoleAdmin:
		view["mentors"] = fiber.Map{
			"active":   c.MentorsActive,
			"inactive": c.MentorsInactive,
		}
	case model.RoleSuperAdmin:
		view["institutes"] = fiber.Map{
			"active":   c.InstitutesActive,
			"inactive": c.InstitutesInactive,
		}
	}
	return view
}

// GetCounters returns the caller's own counters.
func (h *CounterHandler) GetCounters(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	counters, err := h.agg.CountersFor(c.Context(), actor.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to load counters")
	}

	return response.Success(c, counterView(actor.Role, counters))
}

// GetUserCounters returns another actor's counters, for drill-down views.
// Guarded by the same hierarchy as user management.
func (h *CounterHandler) GetUserCounters(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if actor == nil {
		return response.Unauthorized(c, "Authentication required")
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user id")
	}

	var target model.User
	if err := h.agg.LoadUser(c.Context(), uint(id), &target); err != nil {
		return response.NotFound(c, "User not found")
	}

	if !middleware.CanActOn(actor, &target) {
		return response.Forbidden(c, "Insufficient permissions")
	}

	return response.Success(c, counterView(target.Role, &target.Counters))
}

package handlers

import (
	"controltower/internal/middleware"
	"controltower/internal/mode"
	"controltower/internal/models"
	"controltower/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler serves aggregated decision statistics
type DashboardHandler struct {
	selector *mode.Selector
	stats    *services.StatsService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(selector *mode.Selector, stats *services.StatsService) *DashboardHandler {
	return &DashboardHandler{selector: selector, stats: stats}
}

// Stats returns per-day per-action decision counts. Failures degrade to an empty list.
// GET /dashboard/stats?days=7
func (h *DashboardHandler) Stats(c *fiber.Ctx) error {
	days := c.QueryInt("days", services.DefaultStatsDays)

	ds := h.selector.Select(middleware.IsSimulation(c))
	stats, err := h.stats.DecisionStats(c.UserContext(), ds, days)
	if err != nil {
		middleware.Logger(c).Error("stats failed", "days", days, "error", err)
		return c.JSON([]models.DailyActionCount{})
	}

	return c.JSON(stats)
}

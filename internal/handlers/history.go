package handlers

import (
	"fmt"

	"controltower/internal/middleware"
	"controltower/internal/mode"
	"controltower/internal/models"
	"controltower/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HistoryHandler serves precedent lookups
type HistoryHandler struct {
	selector   *mode.Selector
	precedents *services.PrecedentService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(selector *mode.Selector, precedents *services.PrecedentService) *HistoryHandler {
	return &HistoryHandler{selector: selector, precedents: precedents}
}

// SimilarEvents returns past successful resolutions of similar exceptions
// POST /get_similar_events
func (h *HistoryHandler) SimilarEvents(c *fiber.Ctx) error {
	var req models.SimilarEventsRequest
	if err := c.BodyParser(&req); err != nil {
		return retrievalError(c, fmt.Errorf("%w: invalid request body", models.ErrMalformedInput))
	}

	ds := h.selector.Select(middleware.IsSimulation(c))
	results, err := h.precedents.FindPrecedents(c.UserContext(), ds, req.EventType, req.Limit)
	if err != nil {
		middleware.Logger(c).Error("history fetch failed", "event_type", req.EventType, "error", err)
		return retrievalError(c, err)
	}

	return c.JSON(models.SimilarEventsResponse{Status: "success", Results: results})
}

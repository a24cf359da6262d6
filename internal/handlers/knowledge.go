package handlers

import (
	"fmt"

	"controltower/internal/middleware"
	"controltower/internal/mode"
	"controltower/internal/models"
	"controltower/internal/services"

	"github.com/gofiber/fiber/v2"
)

// KnowledgeHandler serves policy document retrieval and index administration
type KnowledgeHandler struct {
	selector  *mode.Selector
	knowledge *services.KnowledgeService
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(selector *mode.Selector, knowledge *services.KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{selector: selector, knowledge: knowledge}
}

// Search returns policy documents relevant to the query, filtered for the active customer
// POST /search
func (h *KnowledgeHandler) Search(c *fiber.Ctx) error {
	var req models.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return retrievalError(c, fmt.Errorf("%w: invalid request body", models.ErrMalformedInput))
	}

	ds := h.selector.Select(middleware.IsSimulation(c))
	docs, err := h.knowledge.Search(c.UserContext(), ds, req.Query)
	if err != nil {
		middleware.Logger(c).Error("search failed", "query", req.Query, "error", err)
		return retrievalError(c, err)
	}

	middleware.Logger(c).Info("search served", "query", req.Query, "results", len(docs))
	return c.JSON(models.SearchResponse{Status: "success", Results: docs})
}

// ListDocs lists what the index currently holds
// GET /list_docs
func (h *KnowledgeHandler) ListDocs(c *fiber.Ctx) error {
	ds := h.selector.Select(middleware.IsSimulation(c))
	docs, err := h.knowledge.ListDocuments(c.UserContext(), ds)
	if err != nil {
		middleware.Logger(c).Error("list docs failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"count":     len(docs),
		"documents": docs,
	})
}

// Import starts a re-ingestion of the policy documents
// POST /import_documents
func (h *KnowledgeHandler) Import(c *fiber.Ctx) error {
	ds := h.selector.Select(middleware.IsSimulation(c))
	operation, err := h.knowledge.ImportDocuments(c.UserContext(), ds)
	if err != nil {
		middleware.Logger(c).Error("import failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "started",
		"operation": operation,
	})
}

package handlers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"controltower/internal/logging"
	"controltower/internal/middleware"
	"controltower/internal/mode"
	"controltower/internal/models"
	"controltower/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	reshipmentCarrier = "FedEx Priority"
	defaultPriority   = "STANDARD"
)

// ActionHandler executes the agent's remediation tools and audits every call
type ActionHandler struct {
	selector *mode.Selector
	audit    *services.AuditService
}

// NewActionHandler creates a new action handler
func NewActionHandler(selector *mode.Selector, audit *services.AuditService) *ActionHandler {
	return &ActionHandler{selector: selector, audit: audit}
}

// UpdateETA records a revised delivery estimate
// POST /update_eta
func (h *ActionHandler) UpdateETA(c *fiber.Ctx) error {
	start := time.Now()

	var req models.UpdateETARequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.ShipmentID) == "" {
		return badRequest(c, "shipment_id is required")
	}

	logging.WithEvent(middleware.Logger(c), req.Metadata.EventID, "update_eta").
		Info("updating ETA", "shipment_id", req.ShipmentID, "new_eta", req.NewETA, "reason", req.Reason)

	h.record(c, start, models.DecisionEntry{
		EventID:      req.Metadata.EventID,
		TriggerType:  models.TriggerLateShipment,
		CustomerTier: req.Metadata.CustomerTier,
		Confidence:   req.Metadata.ConfidenceOr(0.95),
		Reasoning:    req.Reasoning,
		ActionName:   "update_eta",
	})

	return c.JSON(fiber.Map{
		"status":      "success",
		"updated_eta": req.NewETA,
	})
}

// RequestReshipment places a replacement order
// POST /request_reshipment
func (h *ActionHandler) RequestReshipment(c *fiber.Ctx) error {
	start := time.Now()

	var req models.ReshipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.OriginalShipmentID) == "" {
		return badRequest(c, "original_shipment_id is required")
	}
	priority := req.Priority
	if priority == "" {
		priority = defaultPriority
	}

	newOrderID := "ORD-RESHIP-" + shortHex(8)
	trackingID := "TRK-" + strings.ToUpper(shortHex(10))

	logging.WithEvent(middleware.Logger(c), req.Metadata.EventID, "request_reshipment").
		Info("requesting reshipment", "original_shipment_id", req.OriginalShipmentID, "priority", priority, "new_order_id", newOrderID)

	h.record(c, start, models.DecisionEntry{
		EventID:      req.Metadata.EventID,
		TriggerType:  models.TriggerReshipment,
		CustomerTier: req.Metadata.CustomerTier,
		Confidence:   req.Metadata.ConfidenceOr(0.98),
		Reasoning:    req.Reasoning,
		ActionName:   "request_reshipment",
	})

	return c.JSON(fiber.Map{
		"status":       "success",
		"new_order_id": newOrderID,
		"tracking_id":  trackingID,
		"carrier":      reshipmentCarrier,
		"priority":     priority,
	})
}

// EscalateToHuman opens a ticket for a human supervisor
// POST /escalate_to_human
func (h *ActionHandler) EscalateToHuman(c *fiber.Ctx) error {
	start := time.Now()

	var req models.EscalationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.ShipmentID) == "" {
		return badRequest(c, "shipment_id is required")
	}
	reasoning := req.Reasoning
	if reasoning == "" {
		reasoning = req.Reason
	}

	ticketID := "TKT-" + shortHex(8)

	logging.WithEvent(middleware.Logger(c), req.Metadata.EventID, "escalate_to_human").
		Info("escalating", "shipment_id", req.ShipmentID, "reason", req.Reason, "ticket_id", ticketID)

	h.record(c, start, models.DecisionEntry{
		EventID:      req.Metadata.EventID,
		TriggerType:  models.TriggerEscalation,
		CustomerTier: req.Metadata.CustomerTier,
		Confidence:   req.Metadata.ConfidenceOr(1.0),
		Reasoning:    reasoning,
		ActionName:   "escalate_to_human",
	})

	return c.JSON(fiber.Map{
		"status":    "escalated",
		"ticket_id": ticketID,
	})
}

// ResolveHumanTask records the decision a supervisor took on an escalated event
// POST /resolve_human_task
func (h *ActionHandler) ResolveHumanTask(c *fiber.Ctx) error {
	start := time.Now()

	var req models.HumanResolutionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if strings.TrimSpace(req.EventID) == "" {
		return badRequest(c, "event_id is required")
	}
	if strings.TrimSpace(req.Action) == "" {
		return badRequest(c, "action is required")
	}

	logging.WithEvent(middleware.Logger(c), req.EventID, req.Action).
		Info("human resolved event")

	h.record(c, start, models.DecisionEntry{
		EventID:      req.EventID,
		AgentVersion: models.HumanSupervisor,
		TriggerType:  models.TriggerHumanResolution,
		CustomerTier: req.Metadata.CustomerTier,
		Confidence:   req.Metadata.ConfidenceOr(1.0),
		Reasoning:    req.Reason,
		ActionName:   req.Action,
	})

	return c.JSON(fiber.Map{"status": "resolved"})
}

// record hands the decision to the audit logger with the raw request as tool parameters
func (h *ActionHandler) record(c *fiber.Ctx, start time.Time, entry models.DecisionEntry) {
	entry.Params = rawParams(c.Body())
	entry.Status = models.StatusSuccess
	entry.Latency = time.Since(start)
	h.audit.Record(h.selector.Select(middleware.IsSimulation(c)), entry)
}

// rawParams keeps the body verbatim when it is valid JSON
func rawParams(body []byte) interface{} {
	if json.Valid(body) {
		return json.RawMessage(append([]byte(nil), body...))
	}
	return fmt.Sprintf("%q", body)
}

func shortHex(n int) string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:n]
}

package models

// ActionMetadata is the context the agent attaches to every action call
type ActionMetadata struct {
	EventID      string   `json:"event_id"`
	CustomerTier string   `json:"customer_tier"`
	Confidence   *float64 `json:"confidence,omitempty"`
}

// ConfidenceOr returns the caller-supplied confidence or the action default
func (m ActionMetadata) ConfidenceOr(def float64) float64 {
	if m.Confidence != nil {
		return *m.Confidence
	}
	return def
}

// UpdateETARequest is the body of POST /update_eta
type UpdateETARequest struct {
	ShipmentID string         `json:"shipment_id"`
	NewETA     string         `json:"new_eta"`
	Reason     string         `json:"reason"`
	Reasoning  string         `json:"reasoning"`
	Metadata   ActionMetadata `json:"metadata"`
}

// ReshipmentRequest is the body of POST /request_reshipment
type ReshipmentRequest struct {
	OriginalShipmentID string         `json:"original_shipment_id"`
	Priority           string         `json:"priority"`
	Reasoning          string         `json:"reasoning"`
	Metadata           ActionMetadata `json:"metadata"`
}

// EscalationRequest is the body of POST /escalate_to_human
type EscalationRequest struct {
	ShipmentID string         `json:"shipment_id"`
	Reason     string         `json:"reason"`
	Reasoning  string         `json:"reasoning"`
	Metadata   ActionMetadata `json:"metadata"`
}

// HumanResolutionRequest is the body of POST /resolve_human_task
type HumanResolutionRequest struct {
	EventID  string         `json:"event_id"`
	Action   string         `json:"action"`
	Reason   string         `json:"reason"`
	Metadata ActionMetadata `json:"metadata"`
}

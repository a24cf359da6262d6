package models

import "time"

const (
	// UnknownEventID is recorded when the caller did not identify the event
	UnknownEventID = "unknown"

	// StatusSuccess is the default execution status of a recorded decision
	StatusSuccess = "SUCCESS"

	// HumanSupervisor is the agent version recorded for human resolutions
	HumanSupervisor = "HUMAN_SUPERVISOR"
)

// Trigger types recorded with each decision
const (
	TriggerLateShipment    = "LATE_SHIPMENT_HANDLER"
	TriggerReshipment      = "RESHIPMENT_HANDLER"
	TriggerEscalation      = "EXCEPTION_ESCALATION"
	TriggerHumanResolution = "HUMAN_RESOLUTION"
)

// DecisionLogRecord is one append-only audit entry describing a tool invocation
type DecisionLogRecord struct {
	LogID              string    `json:"log_id" bson:"log_id"`
	Timestamp          time.Time `json:"timestamp" bson:"timestamp"`
	EventID            string    `json:"event_id" bson:"event_id"`
	AgentVersion       string    `json:"agent_version" bson:"agent_version"`
	TriggerType        string    `json:"trigger_type" bson:"trigger_type"`
	CustomerTier       string    `json:"customer_tier" bson:"customer_tier"`
	Confidence         float64   `json:"confidence_score" bson:"confidence_score"`
	Reasoning          string    `json:"reasoning" bson:"reasoning"`
	ActionName         string    `json:"action_name" bson:"action_name"`
	ToolParameters     string    `json:"tool_parameters" bson:"tool_parameters"`
	ExecutionStatus    string    `json:"execution_status" bson:"execution_status"`
	ExecutionLatencyMs int64     `json:"execution_latency_ms" bson:"execution_latency_ms"`
}

// DecisionEntry is what a caller knows about an action when asking for it to be audited.
// Zero values are replaced by the audit logger's defaults.
type DecisionEntry struct {
	EventID      string
	AgentVersion string
	TriggerType  string
	CustomerTier string
	Confidence   float64
	Reasoning    string
	ActionName   string
	Params       interface{}
	Status       string
	Latency      time.Duration
}

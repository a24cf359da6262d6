package models

// Outcome is the terminal execution status of a past resolution
type Outcome string

const (
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomeFailure   Outcome = "FAILURE"
	OutcomeEscalated Outcome = "ESCALATED"
)

// HistoricalEvent is a past exception resolution used as a precedent.
// The lifecycle of these records is owned by the event store.
type HistoricalEvent struct {
	EventID   string  `json:"event_id" bson:"event_id"`
	EventType string  `json:"event_type" bson:"event_type"`
	Action    string  `json:"action" bson:"action_name"`
	Reasoning string  `json:"reasoning" bson:"reasoning"`
	Outcome   Outcome `json:"outcome" bson:"execution_status"`
}

// SimilarEventsRequest is the body of POST /get_similar_events
type SimilarEventsRequest struct {
	EventType string `json:"event_type"`
	Limit     int    `json:"limit"`
}

// SimilarEventsResponse is the envelope returned by POST /get_similar_events
type SimilarEventsResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Results []HistoricalEvent `json:"results"`
}

// DailyActionCount is one row of the dashboard statistics
type DailyActionCount struct {
	Date   string `json:"date" bson:"date"`
	Action string `json:"action" bson:"action"`
	Count  int64  `json:"count" bson:"count"`
}

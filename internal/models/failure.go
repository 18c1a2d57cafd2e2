package models

import "time"

// FailureType tags the broad category of a failed operation. The set is open:
// collaborators may report new categories without a code change here.
type FailureType string

// Known failure types reported by the support agents today.
const (
	FailureTypePayment  FailureType = "payment"
	FailureTypeFraud    FailureType = "fraud"
	FailureTypeShipping FailureType = "shipping"
)

// FailureEventInput is the payload collaborators submit when an operation
// fails. The caller stamps Timestamp; the store assigns the ID.
type FailureEventInput struct {
	FailureType   FailureType       `json:"failure_type"`
	AgentName     string            `json:"agent_name"`
	Gateway       string            `json:"gateway,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	RequestID     string            `json:"request_id"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// FailureEvent is an immutable record of one failed operation. Events are never
// mutated after insertion; the store only evicts them oldest-first.
type FailureEvent struct {
	ID            string            `json:"id"`
	FailureType   FailureType       `json:"failure_type"`
	AgentName     string            `json:"agent_name"`
	Gateway       string            `json:"gateway,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	RequestID     string            `json:"request_id"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// StoreStats describes the current contents of the event store.
type StoreStats struct {
	TotalEvents     int        `json:"total_events"`
	OldestEventTime *time.Time `json:"oldest_event_time,omitempty"`
	NewestEventTime *time.Time `json:"newest_event_time,omitempty"`
}

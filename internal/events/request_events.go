package events

import "time"

const RequestLifecycleTopic = "idos.request.lifecycle.v1"

const (
	AggregateRequest = "request"

	EventRequestSubmitted     = "request_submitted"
	EventRequestStatusChanged = "request_status_changed"
)

type RequestSubmittedEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id"`
	UserID     string    `json:"user_id"`
	Type       string    `json:"type"`
	Date       string    `json:"date"`
	Duration   int       `json:"duration"`
	OccurredAt time.Time `json:"occurred_at"`
}

type RequestStatusChangedEvent struct {
	EventType    string    `json:"event_type"`
	RequestID    string    `json:"request_id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	Date         string    `json:"date"`
	Duration     int       `json:"duration"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	ReviewerID   string    `json:"reviewer_id"`
	ReviewerRole string    `json:"reviewer_role"`
	OccurredAt   time.Time `json:"occurred_at"`
}

package events

import (
	"time"

	"github.com/spec-kit/bugtrack/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventDevReportSubmitted  EventType = "dev_report_submitted"
	EventQAReviewSubmitted   EventType = "qa_review_submitted"
	EventRegressionSubmitted EventType = "regression_submitted"
	EventTicketStatusChanged EventType = "ticket_status_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ExternalKey string          `json:"external_key"`
	Severity    domain.Severity `json:"severity"`
	Title       string          `json:"title"`
	AssigneeID  *string         `json:"assignee_id,omitempty"`
}

// DevReportSubmittedPayload payload.
type DevReportSubmittedPayload struct {
	ReportID          string `json:"report_id"`
	IssueType         string `json:"issue_type"`
	RegressionVersion string `json:"regression_version"`
}

// QAReviewSubmittedPayload payload.
type QAReviewSubmittedPayload struct {
	ReviewID       string  `json:"review_id"`
	AgreeToRelease bool    `json:"agree_to_release"`
	RegressorID    *string `json:"regressor_id,omitempty"`
}

// RegressionSubmittedPayload payload.
type RegressionSubmittedPayload struct {
	TestID string `json:"test_id"`
	Passed bool   `json:"passed"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	// IN_DEVELOPMENT and REOPENED are reachable only through administrative
	// tooling; no workflow operation produces them.
	TicketStatusOpen           TicketStatus = "OPEN"
	TicketStatusInDevelopment  TicketStatus = "IN_DEVELOPMENT"
	TicketStatusUnderReview    TicketStatus = "UNDER_REVIEW"
	TicketStatusInRegression   TicketStatus = "IN_REGRESSION"
	TicketStatusInModification TicketStatus = "IN_MODIFICATION"
	TicketStatusClosed         TicketStatus = "CLOSED"
	TicketStatusReopened       TicketStatus = "REOPENED"
)

// Severity enumerates defect impact levels.
type Severity string

const (
	SeverityHint     Severity = "HINT"
	SeverityNormal   Severity = "NORMAL"
	SeveritySevere   Severity = "SEVERE"
	SeverityCritical Severity = "CRITICAL"
)

// ValidSeverity reports whether the value is a member of the severity set.
func ValidSeverity(severity Severity) bool {
	switch severity {
	case SeverityHint, SeverityNormal, SeveritySevere, SeverityCritical:
		return true
	}
	return false
}

// Ticket is the aggregate root for a tracked defect. SubmitterID is set at
// creation and never changes; QAReviewerID and RegressorID are set by the QA
// review step.
type Ticket struct {
	ID              string
	ExternalKey     string
	Title           string
	Description     string
	SoftwareName    string
	SoftwareVersion string
	Module          string
	Severity        Severity
	DiscoveredAt    time.Time
	Status          TicketStatus
	SubmitterID     string
	AssigneeID      *string
	QAReviewerID    *string
	RegressorID     *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

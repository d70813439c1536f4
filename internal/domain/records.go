package domain

import "time"

// DevReport is an immutable record of a developer's fix report. Records are
// never updated or deleted once written.
type DevReport struct {
	ID                  string
	TicketID            string
	IssueType           string
	RootCause           string
	SelfTestReport      string
	SelfTestEvidence    *string
	RegressionVersion   string
	Module              string
	PullRequestURL      *string
	AssignedDeveloperID string
	CreatedAt           time.Time
}

// QAReview is an immutable record of a QA release decision.
type QAReview struct {
	ID                 string
	TicketID           string
	Comment            string
	AgreeToRelease     bool
	DesignatedTesterID *string
	ReleaseQAID        string
	CreatedAt          time.Time
}

// RegressionTest is an immutable record of a regression run outcome.
type RegressionTest struct {
	ID                string
	TicketID          string
	RegressionVersion string
	Passed            bool
	Report            string
	TesterID          string
	CreatedAt         time.Time
}

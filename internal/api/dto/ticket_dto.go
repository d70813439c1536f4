package dto

import (
	"encoding/json"
	"time"

	"github.com/spec-kit/bugtrack/internal/domain"
)

// UserRef decodes a user reference given either as a bare identifier or as an
// object carrying one, e.g. "abc" or {"id": "abc"}.
type UserRef struct {
	ID string `json:"id"`
}

func (r *UserRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		r.ID = id
		return nil
	}
	type plain UserRef
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	SoftwareName    string          `json:"software_name"`
	SoftwareVersion string          `json:"software_version"`
	Module          string          `json:"module"`
	Severity        domain.Severity `json:"severity"`
	DiscoveredAt    *time.Time      `json:"discovered_at"`
	Assignee        *UserRef        `json:"assignee"`
}

// DevReportRequest payload.
type DevReportRequest struct {
	IssueType         string  `json:"issue_type"`
	RootCause         string  `json:"root_cause"`
	SelfTestReport    string  `json:"self_test_report"`
	SelfTestEvidence  *string `json:"self_test_evidence"`
	RegressionVersion string  `json:"regression_version"`
	Module            string  `json:"module"`
	PullRequestURL    *string `json:"pr_url"`
}

// QAReviewRequest payload. AgreeToRelease is a pointer so a missing boolean
// fails validation instead of defaulting to false.
type QAReviewRequest struct {
	AgreeToRelease   *bool   `json:"agree_to_release"`
	Comment          string  `json:"comment"`
	DesignatedTester *string `json:"designated_tester"`
}

// RegressionRequest payload.
type RegressionRequest struct {
	Passed            *bool  `json:"passed"`
	RegressionVersion string `json:"regression_version"`
	Report            string `json:"report"`
}

// UserSummary is the denormalized user view embedded in ticket responses.
type UserSummary struct {
	ID       string      `json:"id"`
	Username string      `json:"username"`
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
}

// DevReportResponse represents one developer fix report.
type DevReportResponse struct {
	ID                string       `json:"id"`
	IssueType         string       `json:"issue_type"`
	RootCause         string       `json:"root_cause"`
	SelfTestReport    string       `json:"self_test_report"`
	SelfTestEvidence  *string      `json:"self_test_evidence,omitempty"`
	RegressionVersion string       `json:"regression_version"`
	Module            string       `json:"module"`
	PullRequestURL    *string      `json:"pr_url,omitempty"`
	AssignedDeveloper *UserSummary `json:"assigned_developer"`
	CreatedAt         time.Time    `json:"created_at"`
}

// QAReviewResponse represents one QA release decision.
type QAReviewResponse struct {
	ID               string       `json:"id"`
	Comment          string       `json:"comment"`
	AgreeToRelease   bool         `json:"agree_to_release"`
	DesignatedTester *UserSummary `json:"designated_tester,omitempty"`
	ReleaseQA        *UserSummary `json:"release_qa"`
	CreatedAt        time.Time    `json:"created_at"`
}

// RegressionResponse represents one regression run outcome.
type RegressionResponse struct {
	ID                string       `json:"id"`
	RegressionVersion string       `json:"regression_version"`
	Passed            bool         `json:"passed"`
	Report            string       `json:"report"`
	Tester            *UserSummary `json:"tester"`
	CreatedAt         time.Time    `json:"created_at"`
}

// TicketResponse provides the full assembled ticket view.
type TicketResponse struct {
	ID              string               `json:"id"`
	ExternalKey     string               `json:"external_key"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	SoftwareName    string               `json:"software_name"`
	SoftwareVersion string               `json:"software_version"`
	Module          string               `json:"module"`
	Severity        domain.Severity      `json:"severity"`
	DiscoveredAt    time.Time            `json:"discovered_at"`
	Status          domain.TicketStatus  `json:"current_status"`
	Submitter       *UserSummary         `json:"submitter"`
	Assignee        *UserSummary         `json:"assignee,omitempty"`
	QAReviewer      *UserSummary         `json:"qa_reviewer,omitempty"`
	Regressor       *UserSummary         `json:"regressor,omitempty"`
	DevReports      []DevReportResponse  `json:"dev_reports"`
	QAReviews       []QAReviewResponse   `json:"qa_reviews"`
	Regressions     []RegressionResponse `json:"regression_tests"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

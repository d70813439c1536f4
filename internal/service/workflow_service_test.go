package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bugtrack/internal/domain"
	apperrors "github.com/spec-kit/bugtrack/pkg/util"
)

func devReportInput() DevReportInput {
	return DevReportInput{
		IssueType:         "Bug",
		RootCause:         "Null pointer dereference",
		SelfTestReport:    "Tested on Chrome and Edge.",
		RegressionVersion: "1.0.1",
		Module:            "Login",
	}
}

func seedTicket(s *memStore, submitterID string, assigneeID *string) *domain.Ticket {
	ticket := &domain.Ticket{
		ExternalKey:     "BUG-SEED",
		Title:           "Login captcha not shown",
		Description:     "On iOS Safari the captcha image is missing.",
		SoftwareName:    "Portal",
		SoftwareVersion: "1.0.0",
		Module:          "Login",
		Severity:        domain.SeverityNormal,
		DiscoveredAt:    s.clock,
		Status:          domain.TicketStatusOpen,
		SubmitterID:     submitterID,
		AssigneeID:      assigneeID,
	}
	_ = (&memTickets{s}).Create(context.Background(), ticket)
	return ticket
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).Code
}

func TestSubmitDevReport_AssignedDeveloper(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	ticket := seedTicket(s, tester.ID, &dev.ID)
	svc := newTestWorkflowService(s)

	updated, err := svc.SubmitDevReport(context.Background(), dev, ticket.ID, devReportInput())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusUnderReview, updated.Status)
	reports, _ := (&memDevReports{s}).ListByTicket(context.Background(), ticket.ID)
	require.Len(t, reports, 1)
	assert.Equal(t, dev.ID, reports[0].AssignedDeveloperID)
}

func TestSubmitDevReport_UnassignedTicketAcceptsAnyDeveloper(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	updated, err := svc.SubmitDevReport(context.Background(), dev, ticket.ID, devReportInput())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUnderReview, updated.Status)
}

func TestSubmitDevReport_WrongAssigneeForbidden(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	other := s.addUser("u-dev2", "dev2", domain.RoleDeveloper)
	ticket := seedTicket(s, tester.ID, &dev.ID)
	svc := newTestWorkflowService(s)

	_, err := svc.SubmitDevReport(context.Background(), other, ticket.ID, devReportInput())
	assert.Equal(t, "FORBIDDEN", errCode(t, err))

	// Nothing was appended and the status did not move.
	reports, _ := (&memDevReports{s}).ListByTicket(context.Background(), ticket.ID)
	assert.Empty(t, reports)
	stored, _ := (&memTickets{s}).GetByID(context.Background(), ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
}

func TestSubmitDevReport_WrongRoleUnauthorized(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	qa := s.addUser("u-qa", "qa1", domain.RoleQA)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	_, err := svc.SubmitDevReport(context.Background(), qa, ticket.ID, devReportInput())
	assert.Equal(t, "UNAUTHORIZED", errCode(t, err))
}

func TestSubmitDevReport_MissingFieldsValidation(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	input := devReportInput()
	input.RootCause = ""
	input.Module = ""
	_, err := svc.SubmitDevReport(context.Background(), dev, ticket.ID, input)
	require.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	details := apperrors.ToDomainError(err).Details
	assert.Contains(t, details, "root_cause")
	assert.Contains(t, details, "module")
}

func TestSubmitDevReport_TicketNotFound(t *testing.T) {
	s := newMemStore()
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	svc := newTestWorkflowService(s)

	_, err := svc.SubmitDevReport(context.Background(), dev, "missing", devReportInput())
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestSubmitDevReport_AlwaysMovesToUnderReview(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	ticket := seedTicket(s, tester.ID, nil)
	s.tickets[ticket.ID].Status = domain.TicketStatusClosed
	svc := newTestWorkflowService(s)

	updated, err := svc.SubmitDevReport(context.Background(), dev, ticket.ID, devReportInput())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUnderReview, updated.Status)
}

func TestSubmitQAReview_AgreeWithoutDesignatedTester(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	qa := s.addUser("u-qa", "qa1", domain.RoleQA)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	agree := true
	updated, err := svc.SubmitQAReview(context.Background(), qa, ticket.ID, QAReviewInput{AgreeToRelease: &agree})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusInRegression, updated.Status)
	require.NotNil(t, updated.QAReviewerID)
	assert.Equal(t, qa.ID, *updated.QAReviewerID)
	require.NotNil(t, updated.RegressorID, "regressor must fall back to the submitter")
	assert.Equal(t, tester.ID, *updated.RegressorID)
}

func TestSubmitQAReview_AgreeWithDesignatedTester(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	designated := s.addUser("u-tester2", "tester2", domain.RoleTester)
	qa := s.addUser("u-qa", "qa1", domain.RoleQA)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	agree := true
	updated, err := svc.SubmitQAReview(context.Background(), qa, ticket.ID, QAReviewInput{
		AgreeToRelease:     &agree,
		Comment:            "looks good",
		DesignatedTesterID: &designated.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusInRegression, updated.Status)
	require.NotNil(t, updated.RegressorID)
	assert.Equal(t, designated.ID, *updated.RegressorID)
}

func TestSubmitQAReview_DisagreeLeavesRegressorUnset(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	qa := s.addUser("u-qa", "qa1", domain.RoleQA)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	agree := false
	updated, err := svc.SubmitQAReview(context.Background(), qa, ticket.ID, QAReviewInput{AgreeToRelease: &agree})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusInModification, updated.Status)
	assert.Nil(t, updated.RegressorID)
	require.NotNil(t, updated.QAReviewerID)
	assert.Equal(t, qa.ID, *updated.QAReviewerID)
}

func TestSubmitQAReview_MissingAgreeValidation(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	qa := s.addUser("u-qa", "qa1", domain.RoleQA)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	_, err := svc.SubmitQAReview(context.Background(), qa, ticket.ID, QAReviewInput{})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestSubmitQAReview_NonQAUnauthorized(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	// Wrong role loses even with a valid payload.
	agree := true
	_, err := svc.SubmitQAReview(context.Background(), dev, ticket.ID, QAReviewInput{AgreeToRelease: &agree})
	assert.Equal(t, "UNAUTHORIZED", errCode(t, err))
}

func TestSubmitQAReview_UnknownDesignatedTester(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	qa := s.addUser("u-qa", "qa1", domain.RoleQA)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	agree := true
	unknown := "u-ghost"
	_, err := svc.SubmitQAReview(context.Background(), qa, ticket.ID, QAReviewInput{
		AgreeToRelease:     &agree,
		DesignatedTesterID: &unknown,
	})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestSubmitRegression_PassClosesTicket(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	passed := true
	updated, err := svc.SubmitRegression(context.Background(), tester, ticket.ID, RegressionInput{Passed: &passed})
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusClosed, updated.Status)
	tests, _ := (&memRegressions{s}).ListByTicket(context.Background(), ticket.ID)
	require.Len(t, tests, 1)
	assert.Equal(t, tester.ID, tests[0].TesterID)
}

func TestSubmitRegression_FailReturnsToUnderReview(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	passed := false
	updated, err := svc.SubmitRegression(context.Background(), tester, ticket.ID, RegressionInput{Passed: &passed, Report: "still broken"})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUnderReview, updated.Status)
}

func TestSubmitRegression_WrongRegressorForbidden(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	other := s.addUser("u-tester2", "tester2", domain.RoleTester)
	ticket := seedTicket(s, tester.ID, nil)
	s.tickets[ticket.ID].RegressorID = &tester.ID
	svc := newTestWorkflowService(s)

	passed := true
	_, err := svc.SubmitRegression(context.Background(), other, ticket.ID, RegressionInput{Passed: &passed})
	assert.Equal(t, "FORBIDDEN", errCode(t, err))
}

func TestSubmitRegression_MissingPassedValidation(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	_, err := svc.SubmitRegression(context.Background(), tester, ticket.ID, RegressionInput{})
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestSubmitRegression_NonTesterUnauthorized(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestWorkflowService(s)

	passed := true
	_, err := svc.SubmitRegression(context.Background(), dev, ticket.ID, RegressionInput{Passed: &passed})
	assert.Equal(t, "UNAUTHORIZED", errCode(t, err))
}

// TestWorkflowLifecycle walks a ticket through two full review cycles:
// assigned dev report, QA approval with a designated tester, failed
// regression, second dev report, QA approval falling back to the submitter,
// passing regression.
func TestWorkflowLifecycle(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	qa := s.addUser("u-qa", "qa1", domain.RoleQA)
	ticket := seedTicket(s, tester.ID, &dev.ID)
	svc := newTestWorkflowService(s)
	ctx := context.Background()

	updated, err := svc.SubmitDevReport(ctx, dev, ticket.ID, devReportInput())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUnderReview, updated.Status)

	agree := true
	updated, err = svc.SubmitQAReview(ctx, qa, ticket.ID, QAReviewInput{AgreeToRelease: &agree, DesignatedTesterID: &tester.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInRegression, updated.Status)
	assert.Equal(t, tester.ID, *updated.RegressorID)

	failed := false
	updated, err = svc.SubmitRegression(ctx, tester, ticket.ID, RegressionInput{Passed: &failed})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUnderReview, updated.Status)

	updated, err = svc.SubmitDevReport(ctx, dev, ticket.ID, devReportInput())
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusUnderReview, updated.Status)
	reports, _ := (&memDevReports{s}).ListByTicket(ctx, ticket.ID)
	assert.Len(t, reports, 2)

	updated, err = svc.SubmitQAReview(ctx, qa, ticket.ID, QAReviewInput{AgreeToRelease: &agree})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInRegression, updated.Status)
	assert.Equal(t, tester.ID, *updated.RegressorID, "regressor falls back to the submitter")

	passed := true
	updated, err = svc.SubmitRegression(ctx, tester, ticket.ID, RegressionInput{Passed: &passed})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, updated.Status)

	tests, _ := (&memRegressions{s}).ListByTicket(ctx, ticket.ID)
	assert.Len(t, tests, 2)

	// The submitter never changed across six operations.
	assert.Equal(t, tester.ID, updated.SubmitterID)
}

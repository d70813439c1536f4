package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/bugtrack/internal/domain"
	apperrors "github.com/spec-kit/bugtrack/pkg/util"
)

func ticketCreateInput() TicketCreateInput {
	return TicketCreateInput{
		Title:           "Broken pagination",
		Description:     "Page two of the search results repeats page one.",
		SoftwareName:    "Portal",
		SoftwareVersion: "2.3.0",
		Module:          "Search",
	}
}

func TestCreateTicket_Defaults(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	fixed := time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)
	svc := newTestTicketService(s, func() time.Time { return fixed })

	ticket, err := svc.CreateTicket(context.Background(), tester, ticketCreateInput())
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.SeverityNormal, ticket.Severity)
	assert.Equal(t, fixed, ticket.DiscoveredAt, "discovered_at defaults to the clock instant")
	assert.Equal(t, tester.ID, ticket.SubmitterID)
	assert.Nil(t, ticket.AssigneeID)
	assert.True(t, strings.HasPrefix(ticket.ExternalKey, "BUG-"))
}

func TestCreateTicket_ExplicitDiscoveredAt(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	svc := newTestTicketService(s, nil)

	discovered := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	input := ticketCreateInput()
	input.DiscoveredAt = &discovered
	input.Severity = domain.SeverityCritical

	ticket, err := svc.CreateTicket(context.Background(), tester, input)
	require.NoError(t, err)
	assert.Equal(t, discovered, ticket.DiscoveredAt)
	assert.Equal(t, domain.SeverityCritical, ticket.Severity)
}

func TestCreateTicket_MissingFields(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	svc := newTestTicketService(s, nil)

	input := ticketCreateInput()
	input.Title = "   "
	input.SoftwareVersion = ""
	_, err := svc.CreateTicket(context.Background(), tester, input)
	require.Equal(t, "VALIDATION_FAILED", errCode(t, err))

	details := apperrors.ToDomainError(err).Details
	assert.Contains(t, details, "title")
	assert.Contains(t, details, "software_version")
}

func TestCreateTicket_InvalidSeverity(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	svc := newTestTicketService(s, nil)

	input := ticketCreateInput()
	input.Severity = domain.Severity("BLOCKER")
	_, err := svc.CreateTicket(context.Background(), tester, input)
	assert.Equal(t, "VALIDATION_FAILED", errCode(t, err))
}

func TestCreateTicket_UnknownAssignee(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	svc := newTestTicketService(s, nil)

	unknown := "u-ghost"
	input := ticketCreateInput()
	input.AssigneeID = &unknown
	_, err := svc.CreateTicket(context.Background(), tester, input)
	require.Equal(t, "VALIDATION_FAILED", errCode(t, err))
	assert.Empty(t, s.tickets, "no ticket persists when the assignee is unknown")
}

func TestCreateTicket_WithAssignee(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	svc := newTestTicketService(s, nil)

	input := ticketCreateInput()
	input.AssigneeID = &dev.ID
	ticket, err := svc.CreateTicket(context.Background(), tester, input)
	require.NoError(t, err)
	require.NotNil(t, ticket.AssigneeID)
	assert.Equal(t, dev.ID, *ticket.AssigneeID)
}

func TestGetTicketView_NotFound(t *testing.T) {
	s := newMemStore()
	svc := newTestTicketService(s, nil)

	_, err := svc.GetTicketView(context.Background(), "missing")
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestGetTicketView_AssemblesNewestFirst(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	dev := s.addUser("u-dev", "dev1", domain.RoleDeveloper)
	qa := s.addUser("u-qa", "qa1", domain.RoleQA)
	ticket := seedTicket(s, tester.ID, &dev.ID)
	workflow := newTestWorkflowService(s)
	svc := newTestTicketService(s, nil)
	ctx := context.Background()

	first := devReportInput()
	first.RegressionVersion = "1.0.1"
	_, err := workflow.SubmitDevReport(ctx, dev, ticket.ID, first)
	require.NoError(t, err)

	disagree := false
	_, err = workflow.SubmitQAReview(ctx, qa, ticket.ID, QAReviewInput{AgreeToRelease: &disagree, Comment: "self test too thin"})
	require.NoError(t, err)

	second := devReportInput()
	second.RegressionVersion = "1.0.2"
	_, err = workflow.SubmitDevReport(ctx, dev, ticket.ID, second)
	require.NoError(t, err)

	view, err := svc.GetTicketView(ctx, ticket.ID)
	require.NoError(t, err)

	require.Len(t, view.DevReports, 2)
	assert.Equal(t, "1.0.2", view.DevReports[0].RegressionVersion, "latest report first")
	assert.Equal(t, "1.0.1", view.DevReports[1].RegressionVersion)
	require.Len(t, view.QAReviews, 1)
	assert.Empty(t, view.Regressions)

	// Every referenced user resolves into the summary map.
	assert.Contains(t, view.Users, tester.ID)
	assert.Contains(t, view.Users, dev.ID)
	assert.Contains(t, view.Users, qa.ID)
	assert.Equal(t, "qa1", view.Users[qa.ID].Username)
}

func TestGetTicketView_ReadIsIdempotent(t *testing.T) {
	s := newMemStore()
	tester := s.addUser("u-tester", "tester1", domain.RoleTester)
	ticket := seedTicket(s, tester.ID, nil)
	svc := newTestTicketService(s, nil)
	ctx := context.Background()

	first, err := svc.GetTicketView(ctx, ticket.ID)
	require.NoError(t, err)
	second, err := svc.GetTicketView(ctx, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Ticket, second.Ticket)
	assert.Equal(t, first.DevReports, second.DevReports)
	assert.Equal(t, first.Users, second.Users)
}

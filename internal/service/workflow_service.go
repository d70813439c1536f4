package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bugtrack/internal/domain"
	"github.com/spec-kit/bugtrack/internal/events"
	"github.com/spec-kit/bugtrack/internal/repository"
	apperrors "github.com/spec-kit/bugtrack/pkg/util"
)

// WorkflowService holds the ticket status state machine: the three role-gated
// submission operations that append an immutable record and move the ticket to
// its next status. Each operation runs as one transaction with the ticket row
// locked, so concurrent submissions against the same ticket serialize.
type WorkflowService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	devReports  repository.DevReportRepository
	qaReviews   repository.QAReviewRepository
	regressions repository.RegressionTestRepository
	transactor  repository.Transactor
	dispatcher  events.Dispatcher
}

// WorkflowDependencies bundles repositories for the workflow service.
type WorkflowDependencies struct {
	TicketRepo     repository.TicketRepository
	UserRepo       repository.UserRepository
	DevReportRepo  repository.DevReportRepository
	QAReviewRepo   repository.QAReviewRepository
	RegressionRepo repository.RegressionTestRepository
	Transactor     repository.Transactor
	Dispatcher     events.Dispatcher
}

// NewWorkflowService constructs the service.
func NewWorkflowService(deps WorkflowDependencies) *WorkflowService {
	return &WorkflowService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		devReports:  deps.DevReportRepo,
		qaReviews:   deps.QAReviewRepo,
		regressions: deps.RegressionRepo,
		transactor:  deps.Transactor,
		dispatcher:  deps.Dispatcher,
	}
}

// DevReportInput describes a developer fix report payload.
type DevReportInput struct {
	IssueType         string
	RootCause         string
	SelfTestReport    string
	SelfTestEvidence  *string
	RegressionVersion string
	Module            string
	PullRequestURL    *string
}

// QAReviewInput describes a QA release decision payload. AgreeToRelease is a
// pointer so an absent boolean is distinguishable from false.
type QAReviewInput struct {
	AgreeToRelease     *bool
	Comment            string
	DesignatedTesterID *string
}

// RegressionInput describes a regression run payload.
type RegressionInput struct {
	Passed            *bool
	RegressionVersion string
	Report            string
}

// SubmitDevReport appends a DevReport and moves the ticket to UNDER_REVIEW.
// Only developers may call it; when the ticket has an assignee, only the
// assignee. An unassigned ticket accepts a report from any developer.
func (s *WorkflowService) SubmitDevReport(ctx context.Context, actor *domain.User, ticketID string, input DevReportInput) (*domain.Ticket, error) {
	if actor == nil || actor.Role != domain.RoleDeveloper {
		return nil, apperrors.NewUnauthorized("only developers can submit dev reports")
	}

	missing := map[string]any{}
	requireField(missing, "issue_type", input.IssueType)
	requireField(missing, "root_cause", input.RootCause)
	requireField(missing, "self_test_report", input.SelfTestReport)
	requireField(missing, "regression_version", input.RegressionVersion)
	requireField(missing, "module", input.Module)
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", missing)
	}

	var ticket *domain.Ticket
	var report *domain.DevReport
	var oldStatus domain.TicketStatus

	err := s.transactor.Do(ctx, func(txCtx context.Context) error {
		var err error
		ticket, err = s.lockTicket(txCtx, ticketID)
		if err != nil {
			return err
		}
		if ticket.AssigneeID != nil && *ticket.AssigneeID != actor.ID {
			return apperrors.NewForbidden("only the assigned developer can submit a dev report")
		}

		report = &domain.DevReport{
			TicketID:            ticket.ID,
			IssueType:           input.IssueType,
			RootCause:           input.RootCause,
			SelfTestReport:      input.SelfTestReport,
			SelfTestEvidence:    input.SelfTestEvidence,
			RegressionVersion:   input.RegressionVersion,
			Module:              input.Module,
			PullRequestURL:      input.PullRequestURL,
			AssignedDeveloperID: actor.ID,
		}
		if err := s.devReports.Create(txCtx, report); err != nil {
			return apperrors.MapError(err)
		}

		oldStatus = ticket.Status
		ticket.Status = domain.TicketStatusUnderReview
		if err := s.tickets.UpdateWorkflow(txCtx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventDevReportSubmitted,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.DevReportSubmittedPayload{
			ReportID:          report.ID,
			IssueType:         report.IssueType,
			RegressionVersion: report.RegressionVersion,
		},
	})
	s.publishStatusChange(ctx, actor, ticket, oldStatus)
	return ticket, nil
}

// SubmitQAReview appends a QAReview and moves the ticket to IN_REGRESSION on
// approval or IN_MODIFICATION on rejection. Approval records the QA reviewer
// and resolves the regressor: the designated tester when given, the submitter
// otherwise.
func (s *WorkflowService) SubmitQAReview(ctx context.Context, actor *domain.User, ticketID string, input QAReviewInput) (*domain.Ticket, error) {
	if actor == nil || actor.Role != domain.RoleQA {
		return nil, apperrors.NewUnauthorized("only QA can submit reviews")
	}
	if input.AgreeToRelease == nil {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"agree_to_release": "required"})
	}

	var ticket *domain.Ticket
	var review *domain.QAReview
	var oldStatus domain.TicketStatus

	err := s.transactor.Do(ctx, func(txCtx context.Context) error {
		var err error
		ticket, err = s.lockTicket(txCtx, ticketID)
		if err != nil {
			return err
		}

		if input.DesignatedTesterID != nil {
			if _, err := s.users.GetByID(txCtx, *input.DesignatedTesterID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NewValidationError("unknown designated tester", map[string]any{"designated_tester": *input.DesignatedTesterID})
				}
				return apperrors.MapError(err)
			}
		}

		agree := *input.AgreeToRelease
		review = &domain.QAReview{
			TicketID:           ticket.ID,
			Comment:            input.Comment,
			AgreeToRelease:     agree,
			DesignatedTesterID: input.DesignatedTesterID,
			ReleaseQAID:        actor.ID,
		}
		if err := s.qaReviews.Create(txCtx, review); err != nil {
			return apperrors.MapError(err)
		}

		oldStatus = ticket.Status
		qaID := actor.ID
		ticket.QAReviewerID = &qaID
		if agree {
			ticket.Status = domain.TicketStatusInRegression
			regressor := ticket.SubmitterID
			if input.DesignatedTesterID != nil {
				regressor = *input.DesignatedTesterID
			}
			ticket.RegressorID = &regressor
		} else {
			ticket.Status = domain.TicketStatusInModification
		}
		if err := s.tickets.UpdateWorkflow(txCtx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventQAReviewSubmitted,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.QAReviewSubmittedPayload{
			ReviewID:       review.ID,
			AgreeToRelease: review.AgreeToRelease,
			RegressorID:    ticket.RegressorID,
		},
	})
	s.publishStatusChange(ctx, actor, ticket, oldStatus)
	return ticket, nil
}

// SubmitRegression appends a RegressionTest and closes the ticket on a pass
// or returns it to UNDER_REVIEW on a failure. Only testers may call it; when
// the ticket has a regressor, only the regressor.
func (s *WorkflowService) SubmitRegression(ctx context.Context, actor *domain.User, ticketID string, input RegressionInput) (*domain.Ticket, error) {
	if actor == nil || actor.Role != domain.RoleTester {
		return nil, apperrors.NewUnauthorized("only testers can submit regression results")
	}
	if input.Passed == nil {
		return nil, apperrors.NewValidationError("missing required fields", map[string]any{"passed": "required"})
	}

	var ticket *domain.Ticket
	var test *domain.RegressionTest
	var oldStatus domain.TicketStatus

	err := s.transactor.Do(ctx, func(txCtx context.Context) error {
		var err error
		ticket, err = s.lockTicket(txCtx, ticketID)
		if err != nil {
			return err
		}
		if ticket.RegressorID != nil && *ticket.RegressorID != actor.ID {
			return apperrors.NewForbidden("only the designated regressor can submit regression results")
		}

		test = &domain.RegressionTest{
			TicketID:          ticket.ID,
			RegressionVersion: input.RegressionVersion,
			Passed:            *input.Passed,
			Report:            input.Report,
			TesterID:          actor.ID,
		}
		if err := s.regressions.Create(txCtx, test); err != nil {
			return apperrors.MapError(err)
		}

		oldStatus = ticket.Status
		if test.Passed {
			ticket.Status = domain.TicketStatusClosed
		} else {
			// A failed regression goes back to UNDER_REVIEW, not
			// IN_MODIFICATION; the review step re-engages the developer.
			ticket.Status = domain.TicketStatusUnderReview
		}
		if err := s.tickets.UpdateWorkflow(txCtx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventRegressionSubmitted,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.RegressionSubmittedPayload{
			TestID: test.ID,
			Passed: test.Passed,
		},
	})
	s.publishStatusChange(ctx, actor, ticket, oldStatus)
	return ticket, nil
}

func (s *WorkflowService) lockTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *WorkflowService) publishStatusChange(ctx context.Context, actor *domain.User, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	if oldStatus == ticket.Status {
		return
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
}

func (s *WorkflowService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func requireField(missing map[string]any, name, value string) {
	if value == "" {
		missing[name] = "required"
	}
}

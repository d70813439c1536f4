package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bugtrack/internal/domain"
	"github.com/spec-kit/bugtrack/internal/events"
	"github.com/spec-kit/bugtrack/internal/repository"
	apperrors "github.com/spec-kit/bugtrack/pkg/util"
)

// TicketService handles ticket creation and view assembly.
type TicketService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	devReports  repository.DevReportRepository
	qaReviews   repository.QAReviewRepository
	regressions repository.RegressionTestRepository
	transactor  repository.Transactor
	dispatcher  events.Dispatcher
	now         func() time.Time
}

// TicketDependencies bundles repositories for ticket service. Clock overrides
// the time source used for discovered_at defaulting; nil means wall clock.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	UserRepo       repository.UserRepository
	DevReportRepo  repository.DevReportRepository
	QAReviewRepo   repository.QAReviewRepository
	RegressionRepo repository.RegressionTestRepository
	Transactor     repository.Transactor
	Dispatcher     events.Dispatcher
	Clock          func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		devReports:  deps.DevReportRepo,
		qaReviews:   deps.QAReviewRepo,
		regressions: deps.RegressionRepo,
		transactor:  deps.Transactor,
		dispatcher:  deps.Dispatcher,
		now:         now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title           string
	Description     string
	SoftwareName    string
	SoftwareVersion string
	Module          string
	Severity        domain.Severity
	DiscoveredAt    *time.Time
	AssigneeID      *string
}

// TicketView is the assembled read model: the ticket, its three child record
// lists newest-first, and every referenced user keyed by id.
type TicketView struct {
	Ticket      *domain.Ticket
	DevReports  []domain.DevReport
	QAReviews   []domain.QAReview
	Regressions []domain.RegressionTest
	Users       map[string]*domain.User
}

// CreateTicket creates a ticket submitted by the caller. The submitter is
// recorded once and never changes; discovered_at defaults to the creation
// instant when absent.
func (s *TicketService) CreateTicket(ctx context.Context, submitter *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if submitter == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}

	missing := map[string]any{}
	requireField(missing, "title", strings.TrimSpace(input.Title))
	requireField(missing, "description", strings.TrimSpace(input.Description))
	requireField(missing, "software_name", input.SoftwareName)
	requireField(missing, "software_version", input.SoftwareVersion)
	requireField(missing, "module", input.Module)
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("missing required fields", missing)
	}

	severity := input.Severity
	if severity == "" {
		severity = domain.SeverityNormal
	}
	if !domain.ValidSeverity(severity) {
		return nil, apperrors.NewValidationError("invalid severity", map[string]any{"severity": severity})
	}

	discoveredAt := s.now()
	if input.DiscoveredAt != nil {
		discoveredAt = *input.DiscoveredAt
	}

	ticket := &domain.Ticket{
		ExternalKey:     generateTicketKey(),
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		SoftwareName:    input.SoftwareName,
		SoftwareVersion: input.SoftwareVersion,
		Module:          input.Module,
		Severity:        severity,
		DiscoveredAt:    discoveredAt,
		Status:          domain.TicketStatusOpen,
		SubmitterID:     submitter.ID,
		AssigneeID:      input.AssigneeID,
	}

	err := s.transactor.Do(ctx, func(txCtx context.Context) error {
		if input.AssigneeID != nil {
			if _, err := s.users.GetByID(txCtx, *input.AssigneeID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.NewValidationError("unknown assignee", map[string]any{"assignee": *input.AssigneeID})
				}
				return apperrors.MapError(err)
			}
		}
		if err := s.tickets.Create(txCtx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: submitter.ID, Role: submitter.Role},
		Payload: events.TicketCreatedPayload{
			ExternalKey: ticket.ExternalKey,
			Severity:    ticket.Severity,
			Title:       ticket.Title,
			AssigneeID:  ticket.AssigneeID,
		},
	})
	return ticket, nil
}

// GetTicketView assembles the full ticket read model inside one transaction
// so the status and child lists come from a consistent snapshot.
func (s *TicketService) GetTicketView(ctx context.Context, ticketID string) (*TicketView, error) {
	var view *TicketView
	err := s.transactor.Do(ctx, func(txCtx context.Context) error {
		ticket, err := s.tickets.GetByID(txCtx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.MapError(err)
		}

		devReports, err := s.devReports.ListByTicket(txCtx, ticket.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		qaReviews, err := s.qaReviews.ListByTicket(txCtx, ticket.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		regressions, err := s.regressions.ListByTicket(txCtx, ticket.ID)
		if err != nil {
			return apperrors.MapError(err)
		}

		users, err := s.resolveUsers(txCtx, ticket, devReports, qaReviews, regressions)
		if err != nil {
			return err
		}

		view = &TicketView{
			Ticket:      ticket,
			DevReports:  devReports,
			QAReviews:   qaReviews,
			Regressions: regressions,
			Users:       users,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// resolveUsers loads every user referenced by the ticket or its records, once
// each, so responses carry user summaries instead of raw foreign keys.
func (s *TicketService) resolveUsers(ctx context.Context, ticket *domain.Ticket, devReports []domain.DevReport, qaReviews []domain.QAReview, regressions []domain.RegressionTest) (map[string]*domain.User, error) {
	ids := map[string]struct{}{ticket.SubmitterID: {}}
	for _, ref := range []*string{ticket.AssigneeID, ticket.QAReviewerID, ticket.RegressorID} {
		if ref != nil {
			ids[*ref] = struct{}{}
		}
	}
	for i := range devReports {
		ids[devReports[i].AssignedDeveloperID] = struct{}{}
	}
	for i := range qaReviews {
		ids[qaReviews[i].ReleaseQAID] = struct{}{}
		if qaReviews[i].DesignatedTesterID != nil {
			ids[*qaReviews[i].DesignatedTesterID] = struct{}{}
		}
	}
	for i := range regressions {
		ids[regressions[i].TesterID] = struct{}{}
	}

	users := make(map[string]*domain.User, len(ids))
	for id := range ids {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, apperrors.MapError(err)
		}
		users[id] = user
	}
	return users, nil
}

func generateTicketKey() string {
	return "BUG-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

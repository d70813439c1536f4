package repository

import (
	"context"

	"github.com/spec-kit/bugtrack/internal/domain"
	"github.com/spec-kit/bugtrack/internal/persistence"
)

// TicketRepository encapsulates ticket persistence. GetByIDForUpdate takes a
// row lock so that concurrent workflow submissions against the same ticket
// serialize; it must be called inside a transaction.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	UpdateWorkflow(ctx context.Context, ticket *domain.Ticket) error
}

type ticketRepository struct {
	db *persistence.TransactionManager
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db *persistence.TransactionManager) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, title, description, software_name, software_version,
            module, severity, discovered_at, status, submitter_id, assignee_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.db.Queryer(ctx).QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.Title,
		ticket.Description,
		ticket.SoftwareName,
		ticket.SoftwareVersion,
		ticket.Module,
		ticket.Severity,
		ticket.DiscoveredAt,
		ticket.Status,
		ticket.SubmitterID,
		ticket.AssigneeID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

const ticketSelect = `
        SELECT id, external_key, title, description, software_name, software_version,
               module, severity, discovered_at, status, submitter_id, assignee_id,
               qa_reviewer_id, regressor_id, created_at, updated_at
        FROM tickets`

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = ticketSelect + ` WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = ticketSelect + ` WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

// UpdateWorkflow persists the only mutable ticket fields: status, qa_reviewer
// and regressor. Everything else is written once at creation.
func (r *ticketRepository) UpdateWorkflow(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, qa_reviewer_id=$2, regressor_id=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	if err := r.db.Queryer(ctx).QueryRow(ctx, query,
		ticket.Status,
		ticket.QAReviewerID,
		ticket.RegressorID,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.db.Queryer(ctx).QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.Title,
		&ticket.Description,
		&ticket.SoftwareName,
		&ticket.SoftwareVersion,
		&ticket.Module,
		&ticket.Severity,
		&ticket.DiscoveredAt,
		&ticket.Status,
		&ticket.SubmitterID,
		&ticket.AssigneeID,
		&ticket.QAReviewerID,
		&ticket.RegressorID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

package repository

import (
	"context"

	"github.com/spec-kit/bugtrack/internal/domain"
	"github.com/spec-kit/bugtrack/internal/persistence"
)

// QAReviewRepository persists QA release decisions, append-only.
type QAReviewRepository interface {
	Create(ctx context.Context, review *domain.QAReview) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.QAReview, error)
}

type qaReviewRepository struct {
	db *persistence.TransactionManager
}

// NewQAReviewRepository instantiates repository.
func NewQAReviewRepository(db *persistence.TransactionManager) QAReviewRepository {
	return &qaReviewRepository{db: db}
}

func (r *qaReviewRepository) Create(ctx context.Context, review *domain.QAReview) error {
	const query = `
        INSERT INTO qa_reviews (ticket_id, comment, agree_to_release, designated_tester_id, release_qa_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.Queryer(ctx).QueryRow(ctx, query,
		review.TicketID,
		review.Comment,
		review.AgreeToRelease,
		review.DesignatedTesterID,
		review.ReleaseQAID,
	).Scan(&review.ID, &review.CreatedAt)
}

func (r *qaReviewRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.QAReview, error) {
	const query = `
        SELECT id, ticket_id, comment, agree_to_release, designated_tester_id, release_qa_id, created_at
        FROM qa_reviews WHERE ticket_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Queryer(ctx).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.QAReview
	for rows.Next() {
		var review domain.QAReview
		if err := rows.Scan(
			&review.ID,
			&review.TicketID,
			&review.Comment,
			&review.AgreeToRelease,
			&review.DesignatedTesterID,
			&review.ReleaseQAID,
			&review.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, review)
	}
	return result, rows.Err()
}

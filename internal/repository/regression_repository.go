package repository

import (
	"context"

	"github.com/spec-kit/bugtrack/internal/domain"
	"github.com/spec-kit/bugtrack/internal/persistence"
)

// RegressionTestRepository persists regression run outcomes, append-only.
type RegressionTestRepository interface {
	Create(ctx context.Context, test *domain.RegressionTest) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.RegressionTest, error)
}

type regressionTestRepository struct {
	db *persistence.TransactionManager
}

// NewRegressionTestRepository instantiates repository.
func NewRegressionTestRepository(db *persistence.TransactionManager) RegressionTestRepository {
	return &regressionTestRepository{db: db}
}

func (r *regressionTestRepository) Create(ctx context.Context, test *domain.RegressionTest) error {
	const query = `
        INSERT INTO regression_tests (ticket_id, regression_version, passed, report, tester_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.db.Queryer(ctx).QueryRow(ctx, query,
		test.TicketID,
		test.RegressionVersion,
		test.Passed,
		test.Report,
		test.TesterID,
	).Scan(&test.ID, &test.CreatedAt)
}

func (r *regressionTestRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.RegressionTest, error) {
	const query = `
        SELECT id, ticket_id, regression_version, passed, report, tester_id, created_at
        FROM regression_tests WHERE ticket_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Queryer(ctx).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RegressionTest
	for rows.Next() {
		var test domain.RegressionTest
		if err := rows.Scan(
			&test.ID,
			&test.TicketID,
			&test.RegressionVersion,
			&test.Passed,
			&test.Report,
			&test.TesterID,
			&test.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, test)
	}
	return result, rows.Err()
}

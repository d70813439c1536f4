package repository

import (
	"context"

	"github.com/spec-kit/bugtrack/internal/domain"
	"github.com/spec-kit/bugtrack/internal/persistence"
)

// DevReportRepository persists developer fix reports. Records are append-only;
// there is no update or delete.
type DevReportRepository interface {
	Create(ctx context.Context, report *domain.DevReport) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.DevReport, error)
}

type devReportRepository struct {
	db *persistence.TransactionManager
}

// NewDevReportRepository instantiates repository.
func NewDevReportRepository(db *persistence.TransactionManager) DevReportRepository {
	return &devReportRepository{db: db}
}

func (r *devReportRepository) Create(ctx context.Context, report *domain.DevReport) error {
	const query = `
        INSERT INTO dev_reports (ticket_id, issue_type, root_cause, self_test_report,
            self_test_evidence, regression_version, module, pull_request_url, assigned_developer_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at`
	return r.db.Queryer(ctx).QueryRow(ctx, query,
		report.TicketID,
		report.IssueType,
		report.RootCause,
		report.SelfTestReport,
		report.SelfTestEvidence,
		report.RegressionVersion,
		report.Module,
		report.PullRequestURL,
		report.AssignedDeveloperID,
	).Scan(&report.ID, &report.CreatedAt)
}

func (r *devReportRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.DevReport, error) {
	const query = `
        SELECT id, ticket_id, issue_type, root_cause, self_test_report, self_test_evidence,
               regression_version, module, pull_request_url, assigned_developer_id, created_at
        FROM dev_reports WHERE ticket_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.Queryer(ctx).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DevReport
	for rows.Next() {
		var report domain.DevReport
		if err := rows.Scan(
			&report.ID,
			&report.TicketID,
			&report.IssueType,
			&report.RootCause,
			&report.SelfTestReport,
			&report.SelfTestEvidence,
			&report.RegressionVersion,
			&report.Module,
			&report.PullRequestURL,
			&report.AssignedDeveloperID,
			&report.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, report)
	}
	return result, rows.Err()
}

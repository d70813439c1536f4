package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/bugtrack/internal/domain"
)

// memStore backs the repository interfaces with in-memory maps and slices.
// Record timestamps advance one second per write so newest-first ordering is
// deterministic.
type memStore struct {
	users       map[string]*domain.User
	tickets     map[string]*domain.Ticket
	devReports  []*domain.DevReport
	qaReviews   []*domain.QAReview
	regressions []*domain.RegressionTest
	seq         int
	clock       time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*domain.User),
		tickets: make(map[string]*domain.Ticket),
		clock:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) addUser(id, username string, role domain.Role) *domain.User {
	user := &domain.User{
		ID:       id,
		Username: username,
		FullName: username + " full",
		Email:    username + "@example.com",
		Role:     role,
	}
	s.users[id] = user
	return user
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

// memTx satisfies repository.Transactor by running the function directly.
type memTx struct{}

func (memTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memUsers struct{ s *memStore }

func (m *memUsers) Create(_ context.Context, user *domain.User) error {
	user.ID = m.s.nextID("usr")
	user.CreatedAt = m.s.tick()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	m.s.users[user.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := m.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *user
	return &cp, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, user := range m.s.users {
		if user.Username == username {
			cp := *user
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range m.s.users {
		if user.Email == email {
			cp := *user
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memTickets struct{ s *memStore }

func (m *memTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = m.s.nextID("tkt")
	ticket.CreatedAt = m.s.tick()
	ticket.UpdatedAt = ticket.CreatedAt
	cp := *ticket
	m.s.tickets[ticket.ID] = &cp
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := m.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *ticket
	return &cp, nil
}

func (m *memTickets) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return m.GetByID(ctx, id)
}

func (m *memTickets) UpdateWorkflow(_ context.Context, ticket *domain.Ticket) error {
	stored, ok := m.s.tickets[ticket.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = ticket.Status
	stored.QAReviewerID = ticket.QAReviewerID
	stored.RegressorID = ticket.RegressorID
	stored.UpdatedAt = m.s.tick()
	ticket.UpdatedAt = stored.UpdatedAt
	return nil
}

type memDevReports struct{ s *memStore }

func (m *memDevReports) Create(_ context.Context, report *domain.DevReport) error {
	report.ID = m.s.nextID("dev")
	report.CreatedAt = m.s.tick()
	cp := *report
	m.s.devReports = append(m.s.devReports, &cp)
	return nil
}

func (m *memDevReports) ListByTicket(_ context.Context, ticketID string) ([]domain.DevReport, error) {
	var result []domain.DevReport
	for i := len(m.s.devReports) - 1; i >= 0; i-- {
		if m.s.devReports[i].TicketID == ticketID {
			result = append(result, *m.s.devReports[i])
		}
	}
	return result, nil
}

type memQAReviews struct{ s *memStore }

func (m *memQAReviews) Create(_ context.Context, review *domain.QAReview) error {
	review.ID = m.s.nextID("qar")
	review.CreatedAt = m.s.tick()
	cp := *review
	m.s.qaReviews = append(m.s.qaReviews, &cp)
	return nil
}

func (m *memQAReviews) ListByTicket(_ context.Context, ticketID string) ([]domain.QAReview, error) {
	var result []domain.QAReview
	for i := len(m.s.qaReviews) - 1; i >= 0; i-- {
		if m.s.qaReviews[i].TicketID == ticketID {
			result = append(result, *m.s.qaReviews[i])
		}
	}
	return result, nil
}

type memRegressions struct{ s *memStore }

func (m *memRegressions) Create(_ context.Context, test *domain.RegressionTest) error {
	test.ID = m.s.nextID("reg")
	test.CreatedAt = m.s.tick()
	cp := *test
	m.s.regressions = append(m.s.regressions, &cp)
	return nil
}

func (m *memRegressions) ListByTicket(_ context.Context, ticketID string) ([]domain.RegressionTest, error) {
	var result []domain.RegressionTest
	for i := len(m.s.regressions) - 1; i >= 0; i-- {
		if m.s.regressions[i].TicketID == ticketID {
			result = append(result, *m.s.regressions[i])
		}
	}
	return result, nil
}

func newTestWorkflowService(s *memStore) *WorkflowService {
	return NewWorkflowService(WorkflowDependencies{
		TicketRepo:     &memTickets{s},
		UserRepo:       &memUsers{s},
		DevReportRepo:  &memDevReports{s},
		QAReviewRepo:   &memQAReviews{s},
		RegressionRepo: &memRegressions{s},
		Transactor:     memTx{},
	})
}

func newTestTicketService(s *memStore, clock func() time.Time) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo:     &memTickets{s},
		UserRepo:       &memUsers{s},
		DevReportRepo:  &memDevReports{s},
		QAReviewRepo:   &memQAReviews{s},
		RegressionRepo: &memRegressions{s},
		Transactor:     memTx{},
		Clock:          clock,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bugtrack/internal/api/dto"
	"github.com/spec-kit/bugtrack/internal/auth"
	"github.com/spec-kit/bugtrack/internal/domain"
	"github.com/spec-kit/bugtrack/internal/persistence"
	"github.com/spec-kit/bugtrack/internal/service"
	apperrors "github.com/spec-kit/bugtrack/pkg/util"
)

// TicketsHandler manages ticket and workflow endpoints.
type TicketsHandler struct {
	tickets  *service.TicketService
	workflow *service.WorkflowService
	cache    *persistence.TicketViewCache
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, workflowService *service.WorkflowService, cache *persistence.TicketViewCache) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, workflow: workflowService, cache: cache}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.TicketCreateInput{
		Title:           req.Title,
		Description:     req.Description,
		SoftwareName:    req.SoftwareName,
		SoftwareVersion: req.SoftwareVersion,
		Module:          req.Module,
		Severity:        req.Severity,
		DiscoveredAt:    req.DiscoveredAt,
	}
	if req.Assignee != nil && req.Assignee.ID != "" {
		input.AssigneeID = &req.Assignee.ID
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), principal.User, input)
	if err != nil {
		return err
	}
	return h.respondWithView(c, ticket.ID, http.StatusCreated)
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID := c.Params("id")
	if cached := h.cache.Get(c.UserContext(), ticketID); cached != nil {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(cached)
	}

	view, err := h.tickets.GetTicketView(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(fiber.Map{"data": ticketResponse(view)})
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	h.cache.Set(c.UserContext(), ticketID, payload)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

// SubmitDevReport POST /tickets/:id/dev-report.
func (h *TicketsHandler) SubmitDevReport(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.DevReportRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.workflow.SubmitDevReport(c.UserContext(), principal.User, c.Params("id"), service.DevReportInput{
		IssueType:         req.IssueType,
		RootCause:         req.RootCause,
		SelfTestReport:    req.SelfTestReport,
		SelfTestEvidence:  req.SelfTestEvidence,
		RegressionVersion: req.RegressionVersion,
		Module:            req.Module,
		PullRequestURL:    req.PullRequestURL,
	})
	if err != nil {
		return err
	}
	h.cache.Invalidate(c.UserContext(), ticket.ID)
	return h.respondWithView(c, ticket.ID, http.StatusOK)
}

// SubmitQAReview POST /tickets/:id/qa-review.
func (h *TicketsHandler) SubmitQAReview(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.QAReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.workflow.SubmitQAReview(c.UserContext(), principal.User, c.Params("id"), service.QAReviewInput{
		AgreeToRelease:     req.AgreeToRelease,
		Comment:            req.Comment,
		DesignatedTesterID: req.DesignatedTester,
	})
	if err != nil {
		return err
	}
	h.cache.Invalidate(c.UserContext(), ticket.ID)
	return h.respondWithView(c, ticket.ID, http.StatusOK)
}

// SubmitRegression POST /tickets/:id/regression.
func (h *TicketsHandler) SubmitRegression(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RegressionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.workflow.SubmitRegression(c.UserContext(), principal.User, c.Params("id"), service.RegressionInput{
		Passed:            req.Passed,
		RegressionVersion: req.RegressionVersion,
		Report:            req.Report,
	})
	if err != nil {
		return err
	}
	h.cache.Invalidate(c.UserContext(), ticket.ID)
	return h.respondWithView(c, ticket.ID, http.StatusOK)
}

func (h *TicketsHandler) respondWithView(c *fiber.Ctx, ticketID string, status int) error {
	view, err := h.tickets.GetTicketView(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.Status(status).JSON(fiber.Map{"data": ticketResponse(view)})
}

func ticketResponse(view *service.TicketView) dto.TicketResponse {
	ticket := view.Ticket
	resp := dto.TicketResponse{
		ID:              ticket.ID,
		ExternalKey:     ticket.ExternalKey,
		Title:           ticket.Title,
		Description:     ticket.Description,
		SoftwareName:    ticket.SoftwareName,
		SoftwareVersion: ticket.SoftwareVersion,
		Module:          ticket.Module,
		Severity:        ticket.Severity,
		DiscoveredAt:    ticket.DiscoveredAt,
		Status:          ticket.Status,
		Submitter:       userSummary(view.Users, &ticket.SubmitterID),
		Assignee:        userSummary(view.Users, ticket.AssigneeID),
		QAReviewer:      userSummary(view.Users, ticket.QAReviewerID),
		Regressor:       userSummary(view.Users, ticket.RegressorID),
		DevReports:      make([]dto.DevReportResponse, 0, len(view.DevReports)),
		QAReviews:       make([]dto.QAReviewResponse, 0, len(view.QAReviews)),
		Regressions:     make([]dto.RegressionResponse, 0, len(view.Regressions)),
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}

	for i := range view.DevReports {
		report := &view.DevReports[i]
		resp.DevReports = append(resp.DevReports, dto.DevReportResponse{
			ID:                report.ID,
			IssueType:         report.IssueType,
			RootCause:         report.RootCause,
			SelfTestReport:    report.SelfTestReport,
			SelfTestEvidence:  report.SelfTestEvidence,
			RegressionVersion: report.RegressionVersion,
			Module:            report.Module,
			PullRequestURL:    report.PullRequestURL,
			AssignedDeveloper: userSummary(view.Users, &report.AssignedDeveloperID),
			CreatedAt:         report.CreatedAt,
		})
	}
	for i := range view.QAReviews {
		review := &view.QAReviews[i]
		resp.QAReviews = append(resp.QAReviews, dto.QAReviewResponse{
			ID:               review.ID,
			Comment:          review.Comment,
			AgreeToRelease:   review.AgreeToRelease,
			DesignatedTester: userSummary(view.Users, review.DesignatedTesterID),
			ReleaseQA:        userSummary(view.Users, &review.ReleaseQAID),
			CreatedAt:        review.CreatedAt,
		})
	}
	for i := range view.Regressions {
		test := &view.Regressions[i]
		resp.Regressions = append(resp.Regressions, dto.RegressionResponse{
			ID:                test.ID,
			RegressionVersion: test.RegressionVersion,
			Passed:            test.Passed,
			Report:            test.Report,
			Tester:            userSummary(view.Users, &test.TesterID),
			CreatedAt:         test.CreatedAt,
		})
	}
	return resp
}

func userSummary(users map[string]*domain.User, id *string) *dto.UserSummary {
	if id == nil {
		return nil
	}
	user, ok := users[*id]
	if !ok {
		return &dto.UserSummary{ID: *id}
	}
	return &dto.UserSummary{
		ID:       user.ID,
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
		Role:     user.Role,
	}
}

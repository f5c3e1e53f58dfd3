package handlers

import (
	"context"

	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/core/services"
	"schoolhub/internal/pkg/pagination"
	"schoolhub/internal/pkg/response"
	"schoolhub/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles book loan endpoints
type LoanHandler struct {
	loanService *services.LoanService
	v           *validation.Validator
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService, v *validation.Validator) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		v:           v,
	}
}

func loanResponses(loans []*models.BookLoan) []*models.BookLoanResponse {
	data := make([]*models.BookLoanResponse, len(loans))
	for i, l := range loans {
		data[i] = l.ToResponse()
	}
	return data
}

// Issue lends a book
// @Summary Issue loan
// @Description Lend a physical book to a borrower (Admin/Librarian)
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.IssueLoanInput true "Loan data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Issue(c *fiber.Ctx) error {
	var req services.IssueLoanInput
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loan, err := h.loanService.Issue(c.Context(), &req, userID)
	if err != nil {
		return writeError(c, err, "Failed to issue loan")
	}

	return response.Created(c, "Loan issued successfully", fiber.Map{
		"loan": loan.ToResponse(),
	})
}

// List lists loans
// @Summary List loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "processing, returned or canceled"
// @Param borrower_id query int false "Filter by borrower"
// @Param book_id query int false "Filter by book"
// @Param campus_id query int false "Filter by campus"
// @Param sort query string false "newest, oldest or due" default(newest)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) List(c *fiber.Ctx) error {
	params, err := pagination.Loans.Parse(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	input := &services.ListLoansInput{
		Status: c.Query("status"),
		Offset: params.Offset,
		Limit:  params.Limit,
		Order:  params.Order,
	}
	if input.BorrowerID, err = queryUint(c, "borrower_id"); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if input.BookID, err = queryUint(c, "book_id"); err != nil {
		return response.BadRequest(c, err.Error())
	}
	if input.CampusID, err = queryUint(c, "campus_id"); err != nil {
		return response.BadRequest(c, err.Error())
	}

	loans, total, err := h.loanService.List(c.Context(), input)
	if err != nil {
		return writeError(c, err, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", pagination.NewResponse(loanResponses(loans), params, total))
}

// Overdue lists overdue loans
// @Summary List overdue loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /loans/overdue [get]
func (h *LoanHandler) Overdue(c *fiber.Ctx) error {
	loans, err := h.loanService.ListOverdue(c.Context())
	if err != nil {
		return writeError(c, err, "Failed to list overdue loans")
	}

	return response.Success(c, "Overdue loans retrieved successfully", fiber.Map{
		"loans": loanResponses(loans),
		"count": len(loans),
	})
}

// My lists the loans of the current user
// @Summary My loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Router /loans/my [get]
func (h *LoanHandler) My(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.GetParams(c)
	loans, total, err := h.loanService.ListByBorrower(c.Context(), userID, params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", pagination.NewResponse(loanResponses(loans), params, total))
}

// GetByID gets a loan
// @Summary Get loan by ID
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) GetByID(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.GetByID(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to get loan")
	}

	return response.Success(c, "Loan retrieved successfully", fiber.Map{
		"loan": loan.ToResponse(),
	})
}

// Return closes a loan as returned
// @Summary Return loan
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body services.CloseLoanInput false "Note"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/return [put]
func (h *LoanHandler) Return(c *fiber.Ctx) error {
	return h.close(c, "Loan returned", h.loanService.Return)
}

// Cancel closes a loan as canceled
// @Summary Cancel loan
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body services.CloseLoanInput false "Note"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /loans/{id}/cancel [put]
func (h *LoanHandler) Cancel(c *fiber.Ctx) error {
	return h.close(c, "Loan canceled", h.loanService.Cancel)
}

type closeFunc func(ctx context.Context, loanID uint, input *services.CloseLoanInput, userID uint) (*models.BookLoan, error)

func (h *LoanHandler) close(c *fiber.Ctx, message string, op closeFunc) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req services.CloseLoanInput
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	userID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	loan, err := op(c.Context(), id, &req, userID)
	if err != nil {
		return writeError(c, err, "Failed to close loan")
	}

	return response.Success(c, message, fiber.Map{
		"loan": loan.ToResponse(),
	})
}

package handlers

import (
	"strconv"

	"schoolhub/internal/core/services"
	"schoolhub/internal/pkg/pagination"
	"schoolhub/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// BookHandler handles library catalog endpoints
type BookHandler struct {
	loanService *services.LoanService
}

// NewBookHandler creates a new book handler
func NewBookHandler(loanService *services.LoanService) *BookHandler {
	return &BookHandler{loanService: loanService}
}

// List lists books
// @Summary List books
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(50)
// @Param type query string false "physical or ebook"
// @Param is_available query bool false "Filter by availability"
// @Param campus_id query int false "Filter by campus"
// @Param search query string false "Search title, author or ISBN"
// @Param sort query string false "title, author or newest" default(title)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /books [get]
func (h *BookHandler) List(c *fiber.Ctx) error {
	params, err := pagination.Books.Parse(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	input := &services.ListBooksInput{
		Type:   c.Query("type"),
		Search: c.Query("search"),
		Offset: params.Offset,
		Limit:  params.Limit,
		Order:  params.Order,
	}
	if v := c.Query("is_available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			return response.BadRequest(c, "invalid is_available")
		}
		input.IsAvailable = &available
	}
	campusID, err := queryUint(c, "campus_id")
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	input.CampusID = campusID

	books, total, err := h.loanService.ListBooks(c.Context(), input)
	if err != nil {
		return writeError(c, err, "Failed to list books")
	}

	return response.Success(c, "Books retrieved successfully", pagination.NewResponse(books, params, total))
}

// GetByID gets a book
// @Summary Get book by ID
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id} [get]
func (h *BookHandler) GetByID(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	book, err := h.loanService.GetBook(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to get book")
	}

	return response.Success(c, "Book retrieved successfully", fiber.Map{
		"book": book,
	})
}

// Loans lists the loan history of a book
// @Summary Book loan history
// @Tags Books
// @Produce json
// @Security BearerAuth
// @Param id path int true "Book ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /books/{id}/loans [get]
func (h *BookHandler) Loans(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid book ID")
	}

	params := pagination.GetParams(c)
	loans, total, err := h.loanService.ListByBook(c.Context(), id, params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", pagination.NewResponse(loanResponses(loans), params, total))
}

package handlers

import (
	"schoolhub/internal/core/services"
	"schoolhub/internal/pkg/pagination"
	"schoolhub/internal/pkg/response"
	"schoolhub/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles user management endpoints
type UserHandler struct {
	userService *services.UserService
	v           *validation.Validator
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, v *validation.Validator) *UserHandler {
	return &UserHandler{
		userService: userService,
		v:           v,
	}
}

// ListUsers handles listing all users
// @Summary List all users
// @Description Get a paginated list of users (Admin/Staff/Librarian)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /users [get]
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	users, total, err := h.userService.ListUsers(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return writeError(c, err, "Failed to list users")
	}

	return response.Success(c, "Users retrieved successfully", pagination.NewResponse(users, params, total))
}

// GetUser handles getting a user by ID
// @Summary Get user by ID
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	user, err := h.userService.GetUserByID(c.Context(), id)
	if err != nil {
		return writeError(c, err, "Failed to get user")
	}

	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": user,
	})
}

// CreateUser handles creating a user
// @Summary Create user
// @Description Create a user account (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateUserInput true "User data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /users [post]
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req services.CreateUserInput
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	user, err := h.userService.CreateUser(c.Context(), &req)
	if err != nil {
		return writeError(c, err, "Failed to create user")
	}

	return response.Created(c, "User created successfully", fiber.Map{
		"user": user,
	})
}

// SetRoleRequest represents set role request
type SetRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN STAFF LIBRARIAN MEMBER"`
}

// SetUserRole handles changing a user's role
// @Summary Set user role
// @Description Change a user's role (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body SetRoleRequest true "Role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/role [put]
func (h *UserHandler) SetUserRole(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req SetRoleRequest
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if currentID, _ := currentUserID(c); currentID == id {
		return response.BadRequest(c, "Cannot change your own role")
	}

	user, err := h.userService.SetRole(c.Context(), id, req.Role)
	if err != nil {
		return writeError(c, err, "Failed to set role")
	}

	return response.Success(c, "User role updated successfully", fiber.Map{
		"user": user,
	})
}

// SetActiveRequest represents set active request
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetUserActive handles enabling or disabling a user
// @Summary Enable or disable user
// @Description Enable or disable a user account (Admin only)
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param body body SetActiveRequest true "Active flag"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/{id}/active [put]
func (h *UserHandler) SetUserActive(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req SetActiveRequest
	if err := bind(c, h.v, &req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	if currentID, _ := currentUserID(c); currentID == id && !req.IsActive {
		return response.BadRequest(c, "Cannot disable your own account")
	}

	user, err := h.userService.SetActive(c.Context(), id, req.IsActive)
	if err != nil {
		return writeError(c, err, "Failed to update user")
	}

	return response.Success(c, "User updated successfully", fiber.Map{
		"user": user,
	})
}

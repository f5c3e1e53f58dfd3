package handlers

import (
	"errors"
	"log"
	"strconv"

	"schoolhub/internal/core/domain"
	"schoolhub/internal/core/services"
	"schoolhub/internal/pkg/response"
	"schoolhub/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// getClientIP gets client IP address
func getClientIP(c *fiber.Ctx) string {
	ip := c.Get("X-Real-IP")
	if ip == "" {
		ip = c.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = c.IP()
	}
	return ip
}

// currentUserID returns the user set by the auth middleware
func currentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}

// parseID parses a positive ID path parameter
func parseID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// queryUint parses an optional positive ID query parameter
func queryUint(c *fiber.Ctx, name string) (*uint, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(v, 10, 32)
	if err != nil || id == 0 {
		return nil, errors.New("invalid " + name)
	}
	u := uint(id)
	return &u, nil
}

// errInvalidBody is reported when the request body cannot be parsed
var errInvalidBody = errors.New("Invalid request body")

// bind parses the request body into req and validates it. An empty body is allowed
// for operations whose fields are all optional.
func bind(c *fiber.Ctx, v *validation.Validator, req interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return errInvalidBody
		}
	}
	return v.Validate(req)
}

// writeError maps a service error onto the response envelope
func writeError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrBookUnavailable):
		return response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, domain.ErrConstraintViolation):
		return response.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, services.ErrInvalidCredentials):
		return response.Unauthorized(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return response.Forbidden(c, err.Error())
	}

	log.Printf("❌ %s: %v", fallback, err)
	return response.InternalServerError(c, fallback)
}

package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schoolhub/internal/config"
	"schoolhub/internal/core/domain"
	"schoolhub/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, app *fiber.App, req *http.Request) (int, string, http.Header) {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body), resp.Header
}

func TestCustomErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: CustomErrorHandler})
	app.Get("/gone", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusGone, "moved away") })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("database exploded") })

	status, body, _ := call(t, app, httptest.NewRequest(http.MethodGet, "/gone", nil))
	assert.Equal(t, http.StatusGone, status)
	assert.JSONEq(t, `{"success":false,"error":"moved away"}`, body)

	status, body, _ = call(t, app, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, body, "exploded")

	status, _, _ = call(t, app, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "middleware-secret"}}
	campus := uint(3)

	app := fiber.New()
	app.Get("/me", AuthMiddleware(cfg), Librarians(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"id":     c.Locals("userID"),
			"role":   c.Locals("role"),
			"campus": c.Locals("campusID"),
		})
	})

	librarian, err := jwt.GenerateAccessToken(7, "lib", string(domain.RoleLibrarian), &campus, cfg.JWT.Secret, 5)
	require.NoError(t, err)
	member, err := jwt.GenerateAccessToken(8, "kid", string(domain.RoleMember), nil, cfg.JWT.Secret, 5)
	require.NoError(t, err)
	forged, err := jwt.GenerateAccessToken(7, "lib", string(domain.RoleAdmin), nil, "other-secret", 5)
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+librarian)
		status, body, _ := call(t, app, req)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"id":7,"role":"LIBRARIAN","campus":3}`, body)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: librarian})
		status, _, _ := call(t, app, req)
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+member)
		status, _, _ := call(t, app, req)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("forged", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+forged)
		status, body, _ := call(t, app, req)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Contains(t, body, "Invalid access token")
	})

	t.Run("missing", func(t *testing.T) {
		status, body, _ := call(t, app, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Contains(t, body, "Access token required")
	})
}

func TestRoleMiddlewareWithoutAuth(t *testing.T) {
	app := fiber.New()
	app.Get("/admin", AdminOnly(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	status, _, _ := call(t, app, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCacheHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/master", MasterDataCache(10*time.Minute), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/master-missing", MasterDataCache(10*time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})
	app.Get("/mine", PrivateCacheHeaders(time.Minute), func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/state", NoCacheHeaders(), func(c *fiber.Ctx) error { return c.SendString("ok") })

	_, _, h := call(t, app, httptest.NewRequest(http.MethodGet, "/master", nil))
	assert.Equal(t, "public, max-age=600", h.Get(fiber.HeaderCacheControl))

	_, _, h = call(t, app, httptest.NewRequest(http.MethodGet, "/master-missing", nil))
	assert.Empty(t, h.Get(fiber.HeaderCacheControl))

	_, _, h = call(t, app, httptest.NewRequest(http.MethodGet, "/mine", nil))
	assert.Equal(t, "private, max-age=60", h.Get(fiber.HeaderCacheControl))

	_, _, h = call(t, app, httptest.NewRequest(http.MethodPost, "/state", nil))
	assert.Equal(t, "no-store, no-cache, must-revalidate", h.Get(fiber.HeaderCacheControl))
	assert.Equal(t, "no-cache", h.Get(fiber.HeaderPragma))
}

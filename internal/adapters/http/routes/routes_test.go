package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"schoolhub/internal/adapters/http/middleware"
	"schoolhub/internal/adapters/persistence/models"
	"schoolhub/internal/config"
	"schoolhub/internal/pkg/jwt"
	"schoolhub/internal/pkg/metrics"
	"schoolhub/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiEnv struct {
	t   *testing.T
	app *fiber.App
	cfg *config.Config
	f   *testutil.Fixtures
}

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Error   string                 `json:"error"`
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()

	db := testutil.NewDB(t)
	f := testutil.Seed(t, db)
	cfg := &config.Config{
		AppMode: "dev",
		JWT: config.JWTConfig{
			Secret:           "route-test-access",
			RefreshSecret:    "route-test-refresh",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		},
		Assets:  config.AssetConfig{HoldingDepartmentID: f.Store.ID, HoldingRoomID: f.StoreRoom.ID},
		Library: config.LibraryConfig{DefaultLoanDays: 7, MaxLoanDays: 30},
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.CustomErrorHandler})
	Setup(app, db, cfg, metrics.New())

	return &apiEnv{t: t, app: app, cfg: cfg, f: f}
}

func (e *apiEnv) token(u *models.User) string {
	e.t.Helper()

	token, err := jwt.GenerateAccessToken(u.ID, u.Username, u.Role, u.CampusID, e.cfg.JWT.Secret, e.cfg.JWT.AccessTokenMins)
	require.NoError(e.t, err)
	return token
}

func (e *apiEnv) do(method, path string, body interface{}, as *models.User) (int, envelope) {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+e.token(as))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}

// registerAsset creates an asset over the API and returns its ID
func (e *apiEnv) registerAsset(tag string) uint {
	e.t.Helper()

	status, env := e.do(http.MethodPost, "/api/v1/assets", map[string]interface{}{
		"tag":       tag,
		"name":      "Notebook " + tag,
		"condition": "new",
	}, e.f.Staff)
	require.Equal(e.t, http.StatusCreated, status, env.Error)

	asset := env.Data["asset"].(map[string]interface{})
	return uint(asset["id"].(float64))
}

func TestRoutes_RequireAuthentication(t *testing.T) {
	e := newAPI(t)

	status, env := e.do(http.MethodGet, "/api/v1/assets", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, env.Success)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/my", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoutes_RoleChecks(t *testing.T) {
	e := newAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		as     *models.User
		want   int
	}{
		{"member cannot list assets", http.MethodGet, "/api/v1/assets", e.f.Member, http.StatusForbidden},
		{"librarian cannot list assets", http.MethodGet, "/api/v1/assets", e.f.Librarian, http.StatusForbidden},
		{"staff lists assets", http.MethodGet, "/api/v1/assets", e.f.Staff, http.StatusOK},
		{"staff cannot audit", http.MethodGet, "/api/v1/assets/audit", e.f.Staff, http.StatusForbidden},
		{"admin audits", http.MethodGet, "/api/v1/assets/audit", e.f.Admin, http.StatusOK},
		{"staff cannot issue loans", http.MethodPost, "/api/v1/loans", e.f.Staff, http.StatusForbidden},
		{"member sees own loans", http.MethodGet, "/api/v1/loans/my", e.f.Member, http.StatusOK},
		{"member cannot list loans", http.MethodGet, "/api/v1/loans", e.f.Member, http.StatusForbidden},
		{"member reads catalog", http.MethodGet, "/api/v1/books", e.f.Member, http.StatusOK},
		{"member reads master data", http.MethodGet, "/api/v1/master/departments", e.f.Member, http.StatusOK},
		{"staff cannot create campus", http.MethodPost, "/api/v1/master/campuses", e.f.Staff, http.StatusForbidden},
		{"member cannot list users", http.MethodGet, "/api/v1/users", e.f.Member, http.StatusForbidden},
		{"staff cannot create users", http.MethodPost, "/api/v1/users", e.f.Staff, http.StatusForbidden},
		{"member cannot open admin dashboard", http.MethodGet, "/api/v1/dashboard/admin", e.f.Member, http.StatusForbidden},
		{"member opens own dashboard", http.MethodGet, "/api/v1/dashboard", e.f.Member, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := e.do(tt.method, tt.path, nil, tt.as)
			assert.Equal(t, tt.want, status, env.Error)
		})
	}
}

func TestRoutes_AssetLifecycle(t *testing.T) {
	e := newAPI(t)
	id := e.registerAsset("NB-001")
	path := func(op string) string { return fmt.Sprintf("/api/v1/assets/%d/%s", id, op) }

	status, env := e.do(http.MethodPost, path("allocate"), map[string]interface{}{
		"department_id": e.f.Science.ID,
		"custodian_id":  e.f.Teacher.ID,
	}, e.f.Staff)
	assert.Equal(t, http.StatusUnprocessableEntity, status, "allocate before receive")
	assert.NotEmpty(t, env.Error)

	status, _ = e.do(http.MethodPost, path("receive"), map[string]interface{}{"department_id": e.f.Science.ID}, e.f.Staff)
	require.Equal(t, http.StatusOK, status)

	status, env = e.do(http.MethodPost, path("allocate"), map[string]interface{}{
		"department_id": e.f.Science.ID,
		"custodian_id":  e.f.Teacher.ID,
	}, e.f.Staff)
	require.Equal(t, http.StatusOK, status, env.Error)
	asset := env.Data["asset"].(map[string]interface{})
	assert.Equal(t, "allocated", asset["status"])
	assert.Equal(t, e.f.Science.Name, asset["department_name"])
	assert.Equal(t, e.f.Teacher.FullName, asset["custodian_name"])

	status, _ = e.do(http.MethodPost, path("return"), map[string]interface{}{"room_id": e.f.Lab101.ID}, e.f.Staff)
	assert.Equal(t, http.StatusBadRequest, status, "room without department")

	status, env = e.do(http.MethodPost, path("return"), nil, e.f.Staff)
	require.Equal(t, http.StatusOK, status, env.Error)
	asset = env.Data["asset"].(map[string]interface{})
	assert.EqualValues(t, e.f.Store.ID, asset["department_id"])

	status, env = e.do(http.MethodGet, path("history"), nil, e.f.Staff)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, env.Data["transactions"], 3)

	status, env = e.do(http.MethodGet, path("verify"), nil, e.f.Staff)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, env.Data["consistent"])

	status, _ = e.do(http.MethodPost, path("report"), map[string]interface{}{"status": "lost"}, e.f.Staff)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = e.do(http.MethodPost, path("report"), map[string]interface{}{"status": "stolen"}, e.f.Admin)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoutes_AssetErrors(t *testing.T) {
	e := newAPI(t)
	e.registerAsset("NB-001")

	status, _ := e.do(http.MethodPost, "/api/v1/assets", map[string]interface{}{
		"tag": "NB-001", "name": "Duplicate", "condition": "new",
	}, e.f.Staff)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = e.do(http.MethodPost, "/api/v1/assets", map[string]interface{}{
		"name": "No tag", "condition": "new",
	}, e.f.Staff)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(http.MethodGet, "/api/v1/assets/9999", nil, e.f.Staff)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = e.do(http.MethodPost, "/api/v1/assets/9999/receive", map[string]interface{}{"department_id": e.f.Store.ID}, e.f.Staff)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = e.do(http.MethodGet, "/api/v1/assets/abc", nil, e.f.Staff)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = e.do(http.MethodGet, "/api/v1/assets?status=stolen", nil, e.f.Staff)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestRoutes_ListSorting(t *testing.T) {
	e := newAPI(t)
	e.registerAsset("NB-002")
	e.registerAsset("NB-001")

	status, env := e.do(http.MethodGet, "/api/v1/assets?sort=tag", nil, e.f.Staff)
	require.Equal(t, http.StatusOK, status, env.Error)
	items := env.Data["data"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "NB-001", items[0].(map[string]interface{})["tag"])
	assert.Equal(t, "tag", env.Data["meta"].(map[string]interface{})["sort"])

	status, env = e.do(http.MethodGet, "/api/v1/assets", nil, e.f.Staff)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "NB-001", env.Data["data"].([]interface{})[0].(map[string]interface{})["tag"], "newest first")

	status, env = e.do(http.MethodGet, "/api/v1/assets?sort=id", nil, e.f.Staff)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Error, "unknown sort")

	status, env = e.do(http.MethodGet, "/api/v1/books?sort=author", nil, e.f.Member)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 50, env.Data["meta"].(map[string]interface{})["limit"])

	status, _ = e.do(http.MethodGet, "/api/v1/loans?sort=due", nil, e.f.Librarian)
	assert.Equal(t, http.StatusOK, status)
}

func TestRoutes_Loans(t *testing.T) {
	e := newAPI(t)

	issue := map[string]interface{}{"book_id": e.f.PhysicalBook.ID, "borrower_id": e.f.Member.ID}
	status, env := e.do(http.MethodPost, "/api/v1/loans", issue, e.f.Librarian)
	require.Equal(t, http.StatusCreated, status, env.Error)
	loan := env.Data["loan"].(map[string]interface{})
	loanID := uint(loan["id"].(float64))

	status, _ = e.do(http.MethodPost, "/api/v1/loans", issue, e.f.Librarian)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = e.do(http.MethodPost, "/api/v1/loans", map[string]interface{}{
		"book_id": e.f.Ebook.ID, "borrower_id": e.f.Member.ID,
	}, e.f.Librarian)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, _ = e.do(http.MethodPost, "/api/v1/loans", map[string]interface{}{
		"book_id": e.f.SecondBook.ID, "borrower_id": e.f.Member.ID, "return_date": "2001-01-01",
	}, e.f.Librarian)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = e.do(http.MethodGet, "/api/v1/loans/my", nil, e.f.Member)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, env.Data["data"], 1)

	returnPath := fmt.Sprintf("/api/v1/loans/%d/return", loanID)
	status, _ = e.do(http.MethodPut, returnPath, nil, e.f.Librarian)
	assert.Equal(t, http.StatusOK, status)

	status, _ = e.do(http.MethodPut, returnPath, nil, e.f.Librarian)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, env = e.do(http.MethodGet, fmt.Sprintf("/api/v1/books/%d", e.f.PhysicalBook.ID), nil, e.f.Member)
	require.Equal(t, http.StatusOK, status)
	book := env.Data["book"].(map[string]interface{})
	assert.Equal(t, true, book["is_available"])
}

func TestRoutes_CacheHeaders(t *testing.T) {
	e := newAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/master/departments", nil)
	req.Header.Set("Authorization", "Bearer "+e.token(e.f.Member))
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "public, max-age=600", resp.Header.Get(fiber.HeaderCacheControl))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/assets", nil)
	req.Header.Set("Authorization", "Bearer "+e.token(e.f.Staff))
	resp, err = e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Contains(t, resp.Header.Get(fiber.HeaderCacheControl), "no-store")
}

func TestRoutes_Metrics(t *testing.T) {
	e := newAPI(t)
	id := e.registerAsset("NB-001")
	status, _ := e.do(http.MethodPost, fmt.Sprintf("/api/v1/assets/%d/receive", id), map[string]interface{}{"department_id": e.f.Store.ID}, e.f.Staff)
	require.Equal(t, http.StatusOK, status)

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `schoolhub_asset_operations_total{operation="received",outcome="ok"} 1`)
}

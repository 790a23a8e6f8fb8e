package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

type testEnv struct {
	t    *testing.T
	srv  *Server
	repo *storage.Repository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)

	agg := services.NewAggregationService(repo, nil)
	srv := NewServer(":0", Deps{
		Auth:         services.NewAuthService(repo, auth.NewTokenIssuer("0123456789abcdef-test", time.Hour), auth.NewHasher(4)),
		Transactions: services.NewTransactionService(repo, nil, agg),
		Categories:   services.NewCategoryService(repo, agg),
		Users:        services.NewUserService(repo, agg),
		Aggregation:  agg,
		Store:        repo,
	}, Options{
		Logger:            log.New(log.Config{Level: slog.LevelError, Output: io.Discard}),
		RequestsPerMinute: 10000,
	})

	t.Cleanup(func() {
		srv.rateLimiter.Stop()
		repo.Close()
	})
	return &testEnv{t: t, srv: srv, repo: repo}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(e.t, err)
		rd = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

// signup registers and logs in a user, returning the access token.
func (e *testEnv) signup(username string, role core.Role) string {
	e.t.Helper()
	rr := e.do(http.MethodPost, "/auth/register", "", map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
		"role":     role,
	})
	require.Equal(e.t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = e.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(e.t, http.StatusOK, rr.Code, rr.Body.String())

	var res services.LoginResult
	require.NoError(e.t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res.AccessToken
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	}

	require.NoError(t, env.repo.Close())
	rr := env.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
	u := decode[core.User](t, rr)
	assert.Equal(t, core.RoleUser, u.Role)

	rr = env.do(http.MethodPost, "/auth/register", "", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "email", decode[errorBody](t, rr).Field)

	rr = env.do(http.MethodPost, "/auth/register", "", map[string]string{"username": "x", "email": "x@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "password", decode[errorBody](t, rr).Field)

	wrong := env.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "alice@example.com", "password": "nope-nope"})
	unknown := env.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "bob@example.com", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())

	rr = env.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rr.Code)
	res := decode[map[string]any](t, rr)
	assert.NotEmpty(t, res["access_token"])
	assert.Equal(t, "user", res["role"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/transactions"},
		{http.MethodGet, "/transactions/summary"},
		{http.MethodPost, "/transactions"},
		{http.MethodDelete, "/transactions/1"},
		{http.MethodGet, "/users/me"},
	} {
		rr := env.do(tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.path)

		rr = env.do(tc.method, tc.path, "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, tc.path)
	}
}

func TestTransactionCRUD(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup("alice", "")
	bob := env.signup("bob", "")

	rr := env.do(http.MethodPost, "/categories", "", map[string]string{"name": "Food", "type": "expense"})
	require.Equal(t, http.StatusCreated, rr.Code)
	food := decode[core.Category](t, rr)

	rr = env.do(http.MethodPost, "/transactions", alice, map[string]any{"type": "expense", "amount": 12.345, "categoryId": food.ID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	tx := decode[core.Transaction](t, rr)
	assert.Equal(t, int64(1235), tx.Amount.Cents)
	require.NotNil(t, tx.Category)
	assert.Equal(t, "Food", tx.Category.Name)
	require.NotNil(t, tx.User)
	assert.Equal(t, "alice", tx.User.Username)

	path := "/transactions/" + jsonNumber(tx.ID)

	rr = env.do(http.MethodGet, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = env.do(http.MethodPatch, path, bob, map[string]any{"amount": 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = env.do(http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodPatch, path, alice, `{"categoryId": null, "amount": "20"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[core.Transaction](t, rr)
	assert.Nil(t, updated.CategoryID)
	assert.Equal(t, int64(2000), updated.Amount.Cents)
	assert.Equal(t, core.Expense, updated.Type)

	rr = env.do(http.MethodGet, "/transactions", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]core.Transaction](t, rr), 1)

	rr = env.do(http.MethodGet, "/transactions", bob, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())

	rr = env.do(http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	rr = env.do(http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup("alice", "")

	tests := []struct {
		name  string
		body  any
		code  int
		field string
	}{
		{"bad type", map[string]any{"type": "transfer", "amount": 5}, http.StatusBadRequest, "type"},
		{"zero amount", map[string]any{"type": "income", "amount": 0}, http.StatusBadRequest, "amount"},
		{"negative amount", map[string]any{"type": "income", "amount": -5}, http.StatusBadRequest, "amount"},
		{"non numeric amount", map[string]any{"type": "income", "amount": "abc"}, http.StatusBadRequest, "amount"},
		{"malformed json", `{"type":`, http.StatusBadRequest, ""},
		{"missing category", map[string]any{"type": "income", "amount": 5, "categoryId": 99}, http.StatusNotFound, ""},
		{"other owner", map[string]any{"type": "income", "amount": 5, "userId": 999}, http.StatusForbidden, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/transactions", alice, tt.body)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
			if tt.field != "" {
				assert.Equal(t, tt.field, decode[errorBody](t, rr).Field)
			}
		})
	}

	rr := env.do(http.MethodGet, "/transactions/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAggregationRoutes(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup("alice", "")

	for _, body := range []map[string]any{
		{"type": "income", "amount": 100},
		{"type": "expense", "amount": 40},
		{"type": "income", "amount": 50},
	} {
		rr := env.do(http.MethodPost, "/transactions", alice, body)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := env.do(http.MethodGet, "/transactions/summary", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"income":150.00,"expenses":40.00,"savings":110.00}`, rr.Body.String())

	rr = env.do(http.MethodGet, "/transactions/weekly-income-expense", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	week := decode[[]core.DailyEntry](t, rr)
	require.Len(t, week, 7)
	assert.Equal(t, int64(15000), week[6].Income.Cents)
	assert.Equal(t, int64(4000), week[6].Expenses.Cents)

	rr = env.do(http.MethodGet, "/transactions/yearly-income-expense", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	months := decode[[]core.MonthlyEntry](t, rr)
	require.Len(t, months, 12)
	assert.Equal(t, "Jan", months[0].Month)

	rr = env.do(http.MethodGet, "/transactions/yearly-income-expense?year=abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "year", decode[errorBody](t, rr).Field)

	rr = env.do(http.MethodGet, "/transactions/category-usage-percent", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	usage := decode[[]core.CategoryUsage](t, rr)
	require.Len(t, usage, 1)
	assert.Nil(t, usage[0].CategoryID)
	assert.Equal(t, 100.0, usage[0].Percent)
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t)
	user := env.signup("alice", "")
	admin := env.signup("root", core.RoleAdmin)

	rr := env.do(http.MethodPost, "/categories", "", map[string]string{"name": "Rent"})
	require.Equal(t, http.StatusCreated, rr.Code)
	rent := decode[core.Category](t, rr)
	path := "/categories/" + jsonNumber(rent.ID)

	rr = env.do(http.MethodGet, "/users", user, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = env.do(http.MethodDelete, path, user, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(http.MethodGet, "/users", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]core.User](t, rr), 2)

	rr = env.do(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(http.MethodPost, "/categories", "", map[string]string{"name": "rent2", "type": "other"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUsersMe(t *testing.T) {
	env := newTestEnv(t)
	alice := env.signup("alice", "")

	rr := env.do(http.MethodPost, "/transactions", alice, map[string]any{"type": "income", "amount": 1})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = env.do(http.MethodGet, "/users/me", alice, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice", decode[core.User](t, rr).Username)

	rr = env.do(http.MethodDelete, "/users/me", alice, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = env.do(http.MethodGet, "/users/me", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "token of a deleted user must be rejected")
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "route not found", decode[errorBody](t, rr).Error)
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

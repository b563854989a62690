package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amiltenov/DigiLeave/api"
	"github.com/amiltenov/DigiLeave/leave"
	"github.com/amiltenov/DigiLeave/store/memory"
)

var testSecret = []byte("test-secret")

// =============================================================================
// TEST HARNESS
// =============================================================================

func newTestServer(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()
	store := memory.New()
	lifecycle := leave.NewLifecycle(store, store)
	lifecycle.Now = func() time.Time {
		return time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)
	}
	accrual := leave.NewAccrual(store)
	accrual.Now = lifecycle.Now
	handler := api.NewHandler(lifecycle, accrual)
	return api.NewRouter(handler, testSecret), store
}

func seedUser(t *testing.T, store *memory.Store, u *leave.User) {
	t.Helper()
	_, err := store.SaveUser(context.Background(), u)
	require.NoError(t, err)
}

func signToken(t *testing.T, u *leave.User) string {
	t.Helper()
	claims := jwt.MapClaims{
		"uid":   u.ID,
		"email": u.Email,
		"role":  string(u.Role),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

// =============================================================================
// AUTHENTICATION
// =============================================================================

func TestAuth_MissingToken(t *testing.T) {
	router, _ := newTestServer(t)

	w := doRequest(t, router, http.MethodGet, "/account", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_BadSignature(t *testing.T) {
	router, _ := newTestServer(t)

	claims := jwt.MapClaims{"uid": "u1", "role": "USER"}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	w := doRequest(t, router, http.MethodGet, "/account", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthz_Public(t *testing.T) {
	router, _ := newTestServer(t)

	w := doRequest(t, router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// =============================================================================
// LOGIN / ACCOUNT
// =============================================================================

func TestPostLogin_ProvisionsNewUser(t *testing.T) {
	router, _ := newTestServer(t)
	token := signToken(t, &leave.User{Email: "fresh@example.com", Role: leave.RoleUser})

	w := doRequest(t, router, http.MethodPost, "/auth/post-login", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	dto := decodeBody[api.UserDTO](t, w)
	assert.Equal(t, "fresh@example.com", dto.Email)
	assert.Equal(t, "USER", dto.Role)
	assert.Equal(t, leave.DefaultLeaveDays, dto.AvailableLeaveDays)
	assert.NotEmpty(t, dto.ID)

	// A second login returns the same record.
	w = doRequest(t, router, http.MethodPost, "/auth/post-login", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	again := decodeBody[api.UserDTO](t, w)
	assert.Equal(t, dto.ID, again.ID)
}

func TestGetAccount(t *testing.T) {
	router, store := newTestServer(t)
	u := &leave.User{ID: "u1", Email: "u1@example.com", FullName: "User One", Role: leave.RoleUser, AvailableLeaveDays: 20}
	seedUser(t, store, u)

	w := doRequest(t, router, http.MethodGet, "/account", signToken(t, u), nil)
	require.Equal(t, http.StatusOK, w.Code)

	dto := decodeBody[api.UserDTO](t, w)
	assert.Equal(t, "u1", dto.ID)
	assert.Equal(t, 20, dto.AvailableLeaveDays)
}

// =============================================================================
// OWNER REQUEST FLOW
// =============================================================================

func TestCreateRequest(t *testing.T) {
	router, store := newTestServer(t)
	u := &leave.User{ID: "u1", Email: "u1@example.com", Role: leave.RoleUser, AvailableLeaveDays: 20}
	seedUser(t, store, u)

	w := doRequest(t, router, http.MethodPost, "/requests", signToken(t, u), map[string]any{
		"startDate":     "2025-07-01",
		"endDate":       "2025-07-07",
		"workdaysCount": 5,
		"type":          "ANNUAL_PAID_LEAVE",
		"comment":       "summer trip",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	dto := decodeBody[api.RequestDTO](t, w)
	assert.Equal(t, "u1", dto.UserID)
	assert.Equal(t, "PENDING", dto.Status)
	assert.Equal(t, 5, dto.WorkdaysCount)
	assert.Equal(t, "2025-07-01", dto.StartDate)
	assert.NotEmpty(t, dto.ID)
}

func TestCreateRequest_ValidationFailures(t *testing.T) {
	router, store := newTestServer(t)
	u := &leave.User{ID: "u1", Email: "u1@example.com", Role: leave.RoleUser}
	seedUser(t, store, u)
	token := signToken(t, u)

	// Missing type.
	w := doRequest(t, router, http.MethodPost, "/requests", token, map[string]any{
		"startDate": "2025-07-01", "endDate": "2025-07-07", "workdaysCount": 5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Malformed date.
	w = doRequest(t, router, http.MethodPost, "/requests", token, map[string]any{
		"startDate": "07/01/2025", "endDate": "2025-07-07", "workdaysCount": 5, "type": "SICK_LEAVE",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown leave type passes the body check but fails in the core.
	w = doRequest(t, router, http.MethodPost, "/requests", token, map[string]any{
		"startDate": "2025-07-01", "endDate": "2025-07-07", "workdaysCount": 5, "type": "LUNCH_BREAK",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelAndReCancel(t *testing.T) {
	router, store := newTestServer(t)
	u := &leave.User{ID: "u1", Email: "u1@example.com", Role: leave.RoleUser, AvailableLeaveDays: 20}
	seedUser(t, store, u)
	token := signToken(t, u)

	w := doRequest(t, router, http.MethodPost, "/requests", token, map[string]any{
		"startDate": "2025-07-01", "endDate": "2025-07-07", "workdaysCount": 5, "type": "ANNUAL_PAID_LEAVE",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody[api.RequestDTO](t, w)

	w = doRequest(t, router, http.MethodPatch, "/requests/"+created.ID+"/cancel", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cancelled := decodeBody[api.RequestDTO](t, w)
	assert.Equal(t, "CANCELLED", cancelled.Status)

	// Cancelling again conflicts.
	w = doRequest(t, router, http.MethodPatch, "/requests/"+created.ID+"/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAcknowledgeSeen(t *testing.T) {
	router, store := newTestServer(t)
	u := &leave.User{ID: "u1", Email: "u1@example.com", Role: leave.RoleUser}
	seedUser(t, store, u)
	token := signToken(t, u)

	w := doRequest(t, router, http.MethodPost, "/requests", token, map[string]any{
		"startDate": "2025-07-01", "endDate": "2025-07-01", "workdaysCount": 1, "type": "SICK_LEAVE",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody[api.RequestDTO](t, w)

	w = doRequest(t, router, http.MethodPatch, "/requests/"+created.ID+"/seen", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeBody[api.RequestDTO](t, w).DecisionSeen)
}

// =============================================================================
// APPROVER FLOW
// =============================================================================

func TestDecideRequest_FullFlow(t *testing.T) {
	router, store := newTestServer(t)
	owner := &leave.User{ID: "u1", Email: "u1@example.com", Role: leave.RoleUser, AvailableLeaveDays: 20}
	approver := &leave.User{ID: "a1", Email: "a1@example.com", Role: leave.RoleApprover, AssigneeIDs: []string{"u1"}}
	seedUser(t, store, owner)
	seedUser(t, store, approver)

	w := doRequest(t, router, http.MethodPost, "/requests", signToken(t, owner), map[string]any{
		"startDate": "2025-07-01", "endDate": "2025-07-07", "workdaysCount": 5, "type": "ANNUAL_PAID_LEAVE",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody[api.RequestDTO](t, w)

	w = doRequest(t, router, http.MethodPatch, "/approver/request/"+created.ID, signToken(t, approver),
		map[string]any{"status": "APPROVED"})
	require.Equal(t, http.StatusOK, w.Code)

	decided := decodeBody[api.RequestDTO](t, w)
	assert.Equal(t, "APPROVED", decided.Status)
	assert.Equal(t, "a1", decided.DecidedByUserID)
	assert.False(t, decided.DecisionSeen)
	assert.NotNil(t, decided.DecidedAt)

	// The owner's balance is deducted.
	fresh, err := store.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 15, fresh.AvailableLeaveDays)

	// Deciding again is a 400.
	w = doRequest(t, router, http.MethodPatch, "/approver/request/"+created.ID, signToken(t, approver),
		map[string]any{"status": "REJECTED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDecideRequest_RoleGate(t *testing.T) {
	router, store := newTestServer(t)
	owner := &leave.User{ID: "u1", Email: "u1@example.com", Role: leave.RoleUser}
	seedUser(t, store, owner)

	// Plain USER is blocked by the route group, before any handler runs.
	w := doRequest(t, router, http.MethodPatch, "/approver/request/whatever", signToken(t, owner),
		map[string]any{"status": "APPROVED"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDecideRequest_NonAssignee(t *testing.T) {
	router, store := newTestServer(t)
	owner := &leave.User{ID: "u1", Email: "u1@example.com", Role: leave.RoleUser}
	outsider := &leave.User{ID: "b1", Email: "b1@example.com", Role: leave.RoleApprover, AssigneeIDs: []string{"someone-else"}}
	seedUser(t, store, owner)
	seedUser(t, store, outsider)

	w := doRequest(t, router, http.MethodPost, "/requests", signToken(t, owner), map[string]any{
		"startDate": "2025-07-01", "endDate": "2025-07-01", "workdaysCount": 1, "type": "SICK_LEAVE",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeBody[api.RequestDTO](t, w)

	w = doRequest(t, router, http.MethodPatch, "/approver/request/"+created.ID, signToken(t, outsider),
		map[string]any{"status": "APPROVED"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListAssignees(t *testing.T) {
	router, store := newTestServer(t)
	seedUser(t, store, &leave.User{ID: "u1", Email: "u1@example.com", Role: leave.RoleUser})
	seedUser(t, store, &leave.User{ID: "u2", Email: "u2@example.com", Role: leave.RoleUser})
	approver := &leave.User{ID: "a1", Email: "a1@example.com", Role: leave.RoleApprover, AssigneeIDs: []string{"u1", "gone"}}
	seedUser(t, store, approver)

	w := doRequest(t, router, http.MethodGet, "/approver/assignees", signToken(t, approver), nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Dangling assignee ids are skipped, not errors.
	dtos := decodeBody[[]api.UserDTO](t, w)
	require.Len(t, dtos, 1)
	assert.Equal(t, "u1", dtos[0].ID)
}

// =============================================================================
// ADMIN FLOW
// =============================================================================

func TestAdminRoutes_RoleGate(t *testing.T) {
	router, store := newTestServer(t)
	approver := &leave.User{ID: "a1", Email: "a1@example.com", Role: leave.RoleApprover}
	seedUser(t, store, approver)

	w := doRequest(t, router, http.MethodGet, "/admin/users", signToken(t, approver), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminPatchUser(t *testing.T) {
	router, store := newTestServer(t)
	admin := &leave.User{ID: "adm", Email: "adm@example.com", Role: leave.RoleAdmin}
	seedUser(t, store, admin)
	seedUser(t, store, &leave.User{ID: "u1", Email: "u1@example.com", FullName: "Old Name", Role: leave.RoleUser, AvailableLeaveDays: 10})

	w := doRequest(t, router, http.MethodPatch, "/admin/users/u1", signToken(t, admin), map[string]any{
		"fullName":           "New Name",
		"role":               "APPROVER",
		"availableLeaveDays": 30,
		"assigneeIds":        []string{"u2"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	dto := decodeBody[api.UserDTO](t, w)
	assert.Equal(t, "New Name", dto.FullName)
	assert.Equal(t, "APPROVER", dto.Role)
	assert.Equal(t, 30, dto.AvailableLeaveDays)
	assert.Equal(t, []string{"u2"}, dto.AssigneeIDs)
	assert.Equal(t, "u1@example.com", dto.Email)
}

func TestAdminPatchUser_BalanceAboveCap(t *testing.T) {
	router, store := newTestServer(t)
	admin := &leave.User{ID: "adm", Email: "adm@example.com", Role: leave.RoleAdmin}
	seedUser(t, store, admin)
	seedUser(t, store, &leave.User{ID: "u1", Email: "u1@example.com", Role: leave.RoleUser})

	w := doRequest(t, router, http.MethodPatch, "/admin/users/u1", signToken(t, admin), map[string]any{
		"availableLeaveDays": leave.MaxBalance + 1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminDeleteUser(t *testing.T) {
	router, store := newTestServer(t)
	admin := &leave.User{ID: "adm", Email: "adm@example.com", Role: leave.RoleAdmin}
	seedUser(t, store, admin)
	seedUser(t, store, &leave.User{ID: "u1", Email: "u1@example.com", Role: leave.RoleUser})

	w := doRequest(t, router, http.MethodDelete, "/admin/users/u1", signToken(t, admin), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, router, http.MethodDelete, "/admin/users/u1", signToken(t, admin), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminTriggerAnnualAccrual(t *testing.T) {
	router, store := newTestServer(t)
	admin := &leave.User{ID: "adm", Email: "adm@example.com", Role: leave.RoleAdmin, ContractLeaveDays: 20}
	seedUser(t, store, admin)
	seedUser(t, store, &leave.User{
		ID: "u1", Email: "u1@example.com", Role: leave.RoleUser,
		AvailableLeaveDays: 55, ContractLeaveDays: 10,
	})

	w := doRequest(t, router, http.MethodPost, "/admin/accrual/annual", signToken(t, admin), nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	fresh, err := store.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, leave.MaxBalance, fresh.AvailableLeaveDays)
}

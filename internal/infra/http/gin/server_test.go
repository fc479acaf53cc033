package ginserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomledger/internal/app/wiring"
	"roomledger/internal/clock"
	"roomledger/internal/infra/config"
	"roomledger/internal/infra/obs"
	"roomledger/internal/infra/storage/memory"
)

type staticVerifier string

func (v staticVerifier) Verify(token string) error {
	if token != string(v) {
		return errors.New("bad token")
	}
	return nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	buses := wiring.Build(wiring.Deps{
		UoWFactory:      store,
		Outbox:          store.Outbox,
		Idempotency:     store.Idempotency,
		Clock:           clock.NewFixed(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		DefaultCurrency: "USD",
	})
	return NewRouter(config.Config{Env: "test", RequestTimeout: time.Second}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Availability: AvailabilityHandler{Queries: buses.Queries},
		Holds:        HoldHandler{Commands: buses.Commands, Queries: buses.Queries},
		Admin:        AdminHandler{Commands: buses.Commands, Queries: buses.Queries},
		AdminAuth:    AdminGate{Verifier: staticVerifier("letmein")}.Handle,
	})
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var adminHeaders = map[string]string{"Authorization": "Bearer letmein"}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAdminRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)
	room := map[string]any{"id": "r1", "default_unit_count": 1, "base_nightly_price": "100"}

	w := do(t, r, http.MethodPost, "/api/v1/admin/rooms", room, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(t, r, http.MethodPost, "/api/v1/admin/rooms", room, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(t, r, http.MethodPost, "/api/v1/admin/rooms", room, adminHeaders)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHoldLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/admin/rooms", map[string]any{"id": "r1", "default_unit_count": 1, "base_nightly_price": "120"}, adminHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/rooms/r1/quote?check_in=2025-07-01&check_out=2025-07-03", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	total := decode(t, w)["total"].(map[string]any)
	assert.Equal(t, "240.00", total["amount"])

	hold := map[string]any{"room_id": "r1", "check_in": "2025-07-01", "check_out": "2025-07-03", "units": 1}
	w = do(t, r, http.MethodPost, "/api/v1/holds", hold, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode(t, w)["id"].(string)
	w = do(t, r, http.MethodPost, "/api/v1/holds", hold, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	second := decode(t, w)["id"].(string)

	w = do(t, r, http.MethodPost, "/api/v1/holds/"+first+"/confirm", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", decode(t, w)["status"])

	w = do(t, r, http.MethodPost, "/api/v1/holds/"+second+"/confirm", nil, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "insufficient_availability", body["code"])
	assert.Equal(t, "2025-07-01", body["night"])

	w = do(t, r, http.MethodGet, "/api/v1/rooms/r1/availability?check_in=2025-07-01&check_out=2025-07-03", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["available"])

	w = do(t, r, http.MethodPost, "/api/v1/holds/"+first+"/cancel", map[string]any{"reason": "guest request"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodPost, "/api/v1/holds/"+first+"/cancel", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", decode(t, w)["code"])

	w = do(t, r, http.MethodPost, "/api/v1/holds/"+second+"/confirm", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodPost, "/api/v1/admin/holds/"+second+"/complete", nil, adminHeaders)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode(t, w)["status"])
}

func TestAdminCalendarRoutes(t *testing.T) {
	r := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/v1/admin/rooms",
		map[string]any{"id": "r1", "default_unit_count": 2, "base_nightly_price": "100"}, adminHeaders).Code)

	w := do(t, r, http.MethodPost, "/api/v1/admin/rooms/r1/calendar", map[string]any{"from": "2025-08-01", "to": "2025-08-02", "quota": 0, "price": "90"}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/admin/rooms/r1/calendar?from=2025-08-01&to=2025-08-03", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	days := decode(t, w)["days"].([]any)
	require.Len(t, days, 3)
	assert.Equal(t, true, days[0].(map[string]any)["stop_sell"])
	assert.Equal(t, false, days[2].(map[string]any)["stop_sell"])

	w = do(t, r, http.MethodPut, "/api/v1/admin/rooms/r1/pricing", map[string]any{"weekday_prices": map[string]any{"sunday": "150"}}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodGet, "/api/v1/rooms/r1/price?date=2025-08-03", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "weekday", decode(t, w)["source"])

	w = do(t, r, http.MethodPost, "/api/v1/admin/rooms/r1/calendar/export", map[string]any{"from": "2025-08-01", "to": "2025-08-03"}, adminHeaders)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestErrorMapping(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/rooms/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["code"])

	w = do(t, r, http.MethodGet, "/api/v1/rooms/r1/price?date=07/01/2025", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "date", decode(t, w)["field"])

	w = do(t, r, http.MethodGet, "/api/v1/rooms/r1/availability?check_in=2025-07-01", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "check_out", decode(t, w)["field"])

	w = do(t, r, http.MethodPost, "/api/v1/holds", map[string]any{"room_id": "", "check_in": "2025-07-01", "check_out": "2025-07-02"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "room_id", decode(t, w)["field"])

	w = do(t, r, http.MethodGet, "/api/v1/rooms/r1/availability?check_in=2025-07-01&check_out=2025-07-02&units=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "units", decode(t, w)["field"])

	w = do(t, r, http.MethodPost, "/api/v1/holds", map[string]any{"room_id": "r1", "check_in": "2025-07-01", "check_out": "2025-07-02", "units": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "units", decode(t, w)["field"])
}

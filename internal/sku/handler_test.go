package sku

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newAPIRouter(t *testing.T, repo *memoryRepo) chi.Router {
	t.Helper()
	svc := NewService(repo, nil, newLimiter(t), nil)
	h := NewHandler(slog.Default(), svc, nil, nil, nil)
	r := chi.NewRouter()
	h.MountAPIRoutes(r)
	return r
}

func getLookup(router chi.Router, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleLookupJSON(t *testing.T) {
	repo := newMemoryRepo(sampleRecord())
	repo.summaries["WID-100"] = InventorySummary{TotalOnHand: 12, TotalAvailable: 12, LocationCount: 1}
	router := newAPIRouter(t, repo)

	rec := getLookup(router, "/sku/WID-100?include_inventory=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "WID-100", body["sku_id"])
	require.Equal(t, true, body["found"])
	require.Equal(t, APIVersion, body["api_version"])

	inventory, ok := body["inventory"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(12), inventory["total_on_hand"])
}

func TestHandleLookupOmitsInventoryByDefault(t *testing.T) {
	router := newAPIRouter(t, newMemoryRepo(sampleRecord()))

	rec := getLookup(router, "/sku/WID-100")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotContains(t, body, "inventory")
}

func TestHandleLookupUnknownCode(t *testing.T) {
	router := newAPIRouter(t, newMemoryRepo())

	rec := getLookup(router, "/sku/GONE-9")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["found"])
	require.Equal(t, "GONE-9", body["sku_id"])
}

func TestHandleLookupBadCode(t *testing.T) {
	router := newAPIRouter(t, newMemoryRepo())

	rec := getLookup(router, "/sku/bad%20code%3B")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["error"])
}

func TestHandleLookupRateLimited(t *testing.T) {
	router := newAPIRouter(t, newMemoryRepo(sampleRecord()))

	var rec *httptest.ResponseRecorder
	for i := 0; i <= lookupRateMax; i++ {
		rec = getLookup(router, "/sku/WID-100")
	}
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestHandleLookupRateLimitIsPerClientIP(t *testing.T) {
	router := newAPIRouter(t, newMemoryRepo(sampleRecord()))

	lookupFrom := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/sku/WID-100", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	var rec *httptest.ResponseRecorder
	for i := 0; i <= lookupRateMax; i++ {
		rec = lookupFrom("10.0.0.1:4000")
	}
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// An exhausted window for one client must not block another.
	rec = lookupFrom("10.0.0.2:4000")
	require.Equal(t, http.StatusOK, rec.Code)
}

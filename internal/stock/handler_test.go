package stock

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, repo *memoryRepo) chi.Router {
	t.Helper()
	svc := NewService(repo, newLimiter(t), &memoryAudit{}, slog.Default())
	h := NewHandler(slog.Default(), svc, nil, nil)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func postBulkDelete(t *testing.T, router chi.Router, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/stock/bulk-delete", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleBulkDeleteJSON(t *testing.T) {
	repo := newMemoryRepo(
		Item{TagID: "T1", ItemCode: "SKU1", QtyAllocated: 0},
		Item{TagID: "T2", ItemCode: "SKU2", QtyAllocated: 5},
	)
	router := newTestRouter(t, repo)

	rec := postBulkDelete(t, router, url.Values{"tag_ids": {"T1", "T2", "T3"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var body bulkDeleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, 1, body.DeletedCount)
	require.Equal(t, []string{"T2 blocked: allocated quantity", "T3 not found"}, body.Errors)
	require.Equal(t, "1 item dihapus, 2 gagal", body.Message)
}

func TestHandleBulkDeleteLegacyField(t *testing.T) {
	repo := newMemoryRepo(Item{TagID: "T9", QtyAllocated: 0})
	router := newTestRouter(t, repo)

	rec := postBulkDelete(t, router, url.Values{"tag_id": {"T9"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var body bulkDeleteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.DeletedCount)
	require.Empty(t, body.Errors)
}

func TestHandleBulkDeleteEmptyBatch(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo())

	rec := postBulkDelete(t, router, url.Values{"tag_ids": {"", "not a tag!"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["error"])
}

func TestHandleBulkDeleteRateLimited(t *testing.T) {
	repo := newMemoryRepo()
	big := url.Values{}
	for i := 0; i < 11; i++ {
		tagID := "R" + string(rune('A'+i))
		repo.items[tagID] = Item{TagID: tagID}
		big.Add("tag_ids", tagID)
	}
	router := newTestRouter(t, repo)

	for i := 0; i < 3; i++ {
		rec := postBulkDelete(t, router, big)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := postBulkDelete(t, router, big)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

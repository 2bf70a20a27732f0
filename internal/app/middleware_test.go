package app_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/app"
	"github.com/stockdesk/stockdesk/internal/shared"
)

type mutationCounter struct {
	calls int
}

func newStackRouter(t *testing.T) (*chi.Mux, *mutationCounter) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sessions := shared.NewSessionManager(client, "stockdesk_session", "session-secret", time.Hour, false)
	csrf := shared.NewCSRFManager("csrf-secret")

	stack := app.MiddlewareStack(app.MiddlewareConfig{
		Logger:         slog.Default(),
		SessionManager: sessions,
		CSRFManager:    csrf,
	})

	counter := &mutationCounter{}
	r := chi.NewRouter()
	r.Use(stack...)
	r.Get("/token", func(w http.ResponseWriter, req *http.Request) {
		sess := shared.SessionFromContext(req.Context())
		token, err := csrf.EnsureToken(req.Context(), sess)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(token))
	})
	r.Post("/mutate", func(w http.ResponseWriter, req *http.Request) {
		counter.calls++
		w.WriteHeader(http.StatusOK)
	})
	return r, counter
}

func fetchToken(t *testing.T, router *chi.Mux) (string, *http.Cookie) {
	t.Helper()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "stockdesk_session" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	return rec.Body.String(), cookie
}

func TestCSRFMissingTokenBlocksMutation(t *testing.T) {
	router, counter := newStackRouter(t)
	_, cookie := fetchToken(t, router)

	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, 0, counter.calls)
}

func TestCSRFForgedTokenBlocksMutation(t *testing.T) {
	router, counter := newStackRouter(t)
	_, cookie := fetchToken(t, router)

	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.AddCookie(cookie)
	req.Header.Set(shared.CSRFHeader, "deadbeef")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, 0, counter.calls)
}

func TestCSRFValidTokenAllowsMutation(t *testing.T) {
	router, counter := newStackRouter(t)
	token, cookie := fetchToken(t, router)

	req := httptest.NewRequest(http.MethodPost, "/mutate", nil)
	req.AddCookie(cookie)
	req.Header.Set(shared.CSRFHeader, token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, counter.calls)
}

func TestCSRFSkipsSafeMethods(t *testing.T) {
	router, _ := newStackRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

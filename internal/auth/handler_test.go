package auth_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stockdesk/stockdesk/internal/auth"
	"github.com/stockdesk/stockdesk/internal/shared"
	"github.com/stockdesk/stockdesk/internal/view"
	_ "github.com/stockdesk/stockdesk/testing"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	handler := auth.NewHandler(slog.Default(), auth.NewService(repo), templates, sessionManager, csrfManager)
	return handler, sessionManager
}

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	return &auth.User{ID: 1, Email: "user@test.local", PasswordHash: string(hashed), IsActive: true}
}

func TestLoginPage(t *testing.T) {
	handler, sessionManager := newAuthHandler(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	require.NoError(t, sessionManager.Commit(req.Context(), res, req, sess))

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "<form")
}

func postLogin(t *testing.T, handler *auth.Handler, sessionManager *shared.SessionManager, sess *shared.Session, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: sessionManager.CookieName(), Value: sess.ID})

	loaded, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), loaded))

	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)
	require.NoError(t, sessionManager.Commit(req.Context(), res, req, loaded))
	return res
}

func primeSession(t *testing.T, handler *auth.Handler, sessionManager *shared.SessionManager) *shared.Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)
	require.NoError(t, sessionManager.Commit(req.Context(), res, req, sess))
	return sess
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass")}
	handler, sessionManager := newAuthHandler(t, repo)
	sess := primeSession(t, handler, sessionManager)

	form := url.Values{}
	form.Set("email", "user@test.local")
	form.Set("password", "wrongpass")

	res := postLogin(t, handler, sessionManager, sess, form)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "Email atau password tidak valid")
	require.Empty(t, repo.sessions)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "correctpass")
	user.IsActive = false
	handler, sessionManager := newAuthHandler(t, &stubRepo{user: user})
	sess := primeSession(t, handler, sessionManager)

	form := url.Values{}
	form.Set("email", "user@test.local")
	form.Set("password", "correctpass")

	res := postLogin(t, handler, sessionManager, sess, form)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "Email atau password tidak valid")
}

func TestLoginSuccessRedirectsAndRotatesToken(t *testing.T) {
	repo := &stubRepo{user: activeUser(t, "correctpass")}
	handler, sessionManager := newAuthHandler(t, repo)
	sess := primeSession(t, handler, sessionManager)
	tokenBefore := sess.Get(shared.CSRFSessionKey)
	require.NotEmpty(t, tokenBefore)

	form := url.Values{}
	form.Set("email", "user@test.local")
	form.Set("password", "correctpass")

	res := postLogin(t, handler, sessionManager, sess, form)
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/", res.Header().Get("Location"))
	require.Len(t, repo.sessions, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionManager.CookieName(), Value: sess.ID})
	after, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "1", after.User())
	require.NotEqual(t, tokenBefore, after.Get(shared.CSRFSessionKey))
}

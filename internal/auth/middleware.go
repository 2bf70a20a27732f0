package auth

import (
	"net/http"

	"github.com/stockdesk/stockdesk/internal/platform/httpx"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// RequireLogin rejects requests without an authenticated session. Browser
// requests are redirected to the login page; API requests get a JSON 401.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			if httpx.WantsJSON(r) {
				httpx.Error(w, http.StatusUnauthorized, "Sesi berakhir, silakan masuk kembali")
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

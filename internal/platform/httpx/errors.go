// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/stockdesk/stockdesk/internal/shared"
)

// RespondError maps the error taxonomy to JSON responses. Internal detail
// never reaches the body; callers log the full error separately.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Error(w, http.StatusNotFound, shared.UserSafeMessage(err))
	case shared.IsValidation(err):
		Error(w, http.StatusBadRequest, shared.UserSafeMessage(err))
	case errors.Is(err, shared.ErrCSRFTokenMissing), errors.Is(err, shared.ErrCSRFTokenMismatch):
		Error(w, http.StatusForbidden, shared.UserSafeMessage(err))
	case shared.IsRateLimited(err):
		var rle *shared.RateLimitError
		if errors.As(err, &rle) && rle.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(rle.RetryAfter.Seconds())))
		}
		Error(w, http.StatusTooManyRequests, shared.UserSafeMessage(err))
	default:
		Error(w, http.StatusInternalServerError, shared.UserSafeMessage(err))
	}
}

package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// IdentityFromContext returns the authenticated user ID for the request, or
// "anonymous" when no session user is set. Used as the rate-limit key suffix
// and as the audit actor.
func IdentityFromContext(ctx context.Context) string {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.User() == "" {
		return "anonymous"
	}
	return sess.User()
}

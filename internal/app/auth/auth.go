// Package auth carries the authenticated admin session through a request context.
package auth

import "context"

// Session represents an authenticated admin.
type Session struct {
	Subject string
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying the session.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	if !ok || s.Subject == "" {
		return Session{}, false
	}
	return s, true
}

// Authenticated reports whether ctx carries a session.
func Authenticated(ctx context.Context) bool {
	_, ok := FromContext(ctx)
	return ok
}

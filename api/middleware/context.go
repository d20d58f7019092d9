package middleware

import (
	"context"

	"github.com/angelmondragon/moviestore/pkg/auth/session"
	"github.com/angelmondragon/moviestore/pkg/db/models"
)

type contextKey string

const (
	ctxSession contextKey = "session"
	ctxUser    contextKey = "user"
	ctxCommit  contextKey = "session_commit"
)

// SessionFromContext returns the request session, or nil outside the
// Session middleware.
func SessionFromContext(ctx context.Context) *session.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*session.Session); ok {
		return v
	}
	return nil
}

// UserFromContext returns the logged-in user, or nil for anonymous requests.
func UserFromContext(ctx context.Context) *models.User {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxUser).(*models.User); ok {
		return v
	}
	return nil
}

// WithSession injects the session into the context.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}

// WithUser injects the authenticated user into the context.
func WithUser(ctx context.Context, user *models.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUser, user)
}

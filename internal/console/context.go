package console

import (
	"context"

	"github.com/appetiteclub/posconsole/internal/backend"
)

type contextKey string

const (
	contextKeySession contextKey = "session"
	contextKeyBackend contextKey = "backend_session"
)

func withSession(ctx context.Context, session *Session, bs *backend.Session) context.Context {
	ctx = context.WithValue(ctx, contextKeySession, session)
	return context.WithValue(ctx, contextKeyBackend, bs)
}

func sessionFromContext(ctx context.Context) *Session {
	if session, ok := ctx.Value(contextKeySession).(*Session); ok {
		return session
	}
	return nil
}

func backendFromContext(ctx context.Context) *backend.Session {
	if bs, ok := ctx.Value(contextKeyBackend).(*backend.Session); ok {
		return bs
	}
	return nil
}

package access

import (
	"context"

	"github.com/JonMunkholm/dados/internal/core"
)

// Session is an authenticated identity and its role. It is passed
// explicitly to every gated operation.
type Session struct {
	Identity string
	Role     Role
}

// Can reports whether the session's role grants c.
func (s Session) Can(c Capability) bool {
	return s.Role.Can(c)
}

// Require returns an AuthorizationError unless the session's role grants c.
func (s Session) Require(c Capability) error {
	if s.Role.Can(c) {
		return nil
	}
	return &core.AuthorizationError{
		Identity:   s.Identity,
		Capability: string(c),
		Err:        core.ErrCapabilityDenied,
	}
}

type sessionKey struct{}

// ContextWithSession stores s in ctx.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session stored by ContextWithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

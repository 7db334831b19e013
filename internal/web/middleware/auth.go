package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/dados/internal/access"
	"github.com/JonMunkholm/dados/internal/core"
)

// Authenticator resolves credentials to a session.
type Authenticator interface {
	Authorize(identity, secret string) (access.Session, error)
}

// BasicAuth returns middleware that authenticates every request with HTTP
// Basic credentials and stores the resulting session in the request context.
// Requests without credentials or with rejected ones get 401.
func BasicAuth(auth Authenticator, realm string) func(http.Handler) http.Handler {
	challenge := `Basic realm="` + realm + `", charset="UTF-8"`

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, secret, ok := r.BasicAuth()
			if !ok {
				slog.Warn("auth: missing credentials",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				w.Header().Set("WWW-Authenticate", challenge)
				writeError(w, http.StatusUnauthorized, &core.AuthorizationError{Err: core.ErrInvalidCredentials})
				return
			}

			sess, err := auth.Authorize(identity, secret)
			if err != nil {
				slog.Warn("auth: rejected credentials",
					"identity", identity,
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				w.Header().Set("WWW-Authenticate", challenge)
				writeError(w, http.StatusUnauthorized, err)
				return
			}

			ctx := access.ContextWithSession(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeError writes the mapped user message as a JSON error body.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}

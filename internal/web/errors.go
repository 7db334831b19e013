package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical details and the request ID (server-side)
//   - Returned to the client as a JSON user message with an action and code
//
// The status code follows the error kind, so handlers just call
// respondError(w, r, err).

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/dados/internal/core"
	"github.com/JonMunkholm/dados/internal/logging"
	"github.com/JonMunkholm/dados/internal/service"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user message with the status that
// matches its kind.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	respondErrorStatus(w, r, err, statusFor(err))
}

func respondErrorStatus(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	respondErrorJSON(w, userMsg, statusCode)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	var (
		authErr   *core.AuthorizationError
		parseErr  *core.ParseError
		connErr   *core.ConnectionError
		renderErr *core.RenderError
		delivErr  *core.DeliveryError
	)

	switch {
	case errors.As(err, &authErr):
		if authErr.Forbidden() {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case errors.As(err, &parseErr):
		if errors.Is(err, core.ErrUnknownColumn) || errors.Is(err, core.ErrEmptyFile) {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	case errors.As(err, &connErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &renderErr):
		if errors.Is(err, core.ErrUnknownFormat) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	case errors.As(err, &delivErr):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

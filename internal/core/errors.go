package core

import (
	"errors"
	"fmt"
)

// ErrInvalidCredentials is wrapped by AuthorizationError when an identity is
// unknown or its secret does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrCapabilityDenied is wrapped by AuthorizationError when a known identity's
// role does not grant the requested capability.
var ErrCapabilityDenied = errors.New("capability not granted")

// ErrUnknownFormat is wrapped by RenderError for an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

// ConnectionError reports that the store was unreachable or rejected the
// configured credentials.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ParseError reports malformed ingestion input or an invalid filter.
// Line is 1-based and zero when the failure is not tied to a line.
type ParseError struct {
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error at line %d: %s", e.Line, msg)
	}
	return "parse error: " + msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RenderError reports content that cannot be encoded in the export format.
type RenderError struct {
	Format string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// DeliveryError reports a failed mail submission. It is returned once;
// nothing retries it.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed: %s: %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// AuthorizationError reports an unknown identity, a wrong secret, or a role
// check failure. Capability is empty for authentication failures.
type AuthorizationError struct {
	Identity   string
	Capability string
	Err        error
}

func (e *AuthorizationError) Error() string {
	if e.Capability == "" {
		return fmt.Sprintf("unauthorized %q: %v", e.Identity, e.Err)
	}
	return fmt.Sprintf("forbidden: %q may not %s: %v", e.Identity, e.Capability, e.Err)
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

// Forbidden reports whether the error is a capability denial for an
// authenticated identity rather than an authentication failure.
func (e *AuthorizationError) Forbidden() bool {
	return errors.Is(e.Err, ErrCapabilityDenied)
}

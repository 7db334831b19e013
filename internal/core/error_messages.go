package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// Typed errors are matched first with errors.As/errors.Is:
//
//	DB004   - ConnectionError: Unable to connect to database
//	VAL002  - ParseError wrapping ErrInvalidNumber
//	VAL003  - ParseError wrapping ErrColumnCount
//	VAL004  - ParseError wrapping ErrUnknownColumn (bad filter)
//	FILE005 - ParseError wrapping ErrEmptyFile
//	FILE002 - any other ParseError (CSV syntax)
//	EXP002  - RenderError wrapping ErrUnknownFormat
//	EXP001  - any other RenderError
//	MAIL001 - DeliveryError
//	AUTH002 - AuthorizationError for a capability the role lacks
//	AUTH001 - any other AuthorizationError
//
// Untyped errors fall back to case-insensitive substring patterns; the first
// match wins. ERR000 is the fallback when nothing matches; support staff
// should check the logs for the technical error.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgConnection = UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}
	msgInvalidNumber = UserMessage{
		Message: "Invalid number format detected",
		Action:  "Use a plain decimal number in the third column",
		Code:    "VAL002",
	}
	msgColumnCount = UserMessage{
		Message: "Row does not have exactly three columns",
		Action:  "Each row must contain column1, column2 and value",
		Code:    "VAL003",
	}
	msgUnknownColumn = UserMessage{
		Message: "Filter refers to an unknown column",
		Action:  "Filter on column1, column2 or value",
		Code:    "VAL004",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure file is comma-separated with a header row",
		Code:    "FILE002",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row",
		Code:    "FILE005",
	}
	msgRender = UserMessage{
		Message: "The data could not be written in the export format",
		Action:  "Remove unsupported characters from the data and export again",
		Code:    "EXP001",
	}
	msgUnknownFormat = UserMessage{
		Message: "Unknown export format",
		Action:  "Export as xlsx or pdf",
		Code:    "EXP002",
	}
	msgDelivery = UserMessage{
		Message: "The email could not be delivered",
		Action:  "Check the recipient address and try again later",
		Code:    "MAIL001",
	}
	msgUnauthorized = UserMessage{
		Message: "Invalid user or password",
		Action:  "Sign in with a configured identity",
		Code:    "AUTH001",
	}
	msgForbidden = UserMessage{
		Message: "Your role does not allow this operation",
		Action:  "Ask an administrator for access",
		Code:    "AUTH002",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that reach the boundary untyped, mostly from
// the HTTP layer and the runtime.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg:     msgConnection,
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "The server is busy with other uploads or exports",
			Action:  "Please try again in a few moments",
			Code:    "UPL003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "UPL005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors are matched first, then known substrings. Returns the zero
// UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		connErr   *ConnectionError
		parseErr  *ParseError
		renderErr *RenderError
		delivErr  *DeliveryError
		authErr   *AuthorizationError
	)

	switch {
	case errors.As(err, &authErr):
		if authErr.Forbidden() {
			return msgForbidden, true
		}
		return msgUnauthorized, true
	case errors.As(err, &connErr):
		return msgConnection, true
	case errors.As(err, &parseErr):
		switch {
		case errors.Is(err, ErrInvalidNumber):
			return msgInvalidNumber, true
		case errors.Is(err, ErrColumnCount):
			return msgColumnCount, true
		case errors.Is(err, ErrUnknownColumn):
			return msgUnknownColumn, true
		case errors.Is(err, ErrEmptyFile):
			return msgEmptyFile, true
		}
		return msgInvalidCSV, true
	case errors.As(err, &renderErr):
		if errors.Is(err, ErrUnknownFormat) {
			return msgUnknownFormat, true
		}
		return msgRender, true
	case errors.As(err, &delivErr):
		return msgDelivery, true
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

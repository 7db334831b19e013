package core

// convert.go coerces CSV cells into typed record fields.
//
// Numbers in user-provided files arrive in many shapes:
//   - Currency symbols and thousand separators ("$1,234.50")
//   - Accounting format for negatives ("(12.00)")
//   - Excel formula prefixes (="42")
//
// ParseNumeric accepts all of these and rejects anything else, including
// NaN and infinities, so a NUMERIC column never receives a non-finite value.

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidNumber is wrapped by ParseError when the value column cannot be
// coerced to a number.
var ErrInvalidNumber = errors.New("invalid number")

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ParseNumeric converts a cell to float64.
func ParseNumeric(s string) (float64, error) {
	s = CleanCell(s)
	if s == "" {
		return 0, ErrInvalidNumber
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "R$", "") // Real
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return 0, ErrInvalidNumber
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of float64 range.
		return 0, ErrInvalidNumber
	}
	return v, nil
}

// CleanCell removes common CSV artifacts from a cell value:
// surrounding whitespace and the Excel formula prefix (="...").
// Text columns are stored as read; only the value column is cleaned.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(s)
}

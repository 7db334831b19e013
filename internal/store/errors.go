package store

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/JonMunkholm/dados/internal/core"
)

// SQLSTATE codes the store reacts to.
const (
	codeUndefinedTable = "42P01"

	classConnection    = "08"
	classInvalidAuthor = "28"
)

// classify wraps err for op, promoting connection-level failures to
// core.ConnectionError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var connErr *core.ConnectionError
	if errors.As(err, &connErr) {
		return err
	}
	if isConnectionFailure(err) {
		return &core.ConnectionError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	code := sqlState(err)
	return strings.HasPrefix(code, classConnection) || strings.HasPrefix(code, classInvalidAuthor)
}

func isUndefinedTable(err error) bool {
	return sqlState(err) == codeUndefinedTable
}

// sqlState extracts the SQLSTATE from either driver's error type.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

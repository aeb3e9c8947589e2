package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an error as safe to retry. The HTTP fetcher wraps
// retryable status codes in one; IsTransient recognizes it anywhere in the
// wrap chain.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as transient, with the HTTP status that
// caused it when there is one.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// storeContention matches write-contention errors from the gazetteer
// stores, which lose their concrete type crossing the database/sql and pgx
// boundaries. SQLite surfaces busy/locked under WAL; Postgres aborts one
// side of a deadlock or a serialization conflict.
var storeContention = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"deadlock detected",
	"could not serialize access",
	"conn busy",
}

// networkFailure matches transport errors that arrive as strings from
// net/http and the FTP client.
var networkFailure = []string{
	"connection reset by peer",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"tls handshake timeout",
}

// IsTransient reports whether err is worth another attempt: an explicit
// TransientError, a network timeout or connection failure, or store write
// contention.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range storeContention {
		if strings.Contains(msg, p) {
			return true
		}
	}
	for _, p := range networkFailure {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether a status code signals a server-side
// condition that a later attempt can clear.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

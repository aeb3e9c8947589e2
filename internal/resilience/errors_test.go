package resilience

import (
	"net"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

// timeoutErr satisfies net.Error with Timeout() == true.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "deadline exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: eris.New("column zip not found"), want: false},
		{
			name: "explicit transient",
			err:  NewTransientError(eris.New("throttled"), 429),
			want: true,
		},
		{
			name: "transient wrapped deeper",
			err:  eris.Wrap(NewTransientError(eris.New("throttled"), 503), "fetcher: download"),
			want: true,
		},
		{name: "net timeout", err: timeoutErr{}, want: true},
		{
			name: "connection refused",
			err:  &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			want: true,
		},
		{
			name: "connection reset",
			err:  &net.OpError{Op: "read", Err: syscall.ECONNRESET},
			want: true,
		},
		{name: "sqlite busy", err: eris.New("database is locked (5) (SQLITE_BUSY)"), want: true},
		{name: "sqlite table locked", err: eris.New("database table is locked"), want: true},
		{
			name: "postgres deadlock",
			err:  eris.New("ERROR: deadlock detected (SQLSTATE 40P01)"),
			want: true,
		},
		{
			name: "postgres serialization",
			err:  eris.New("ERROR: could not serialize access due to concurrent update"),
			want: true,
		},
		{name: "pgx conn busy", err: eris.New("conn busy"), want: true},
		{name: "dns failure", err: eris.New("dial tcp: lookup www2.census.gov: no such host"), want: true},
		{name: "io timeout string", err: eris.New("read tcp 10.0.0.2:443: i/o timeout"), want: true},
		{name: "constraint violation", err: eris.New("UNIQUE constraint failed: zipcodes.zip"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := eris.New("service unavailable")
	te := NewTransientError(inner, 503)

	assert.Equal(t, inner.Error(), te.Error())
	assert.True(t, eris.Is(te, inner))
	assert.Equal(t, 503, te.StatusCode)
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 410} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestIsTransient_NetTimeoutViaOpError(t *testing.T) {
	err := &net.OpError{Op: "read", Err: timeoutErr{}}
	assert.True(t, IsTransient(err))
}

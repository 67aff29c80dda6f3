package ckan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrResponseTooLarge is wrapped by the Error returned for bodies over the
// client's response size cap.
var ErrResponseTooLarge = errors.New("ckan: response too large")

// ErrorKind classifies a failed CKAN call.
type ErrorKind int

const (
	KindNetwork      ErrorKind = iota // any other transport failure
	KindHTTP                          // non-2xx response
	KindTimeout                       // request timed out
	KindNotFound                      // host did not resolve
	KindUnsuccessful                  // 2xx with success=false
)

func (k ErrorKind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindTimeout:
		return "timeout"
	case KindNotFound:
		return "not_found"
	case KindUnsuccessful:
		return "unsuccessful"
	default:
		return "network"
	}
}

// Error is returned by Client for every failed call. Callers only ever see
// its text; Kind exists for logging and tests.
type Error struct {
	Kind    ErrorKind
	Server  string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("CKAN API error (%d): %s", e.Status, e.Message)
	case KindTimeout:
		return fmt.Sprintf("Request timeout connecting to %s", e.Server)
	case KindNotFound:
		return fmt.Sprintf("Server not found: %s", e.Server)
	case KindUnsuccessful:
		return fmt.Sprintf("CKAN API returned success=false: %s", e.Message)
	default:
		return fmt.Sprintf("Network error: %s", e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// classifyTransportError maps an http.Client failure to the error taxonomy.
func classifyTransportError(server string, err error) *Error {
	switch {
	case isTimeoutError(err):
		return &Error{Kind: KindTimeout, Server: server, Err: err}
	case isDNSError(err):
		return &Error{Kind: KindNotFound, Server: server, Err: err}
	default:
		return &Error{Kind: KindNetwork, Server: server, Message: err.Error(), Err: err}
	}
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound || !dnsErr.IsTimeout
	}
	return false
}

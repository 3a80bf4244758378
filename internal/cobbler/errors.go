package cobbler

import (
	"fmt"
	"net"
	"net/rpc"
	"net/url"
	"strings"

	"github.com/kolo/xmlrpc"
	"github.com/pkg/errors"
)

// ConnectionError means the server could not be reached or did not answer
// with a usable XML-RPC response.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to '%s' failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError means the server rejected the credentials.
type AuthError struct {
	URL      string
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("failed to log in to Cobbler '%s' as '%s': %v", e.URL, e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsFault reports whether err is a fault returned by the server, as opposed to
// a transport failure.
func IsFault(err error) bool {
	var fault xmlrpc.FaultError
	if errors.As(err, &fault) {
		return true
	}
	var server rpc.ServerError
	return errors.As(err, &server)
}

func isTransport(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, rpc.ErrShutdown)
}

// classifyLogin turns a failed login call into an AuthError when the server
// answered with a fault, and a ConnectionError otherwise.
func classifyLogin(url, username string, err error) error {
	if !isTransport(err) && IsFault(err) && !strings.HasPrefix(err.Error(), "request error:") {
		return &AuthError{URL: url, Username: username, Err: err}
	}
	return &ConnectionError{URL: url, Err: err}
}

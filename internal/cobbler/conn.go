package cobbler

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
)

// APIPath is the path of the XML-RPC endpoint on a Cobbler server.
const APIPath = "/cobbler_api"

const (
	DefaultHTTPSPort = 443
	DefaultHTTPPort  = 80
)

// Conn describes how to reach one Cobbler server. Certificate validation is
// carried per connection and never changes process-wide TLS defaults.
type Conn struct {
	Host          string
	Port          int // 0 selects the default for the scheme
	UseSSL        bool
	ValidateCerts bool
}

// Scheme returns https or http depending on UseSSL.
func (c Conn) Scheme() string {
	if c.UseSSL {
		return "https"
	}
	return "http"
}

// EffectivePort returns Port, or the scheme default when Port is unset.
func (c Conn) EffectivePort() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.UseSSL {
		return DefaultHTTPSPort
	}
	return DefaultHTTPPort
}

// URL returns the endpoint URL, e.g. https://cobbler01:443/cobbler_api.
func (c Conn) URL() string {
	return fmt.Sprintf("%s://%s%s", c.Scheme(), net.JoinHostPort(c.Host, strconv.Itoa(c.EffectivePort())), APIPath)
}

// Transport returns an HTTP transport scoped to this connection.
func (c Conn) Transport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if c.UseSSL && !c.ValidateCerts {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return t
}

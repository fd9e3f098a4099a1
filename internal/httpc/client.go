// Package httpc holds the HTTP plumbing shared by the provider adapters:
// a client constructor with bounded dial and handshake times, and the error
// types every adapter reports provider failures with.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole request when the caller passes none.
const DefaultTimeout = 30 * time.Second

const (
	dialTimeout     = 10 * time.Second
	keepAlive       = 30 * time.Second
	idleConnTimeout = 90 * time.Second
	tlsTimeout      = 10 * time.Second
)

// NewClient returns a client whose transport bounds dialing and TLS setup.
// A zero timeout leaves cancellation entirely to the request context, which
// is how the coordinator's per-call deadlines reach the providers.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: keepAlive,
			}).DialContext,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       idleConnTimeout,
			TLSHandshakeTimeout:   tlsTimeout,
			ExpectContinueTimeout: time.Second,
		},
	}
}

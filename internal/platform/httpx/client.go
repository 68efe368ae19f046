// SPDX-License-Identifier: MIT

// Package httpx builds the outbound HTTP clients used by the service.
// Nothing else in the module constructs transports or TLS configuration.
package httpx

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client defaults. Dial and header timeouts never exceed the overall timeout.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxRedirects = 5

	dialCap        = 3 * time.Second
	headerCap      = 5 * time.Second
	keepAlive      = 30 * time.Second
	idleTimeout    = 30 * time.Second
	continueWait   = time.Second
	idleConns      = 16
	idleConnsPerHP = 4
)

// ErrInsecureRedirect is returned when a redirect would leave https.
var ErrInsecureRedirect = errors.New("redirect from https to http refused")

// Options tune NewClientWithOptions. The zero value is a verified client with
// DefaultTimeout.
type Options struct {
	Timeout time.Duration

	// InsecureSkipVerify accepts any upstream certificate.
	InsecureSkipVerify bool

	// Traced wraps the transport with OpenTelemetry client spans.
	Traced bool

	// MaxRedirects caps followed redirects; zero means DefaultMaxRedirects
	// and a negative value disables following.
	MaxRedirects int
}

// NewClient returns a verified client with the given overall timeout.
func NewClient(timeout time.Duration) *http.Client {
	return NewClientWithOptions(Options{Timeout: timeout})
}

// NewClientWithOptions returns a client for upstream fetches.
func NewClientWithOptions(opts Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var rt http.RoundTripper = newTransport(timeout, opts.InsecureSkipVerify)
	if opts.Traced {
		rt = otelhttp.NewTransport(rt)
	}

	return &http.Client{
		Timeout:       timeout,
		Transport:     rt,
		CheckRedirect: redirectPolicy(opts.MaxRedirects),
	}
}

func newTransport(timeout time.Duration, insecure bool) *http.Transport {
	dial := min(timeout, dialCap)
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dial, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          idleConns,
		MaxIdleConnsPerHost:   idleConnsPerHP,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   dial,
		ResponseHeaderTimeout: min(timeout, headerCap),
		ExpectContinueTimeout: continueWait,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: insecure, // #nosec G402 -- operator opt-in
		},
	}
}

func redirectPolicy(limit int) func(*http.Request, []*http.Request) error {
	if limit == 0 {
		limit = DefaultMaxRedirects
	}
	return func(req *http.Request, via []*http.Request) error {
		if limit < 0 || len(via) > limit {
			return fmt.Errorf("stopped after %d redirects", len(via))
		}
		if via[len(via)-1].URL.Scheme == "https" && req.URL.Scheme != "https" {
			return ErrInsecureRedirect
		}
		return nil
	}
}

// SPDX-License-Identifier: MIT

// Package upstream fetches JSON schedule feeds from remote origins.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	xglog "github.com/ManuGH/json2xmltv/internal/log"
	"github.com/ManuGH/json2xmltv/internal/metrics"
	"github.com/ManuGH/json2xmltv/internal/platform/httpx"
	"github.com/ManuGH/json2xmltv/internal/ratelimit"
	"github.com/ManuGH/json2xmltv/internal/resilience"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultMaxBodyBytes = 16 << 20
	DefaultUserAgent    = "json2xmltv"

	maxErrorBody = 256
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Config controls outbound fetching.
type Config struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	MaxBodyBytes       int64
	UserAgent          string

	// Rate and Burst bound fetches per upstream host.
	Rate  float64
	Burst int

	BreakerThreshold int
	BreakerReset     time.Duration

	Traced bool
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the hardened default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// Fetcher retrieves feed documents with per-host throttling and circuit breaking.
type Fetcher struct {
	cfg      Config
	client   *http.Client
	limiter  *ratelimit.Limiter
	breakers *resilience.Registry
}

// New builds a Fetcher. Zero config values take defaults.
func New(cfg Config, opts ...Option) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	lc := ratelimit.DefaultConfig()
	if cfg.Rate > 0 {
		lc.PerHostRate = rate.Limit(cfg.Rate)
	}
	if cfg.Burst > 0 {
		lc.PerHostBurst = cfg.Burst
	}
	lc.MaxWait = cfg.Timeout

	f := &Fetcher{
		cfg: cfg,
		client: httpx.NewClientWithOptions(httpx.Options{
			Timeout:            cfg.Timeout,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
			Traced:             cfg.Traced,
		}),
		limiter: ratelimit.New(lc),
		breakers: resilience.NewRegistry("upstream", cfg.BreakerThreshold, cfg.BreakerReset,
			resilience.WithFailurePredicate(tripsBreaker)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BreakerStates reports the circuit state per upstream host seen so far.
func (f *Fetcher) BreakerStates() map[string]resilience.State {
	return f.breakers.States()
}

// FetchJSON GETs rawURL and returns the body as UTF-8 JSON. The body is
// checked for syntax only.
func (f *Fetcher) FetchJSON(ctx context.Context, rawURL string) (json.RawMessage, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return nil, &FetchError{Sentinel: ErrInvalidURL, Host: rawURL, Err: err}
	}
	host := strings.ToLower(u.Hostname())
	logger := xglog.WithComponentFromContext(ctx, "upstream")

	start := time.Now()
	body, err := f.fetch(ctx, host, u)
	metrics.ObserveUpstreamFetch(outcomeLabel(err), time.Since(start).Seconds(), len(body))

	if err != nil {
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "upstream.fetch_failed").
			Str(xglog.FieldSourceHost, host).
			Int64(xglog.FieldDurationMS, time.Since(start).Milliseconds()).
			Msg("upstream fetch failed")
		return nil, err
	}

	logger.Debug().
		Str(xglog.FieldEvent, "upstream.fetch_ok").
		Str(xglog.FieldSourceHost, host).
		Int(xglog.FieldBytes, len(body)).
		Int64(xglog.FieldDurationMS, time.Since(start).Milliseconds()).
		Msg("upstream fetch completed")
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context, host string, u *url.URL) (json.RawMessage, error) {
	if err := f.limiter.Wait(ctx, host); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			return nil, &FetchError{Sentinel: ErrRateLimited, Host: host}
		}
		return nil, classify(host, err)
	}

	var body json.RawMessage
	err := f.breakers.Get(host).Execute(func() error {
		var doErr error
		body, doErr = f.do(ctx, host, u)
		return doErr
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, &FetchError{Sentinel: ErrCircuitOpen, Host: host}
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (f *Fetcher) do(ctx context.Context, host string, u *url.URL) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &FetchError{Sentinel: ErrInvalidURL, Host: host, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &FetchError{
			Sentinel: ErrUpstreamStatus,
			Host:     host,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(snippet)),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, classify(host, err)
	}
	if int64(len(raw)) > f.cfg.MaxBodyBytes {
		return nil, &FetchError{Sentinel: ErrBodyTooLarge, Host: host, Err: fmt.Errorf("limit %d bytes", f.cfg.MaxBodyBytes)}
	}

	decoded, err := decodeCharset(resp.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, &FetchError{Sentinel: ErrBadResponse, Host: host, Err: err}
	}
	if !json.Valid(decoded) {
		return nil, &FetchError{Sentinel: ErrBadResponse, Host: host, Err: errors.New("body is not valid JSON")}
	}
	return json.RawMessage(decoded), nil
}

// decodeCharset converts body to UTF-8 using the charset parameter of
// contentType. A missing parameter means UTF-8.
func decodeCharset(contentType string, body []byte) ([]byte, error) {
	charset := ""
	if contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			charset = strings.ToLower(strings.TrimSpace(params["charset"]))
		}
	}

	switch charset {
	case "", "utf-8", "utf8", "us-ascii":
	default:
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, fmt.Errorf("unsupported charset %q: %w", charset, err)
		}
		body, err = enc.NewDecoder().Bytes(body)
		if err != nil {
			return nil, fmt.Errorf("decode charset %q: %w", charset, err)
		}
	}
	return bytes.TrimPrefix(body, utf8BOM), nil
}

// classify maps a transport error onto a sentinel.
func classify(host string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Sentinel: ErrTimeout, Host: host, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Sentinel: ErrTimeout, Host: host, Err: err}
	}
	return &FetchError{Sentinel: ErrUpstreamUnavailable, Host: host, Err: err}
}

// SPDX-License-Identifier: MIT

package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func newFetcher(t *testing.T, cfg Config, opts ...Option) *Fetcher {
	t.Helper()
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Rate == 0 {
		cfg.Rate = 1000
		cfg.Burst = 1000
	}
	return New(cfg, opts...)
}

func TestFetchJSON_Success(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"A","media":[]}]`))
	}))
	defer srv.Close()

	f := newFetcher(t, Config{UserAgent: "test-agent/1.0"})
	body, err := f.FetchJSON(context.Background(), srv.URL+"/schedule")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"A","media":[]}]`, string(body))
	assert.Equal(t, "test-agent/1.0", gotUA)
	assert.Equal(t, "application/json", gotAccept)
}

func TestFetchJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newFetcher(t, Config{})
	_, err := f.FetchJSON(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrUpstreamStatus)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.Equal(t, "nope", fe.Body)
}

func TestFetchJSON_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	_, err := newFetcher(t, Config{}).FetchJSON(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestFetchJSON_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`["` + strings.Repeat("x", 64) + `"]`))
	}))
	defer srv.Close()

	_, err := newFetcher(t, Config{MaxBodyBytes: 16}).FetchJSON(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestFetchJSON_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := newFetcher(t, Config{Timeout: 50 * time.Millisecond})
	_, err := f.FetchJSON(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestFetchJSON_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := newFetcher(t, Config{}).FetchJSON(context.Background(), addr)
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestFetchJSON_InvalidURL(t *testing.T) {
	_, err := newFetcher(t, Config{}).FetchJSON(context.Background(), "::not a url")
	require.ErrorIs(t, err, ErrInvalidURL)
}

func TestFetchJSON_DecodesCharset(t *testing.T) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String(`[{"name":"Café"}]`)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=ISO-8859-1")
		_, _ = w.Write([]byte(encoded))
	}))
	defer srv.Close()

	body, err := newFetcher(t, Config{}).FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name":"Café"}]`, string(body))
}

func TestFetchJSON_UnknownCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=x-made-up")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newFetcher(t, Config{}).FetchJSON(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestFetchJSON_StripsBOM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(append([]byte{0xEF, 0xBB, 0xBF}, []byte(`[]`)...))
	}))
	defer srv.Close()

	body, err := newFetcher(t, Config{}).FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestFetchJSON_TLSVerification(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := newFetcher(t, Config{}).FetchJSON(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrUpstreamUnavailable)

	body, err := newFetcher(t, Config{InsecureSkipVerify: true}).FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

func TestFetchJSON_CircuitOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := newFetcher(t, Config{BreakerThreshold: 2, BreakerReset: time.Minute})
	for i := 0; i < 2; i++ {
		_, err := f.FetchJSON(context.Background(), srv.URL)
		require.ErrorIs(t, err, ErrUpstreamStatus)
	}

	_, err := f.FetchJSON(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchJSON_ClientErrorsDoNotTripCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newFetcher(t, Config{BreakerThreshold: 1, BreakerReset: time.Minute})
	for i := 0; i < 3; i++ {
		_, err := f.FetchJSON(context.Background(), srv.URL)
		require.ErrorIs(t, err, ErrUpstreamStatus)
	}
}

func TestFetchJSON_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 10 * time.Millisecond, Rate: 0.001, Burst: 1})
	_, err := f.FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)

	_, err = f.FetchJSON(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrRateLimited)
}

func TestFetchJSON_CustomClient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := newFetcher(t, Config{}, WithHTTPClient(srv.Client()))
	body, err := f.FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestFetchError_Message(t *testing.T) {
	err := &FetchError{Sentinel: ErrUpstreamStatus, Host: "api.example.com", Status: 503, Body: "down"}
	assert.Equal(t, "fetch api.example.com: upstream: unexpected http status (HTTP 503): down", err.Error())
	assert.True(t, errors.Is(err, ErrUpstreamStatus))
}

func TestClassify(t *testing.T) {
	err := classify("h", &url.Error{Op: "Get", URL: "http://h", Err: context.DeadlineExceeded})
	assert.ErrorIs(t, err, ErrTimeout)

	err = classify("h", errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

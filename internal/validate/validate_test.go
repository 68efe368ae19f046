// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_ZeroValue(t *testing.T) {
	var v Validator
	assert.True(t, v.Valid())
	assert.NoError(t, v.Err())
}

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"http://example.com", true},
		{"https://example.com:8443/path", true},
		{"", false},
		{"http://", false},
		{"example.com", false},
		{"/relative", false},
		{"ftp://example.com", false},
		{"http://[::1", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.value, func(t *testing.T) {
			v := New()
			v.URL("u", tt.value, "http", "https")
			assert.Equal(t, tt.ok, v.Valid(), "%v", v.Err())
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		addr string
		ok   bool
	}{
		{":8080", true},
		{"127.0.0.1:0", true},
		{"[::1]:9090", true},
		{"8080", false},
		{":http", false},
		{":70000", false},
		{":-1", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.addr, func(t *testing.T) {
			v := New()
			v.ListenAddr("listen", tt.addr)
			assert.Equal(t, tt.ok, v.Valid(), "%v", v.Err())
		})
	}
}

func TestValidator_Scalars(t *testing.T) {
	v := New()
	v.NotBlank("ok.name", "x")
	v.OneOf("ok.format", "json", "json", "console")
	v.Positive("ok.bytes", 1)
	v.PositiveDuration("ok.timeout", time.Second)
	v.IntBetween("ok.burst", 10, 1, 10)
	v.FloatBetween("ok.rate", 0, 0, 1)
	require.True(t, v.Valid(), "%v", v.Err())

	v.NotBlank("name", "  ")
	v.OneOf("format", "xml", "json", "console")
	v.Positive("bytes", 0)
	v.PositiveDuration("timeout", -time.Second)
	v.IntBetween("burst", 11, 1, 10)
	v.FloatBetween("rate", 1.5, 0, 1)

	var es Errors
	require.True(t, errors.As(v.Err(), &es))
	require.Len(t, es, 6)
	for _, f := range []string{"name", "format", "bytes", "timeout", "burst", "rate"} {
		assert.True(t, es.Has(f), f)
	}
	assert.False(t, es.Has("ok.name"))
	assert.Equal(t, `format: must be one of json, console, got "xml"`, es[1].Error())
}

func TestErrors_Message(t *testing.T) {
	v := New()
	v.Addf("a", 1, "first")
	v.Addf("b", 2, "second %d", 2)

	err := fmt.Errorf("load: %w", v.Err())
	assert.EqualError(t, err, "load: invalid configuration: a: first; b: second 2")
}

func TestValidator_ErrIsSnapshot(t *testing.T) {
	v := New()
	v.Addf("a", nil, "x")
	err := v.Err()
	v.Addf("b", nil, "y")

	var es Errors
	require.True(t, errors.As(err, &es))
	assert.Len(t, es, 1)
}

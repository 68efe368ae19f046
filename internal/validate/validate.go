// SPDX-License-Identifier: MIT

// Package validate collects field-level configuration problems so that all
// of them are reported in one pass instead of one per restart.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// FieldError is one rejected configuration value.
type FieldError struct {
	Field   string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// Errors is the error returned by Validator.Err. Match it with errors.As.
type Errors []FieldError

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Has reports whether field was rejected.
func (es Errors) Has(field string) bool {
	return slices.ContainsFunc(es, func(e FieldError) bool { return e.Field == field })
}

// Validator accumulates FieldErrors. The zero value is ready to use.
type Validator struct {
	errs Errors
}

// New returns an empty Validator.
func New() *Validator {
	return &Validator{}
}

// Addf records a problem with field.
func (v *Validator) Addf(field string, value any, format string, args ...any) {
	v.errs = append(v.errs, FieldError{Field: field, Value: value, Message: fmt.Sprintf(format, args...)})
}

// Valid reports whether nothing has been recorded.
func (v *Validator) Valid() bool {
	return len(v.errs) == 0
}

// Err returns the recorded problems as Errors, or nil.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	return slices.Clone(v.errs)
}

// NotBlank rejects empty and whitespace-only strings.
func (v *Validator) NotBlank(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.Addf(field, value, "must not be empty")
	}
}

// OneOf rejects values outside allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) {
	if !slices.Contains(allowed, value) {
		v.Addf(field, value, "must be one of %s, got %q", strings.Join(allowed, ", "), value)
	}
}

// Positive rejects n <= 0.
func (v *Validator) Positive(field string, n int64) {
	if n <= 0 {
		v.Addf(field, n, "must be positive, got %d", n)
	}
}

// PositiveDuration rejects d <= 0.
func (v *Validator) PositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.Addf(field, d, "must be a positive duration, got %s", d)
	}
}

// IntBetween rejects n outside [lo, hi].
func (v *Validator) IntBetween(field string, n, lo, hi int) {
	if n < lo || n > hi {
		v.Addf(field, n, "must be between %d and %d, got %d", lo, hi, n)
	}
}

// FloatBetween rejects f outside [lo, hi].
func (v *Validator) FloatBetween(field string, f, lo, hi float64) {
	if f < lo || f > hi {
		v.Addf(field, f, "must be between %g and %g, got %g", lo, hi, f)
	}
}

// URL requires an absolute URL with a host and one of schemes.
func (v *Validator) URL(field, value string, schemes ...string) {
	u, err := url.Parse(value)
	switch {
	case value == "":
		v.Addf(field, value, "must not be empty")
	case err != nil:
		v.Addf(field, value, "invalid URL: %v", err)
	case u.Host == "":
		v.Addf(field, value, "URL must be absolute")
	case len(schemes) > 0 && !slices.Contains(schemes, u.Scheme):
		v.Addf(field, value, "scheme must be one of %s, got %q", strings.Join(schemes, ", "), u.Scheme)
	}
}

// ListenAddr requires host:port with a port in 0..65535. The host may be empty.
func (v *Validator) ListenAddr(field, addr string) {
	_, p, err := net.SplitHostPort(addr)
	if err != nil {
		v.Addf(field, addr, "invalid listen address: %v", err)
		return
	}
	port, err := strconv.Atoi(p)
	if err != nil || port < 0 || port > 65535 {
		v.Addf(field, addr, "invalid port %q", p)
	}
}

// SPDX-License-Identifier: MIT

// Package allowlist gates which upstream origins may be fetched.
package allowlist

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"

	"golang.org/x/net/idna"
)

// ErrDomainNotAllowed is returned by Check for URLs outside the allowlist.
var ErrDomainNotAllowed = errors.New("allowlist: domain not allowed")

// ErrInvalidEntry is returned by New for entries that are not plain hostnames.
var ErrInvalidEntry = errors.New("allowlist: invalid entry")

// List is an immutable set of allowed hostnames. A hostname is allowed when it
// equals an entry or is a subdomain of one.
type List struct {
	domains []string
}

// New normalizes domains and returns the list. Entries may be given as
// Unicode or punycode; case and a trailing dot are ignored.
func New(domains []string) (*List, error) {
	l := &List{domains: make([]string, 0, len(domains))}
	seen := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if strings.ContainsAny(d, "/:@ ") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidEntry, d)
		}
		host, err := normalizeHost(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidEntry, d, err)
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		l.domains = append(l.domains, host)
	}
	return l, nil
}

// Domains returns the normalized entries.
func (l *List) Domains() []string {
	out := make([]string, len(l.domains))
	copy(out, l.domains)
	return out
}

// Len reports the number of entries.
func (l *List) Len() int { return len(l.domains) }

// Allowed reports whether rawURL is an http(s) URL whose host is covered by the list.
func (l *List) Allowed(rawURL string) bool {
	return l.Check(rawURL) == nil
}

// Check is Allowed with a reason.
func (l *List) Check(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDomainNotAllowed, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", ErrDomainNotAllowed, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrDomainNotAllowed)
	}
	host, err := normalizeHost(u.Hostname())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDomainNotAllowed, err)
	}
	for _, allowed := range l.domains {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrDomainNotAllowed, host)
}

func normalizeHost(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", err
	}
	return ascii, nil
}

// Holder publishes the current List to concurrent readers and lets the
// config reloader swap it.
type Holder struct {
	current atomic.Pointer[List]
}

// NewHolder returns a holder serving initial.
func NewHolder(initial *List) *Holder {
	h := &Holder{}
	if initial == nil {
		initial = &List{}
	}
	h.current.Store(initial)
	return h
}

// Load returns the list currently in effect.
func (h *Holder) Load() *List { return h.current.Load() }

// Store replaces the list in effect.
func (h *Holder) Store(l *List) {
	if l == nil {
		l = &List{}
	}
	h.current.Store(l)
}

// Check delegates to the current list.
func (h *Holder) Check(rawURL string) error { return h.Load().Check(rawURL) }

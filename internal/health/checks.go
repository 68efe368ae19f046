// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/ManuGH/json2xmltv/internal/allowlist"
	"github.com/ManuGH/json2xmltv/internal/resilience"
)

// CheckFunc adapts a function to the Checker interface.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewCheckFunc returns a Checker named name that runs fn.
func NewCheckFunc(name string, fn func(ctx context.Context) CheckResult) CheckFunc {
	return CheckFunc{name: name, fn: fn}
}

func (c CheckFunc) Name() string                          { return c.name }
func (c CheckFunc) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// NewFileChecker reports whether the file at path is present and non-empty.
// An empty path is healthy: the service can run on ENV configuration alone.
func NewFileChecker(name, path string) CheckFunc {
	return NewCheckFunc(name, func(context.Context) CheckResult {
		if path == "" {
			return CheckResult{Status: StatusHealthy, Message: "not configured"}
		}
		info, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return CheckResult{Status: StatusUnhealthy, Message: path, Error: "file not found"}
		case err != nil:
			return CheckResult{Status: StatusUnhealthy, Message: path, Error: err.Error()}
		case info.IsDir():
			return CheckResult{Status: StatusUnhealthy, Message: path, Error: "is a directory"}
		case info.Size() == 0:
			return CheckResult{Status: StatusDegraded, Message: path + " is empty"}
		}
		return CheckResult{Status: StatusHealthy, Message: path}
	})
}

// NewAllowlistChecker fails readiness while no source domain is permitted,
// since every /translate request would then be rejected.
func NewAllowlistChecker(holder *allowlist.Holder) CheckFunc {
	return NewCheckFunc("allowlist", func(context.Context) CheckResult {
		list := holder.Load()
		if list == nil || list.Len() == 0 {
			return CheckResult{Status: StatusUnhealthy, Error: "no allowed domains configured"}
		}
		return CheckResult{Status: StatusHealthy, Message: strings.Join(list.Domains(), ",")}
	})
}

// NewBreakerChecker reports degraded while any upstream circuit is not closed.
// Other hosts may still be served, so it never fails readiness.
func NewBreakerChecker(states func() map[string]resilience.State) CheckFunc {
	return NewCheckFunc("upstream_circuits", func(context.Context) CheckResult {
		var tripped []string
		for host, state := range states() {
			if state != resilience.StateClosed {
				tripped = append(tripped, host+"="+string(state))
			}
		}
		if len(tripped) == 0 {
			return CheckResult{Status: StatusHealthy, Message: "all circuits closed"}
		}
		sort.Strings(tripped)
		return CheckResult{Status: StatusDegraded, Message: strings.Join(tripped, ",")}
	})
}

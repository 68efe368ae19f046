// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strings"

	"github.com/ManuGH/json2xmltv/internal/api/problem"
	"github.com/ManuGH/json2xmltv/internal/log"
	"github.com/google/uuid"
)

const maxRequestIDLen = 128

// RequestID adds a unique ID to every request. A caller-supplied
// X-Request-ID is kept when it is short and printable.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(problem.HeaderRequestID))
		if !validRequestID(reqID) {
			reqID = uuid.NewString()
		}
		w.Header().Set(problem.HeaderRequestID, reqID)
		ctx := log.ContextWithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return false
		}
	}
	return true
}

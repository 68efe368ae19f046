// SPDX-License-Identifier: MIT

package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/ManuGH/json2xmltv/internal/api/problem"
	"github.com/ManuGH/json2xmltv/internal/log"
)

// Recoverer turns a handler panic into a logged 500 problem response. The
// panic value is logged but never sent to the client. http.ErrAbortHandler
// is re-raised so net/http can abort the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logger := log.WithComponentFromContext(r.Context(), "api")
			logger.Error().
				Str(log.FieldEvent, "panic.recovered").
				Str(log.FieldHTTPMethod, r.Method).
				Str(log.FieldHTTPPath, strings.ToValidUTF8(r.URL.Path, "")).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic in HTTP handler")

			problem.Write(w, r, http.StatusInternalServerError, "system/internal", "Internal Server Error",
				"INTERNAL_ERROR", "An unexpected error occurred.", nil)
		}()

		next.ServeHTTP(w, r)
	})
}

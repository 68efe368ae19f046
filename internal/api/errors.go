// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/json2xmltv/internal/allowlist"
	"github.com/ManuGH/json2xmltv/internal/api/problem"
	"github.com/ManuGH/json2xmltv/internal/feed"
	"github.com/ManuGH/json2xmltv/internal/translate"
	"github.com/ManuGH/json2xmltv/internal/upstream"
)

// apiError describes how a pipeline error is rendered.
type apiError struct {
	status      int
	problemType string
	title       string
	code        string
}

// classifyError maps pipeline errors to HTTP semantics. upload selects the
// status for feed shape errors: the caller's own body is unprocessable (422),
// while a broken upstream document is a server-side failure (500).
func classifyError(err error, upload bool) apiError {
	switch {
	case errors.Is(err, translate.ErrMissingURL):
		return apiError{http.StatusBadRequest, "translate/missing_url", "Bad Request", "MISSING_URL"}
	case errors.Is(err, allowlist.ErrDomainNotAllowed):
		return apiError{http.StatusForbidden, "translate/domain_not_allowed", "Forbidden", "DOMAIN_NOT_ALLOWED"}
	case errors.Is(err, upstream.ErrInvalidURL):
		return apiError{http.StatusBadRequest, "translate/invalid_url", "Bad Request", "INVALID_URL"}
	case errors.Is(err, upstream.ErrTimeout):
		return apiError{http.StatusGatewayTimeout, "upstream/timeout", "Gateway Timeout", "UPSTREAM_TIMEOUT"}
	case errors.Is(err, upstream.ErrCircuitOpen):
		return apiError{http.StatusServiceUnavailable, "upstream/circuit_open", "Service Unavailable", "UPSTREAM_CIRCUIT_OPEN"}
	case errors.Is(err, upstream.ErrRateLimited):
		return apiError{http.StatusServiceUnavailable, "upstream/rate_limited", "Service Unavailable", "UPSTREAM_RATE_LIMITED"}
	case errors.Is(err, upstream.ErrUpstreamStatus):
		return apiError{http.StatusBadGateway, "upstream/status", "Bad Gateway", "UPSTREAM_STATUS"}
	case errors.Is(err, upstream.ErrBodyTooLarge):
		return apiError{http.StatusBadGateway, "upstream/body_too_large", "Bad Gateway", "UPSTREAM_BODY_TOO_LARGE"}
	case errors.Is(err, upstream.ErrBadResponse):
		return apiError{http.StatusBadGateway, "upstream/bad_response", "Bad Gateway", "UPSTREAM_BAD_RESPONSE"}
	case errors.Is(err, upstream.ErrUpstreamUnavailable):
		return apiError{http.StatusBadGateway, "upstream/unavailable", "Bad Gateway", "UPSTREAM_UNAVAILABLE"}
	}

	var ce *feed.ConversionError
	if errors.As(err, &ce) {
		if upload {
			return apiError{http.StatusUnprocessableEntity, "convert/invalid_feed", "Unprocessable Entity", "INVALID_FEED"}
		}
		return apiError{http.StatusInternalServerError, "translate/conversion_failed", "Internal Server Error", "CONVERSION_FAILED"}
	}
	return apiError{http.StatusInternalServerError, "system/internal", "Internal Server Error", "INTERNAL_ERROR"}
}

func writeTranslateError(w http.ResponseWriter, r *http.Request, err error, upload bool) {
	ae := classifyError(err, upload)
	detail := err.Error()
	if ae.status == http.StatusInternalServerError && ae.code == "INTERNAL_ERROR" {
		detail = "An unexpected error occurred."
	}

	var extra map[string]any
	var fe *upstream.FetchError
	if errors.As(err, &fe) {
		extra = map[string]any{"upstreamHost": fe.Host}
		if fe.Status != 0 {
			extra["upstreamStatus"] = fe.Status
		}
	}
	problem.Write(w, r, ae.status, ae.problemType, ae.title, ae.code, detail, extra)
}

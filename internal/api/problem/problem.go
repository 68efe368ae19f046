// SPDX-License-Identifier: MIT

// Package problem writes RFC 7807 problem details responses.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/ManuGH/json2xmltv/internal/log"
)

const (
	// HeaderRequestID carries the request correlation id.
	HeaderRequestID = "X-Request-ID"

	// JSONKeyRequestID is the problem extension carrying the request id.
	JSONKeyRequestID = "requestId"

	ContentType = "application/problem+json"
)

// reserved members cannot be overridden through Extensions.
var reserved = map[string]bool{
	"type": true, "title": true, "status": true, "code": true,
	"detail": true, "instance": true, JSONKeyRequestID: true,
}

// Problem is one problem details document.
//
//   - Type is the machine identifier, e.g. "translate/domain_not_allowed".
//   - Title is the short human label, e.g. "Forbidden".
//   - Code is the stable short code clients switch on, e.g. "DOMAIN_NOT_ALLOWED".
//   - Detail explains this occurrence.
type Problem struct {
	Type       string
	Title      string
	Status     int
	Code       string
	Detail     string
	Instance   string
	RequestID  string
	Extensions map[string]any
}

// MarshalJSON flattens Extensions next to the standard members.
func (p Problem) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(p.Extensions)+7)
	for k, v := range p.Extensions {
		if !reserved[k] {
			doc[k] = v
		}
	}
	doc["type"] = p.Type
	doc["title"] = p.Title
	doc["status"] = p.Status
	doc["code"] = p.Code
	if p.Detail != "" {
		doc["detail"] = p.Detail
	}
	if p.Instance != "" {
		doc["instance"] = p.Instance
	}
	if p.RequestID != "" {
		doc[JSONKeyRequestID] = p.RequestID
	}
	return json.Marshal(doc)
}

// Write sends a problem response for r. The request id comes from the
// context, or from the response header when the context has none.
func Write(w http.ResponseWriter, r *http.Request, status int, problemType, title, code, detail string, extra map[string]any) {
	p := Problem{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Code:       code,
		Detail:     detail,
		Extensions: extra,
		RequestID:  w.Header().Get(HeaderRequestID),
	}
	logger := log.WithComponent("api")
	if r != nil {
		p.Instance = r.URL.EscapedPath()
		if id := log.RequestIDFromContext(r.Context()); id != "" {
			p.RequestID = id
		}
		logger = log.WithComponentFromContext(r.Context(), "api")
	}
	for k := range extra {
		if reserved[k] {
			logger.Warn().Str("key", k).Str("problem_type", problemType).Msg("ignoring reserved key in problem extras")
		}
	}

	h := w.Header()
	if p.RequestID != "" {
		h.Set(HeaderRequestID, p.RequestID)
	}
	h.Set("Content-Type", ContentType)
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(p); err != nil {
		logger.Error().Err(err).Str("type", problemType).Int("status", status).Msg("failed to write problem response")
	}
}

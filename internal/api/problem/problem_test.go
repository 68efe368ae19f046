// SPDX-License-Identifier: MIT

package problem

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ManuGH/json2xmltv/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/translate?url=x", nil)
	req = req.WithContext(log.ContextWithRequestID(req.Context(), "req-123"))
	w := httptest.NewRecorder()

	Write(w, req, http.StatusForbidden, "translate/domain_not_allowed", "Forbidden",
		"DOMAIN_NOT_ALLOWED", "host evil.com is not allowed",
		map[string]any{"host": "evil.com", "status": 999})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "translate/domain_not_allowed", body["type"])
	assert.Equal(t, "Forbidden", body["title"])
	assert.Equal(t, "DOMAIN_NOT_ALLOWED", body["code"])
	assert.Equal(t, "host evil.com is not allowed", body["detail"])
	assert.Equal(t, "/translate", body["instance"])
	assert.Equal(t, "req-123", body[JSONKeyRequestID])
	assert.Equal(t, "evil.com", body["host"])
	assert.EqualValues(t, http.StatusForbidden, body["status"], "reserved keys cannot be overridden")
}

func TestWrite_RequestIDFromResponseHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/convert", nil)
	w := httptest.NewRecorder()
	w.Header().Set(HeaderRequestID, "from-header")

	Write(w, req, http.StatusBadRequest, "convert/bad_request", "Bad Request", "BAD_REQUEST", "", nil)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "from-header", body[JSONKeyRequestID])
	_, hasDetail := body["detail"]
	assert.False(t, hasDetail)
}

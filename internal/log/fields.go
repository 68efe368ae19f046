// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Correlation
	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldSpanID    = "span_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Feed fields
	FieldSourceURL   = "source_url"
	FieldSourceHost  = "source_host"
	FieldChannel     = "channel"
	FieldChannelID   = "channel_id"
	FieldMediaIndex  = "media_index"
	FieldSkipReason  = "skip_reason"
	FieldChannels    = "channels"
	FieldProgrammes  = "programmes"
	FieldSkipped     = "skipped"
	FieldBytes       = "bytes"
	FieldDurationMS  = "duration_ms"
	FieldHTTPStatus  = "status"
	FieldHTTPMethod  = "method"
	FieldHTTPPath    = "path"
	FieldRemoteAddr  = "remote_addr"
	FieldConfigPath  = "config_path"
	FieldListenAddr  = "listen_addr"
	FieldAllowedHost = "allowed_domains"
)

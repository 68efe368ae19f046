// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys set by the conversion pipeline.
const (
	FeedSourceKey = attribute.Key("feed.source")
	FeedHostKey   = attribute.Key("feed.host")
	FeedBytesKey  = attribute.Key("feed.bytes")

	XMLTVChannelsKey   = attribute.Key("xmltv.channels")
	XMLTVProgrammesKey = attribute.Key("xmltv.programmes")
	XMLTVSkippedKey    = attribute.Key("xmltv.skipped")
	XMLTVNegativeKey   = attribute.Key("xmltv.negative_durations")
	XMLTVBytesKey      = attribute.Key("xmltv.bytes")

	ErrorKey     = attribute.Key("error")
	ErrorTypeKey = attribute.Key("error.type")
)

// FeedAttributes describes the input of a conversion. host is omitted for
// uploads.
func FeedAttributes(source, host string, bytes int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{FeedSourceKey.String(source), FeedBytesKey.Int(bytes)}
	if host != "" {
		attrs = append(attrs, FeedHostKey.String(host))
	}
	return attrs
}

// XMLTVAttributes describes a generated document.
func XMLTVAttributes(channels, programmes, skipped, negative, bytes int) []attribute.KeyValue {
	return []attribute.KeyValue{
		XMLTVChannelsKey.Int(channels),
		XMLTVProgrammesKey.Int(programmes),
		XMLTVSkippedKey.Int(skipped),
		XMLTVNegativeKey.Int(negative),
		XMLTVBytesKey.Int(bytes),
	}
}

// ErrorAttributes marks a span as failed in the given pipeline stage.
func ErrorAttributes(stage string) []attribute.KeyValue {
	return []attribute.KeyValue{ErrorKey.Bool(true), ErrorTypeKey.String(stage)}
}

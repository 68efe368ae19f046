// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func resetGlobal() { otel.SetTracerProvider(noop.NewTracerProvider()) }

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "bogus"})
	require.NoError(t, err, "exporter is not inspected when disabled")
	assert.Nil(t, p.tp)

	_, span := Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.IsRecording())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, p.ForceFlush(ctx))
	assert.NoError(t, p.Shutdown(ctx))
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "zipkin"})
	require.ErrorIs(t, err, ErrUnsupportedExporter)
	assert.Contains(t, err.Error(), `"zipkin"`)
}

func TestNewProvider_LazyExporters(t *testing.T) {
	// Neither OTLP exporter dials before the first export.
	for _, cfg := range []Config{
		{Enabled: true, ExporterType: "http", Endpoint: "127.0.0.1:1"},
		{Enabled: true, ExporterType: "http", Endpoint: "http://127.0.0.1:1/v1/traces"},
		{Enabled: true, ExporterType: "grpc", Endpoint: "127.0.0.1:1"},
	} {
		cfg := cfg
		t.Run(cfg.ExporterType+" "+cfg.Endpoint, func(t *testing.T) {
			t.Cleanup(resetGlobal)
			p, err := NewProvider(context.Background(), cfg)
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = p.Shutdown(ctx)
		})
	}
}

func TestNewProviderWithExporter_RecordsSpans(t *testing.T) {
	t.Cleanup(resetGlobal)
	exp := tracetest.NewInMemoryExporter()
	p, err := NewProviderWithExporter(context.Background(), Config{
		ServiceName:    "json2xmltv",
		ServiceVersion: "test",
		SamplingRate:   1,
	}, exp)
	require.NoError(t, err)

	_, span := Tracer("test").Start(context.Background(), "translate.url")
	span.SetAttributes(XMLTVAttributes(1, 2, 0, 0, 100)...)
	span.End()

	require.NoError(t, p.ForceFlush(context.Background()))
	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "translate.url", spans[0].Name)

	svc, ok := spans[0].Resource.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "json2xmltv", svc.AsString())

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", samplerFor(1).Description())
	assert.Equal(t, "AlwaysOnSampler", samplerFor(3).Description())
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Equal(t, "AlwaysOffSampler", samplerFor(-1).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "ParentBased")
}

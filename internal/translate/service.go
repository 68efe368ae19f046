// SPDX-License-Identifier: MIT

// Package translate runs the feed-to-XMLTV pipeline: allowlist check,
// upstream fetch, decode, convert and encode.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ManuGH/json2xmltv/internal/allowlist"
	"github.com/ManuGH/json2xmltv/internal/epg"
	"github.com/ManuGH/json2xmltv/internal/feed"
	xglog "github.com/ManuGH/json2xmltv/internal/log"
	"github.com/ManuGH/json2xmltv/internal/metrics"
	"github.com/ManuGH/json2xmltv/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "json2xmltv/translate"

// ErrMissingURL is returned when Translate is called without a source URL.
var ErrMissingURL = errors.New("translate: missing url")

// Source labels where a feed document came from.
type Source string

const (
	SourceURL    Source = "url"
	SourceUpload Source = "upload"
	SourceFile   Source = "file"
)

// Fetcher retrieves a feed document. *upstream.Fetcher satisfies it.
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string) (json.RawMessage, error)
}

// Result is one rendered XMLTV document.
type Result struct {
	TV       *epg.TV
	Document []byte
	Report   epg.Report
	Host     string
}

// Service is safe for concurrent use. Generator options may be swapped at
// runtime with SetOptions.
type Service struct {
	allow     *allowlist.Holder
	fetcher   Fetcher
	converter atomic.Pointer[epg.Converter]
	tracer    trace.Tracer
}

// NewService wires the pipeline. allow and fetcher are only needed by Translate.
func NewService(allow *allowlist.Holder, fetcher Fetcher, opts epg.Options) *Service {
	s := &Service{
		allow:   allow,
		fetcher: fetcher,
		tracer:  telemetry.Tracer(tracerName),
	}
	s.converter.Store(epg.NewConverter(opts))
	return s
}

// SetOptions replaces the generator options for subsequent conversions.
func (s *Service) SetOptions(opts epg.Options) {
	s.converter.Store(epg.NewConverter(opts))
}

// Options returns the generator options in effect.
func (s *Service) Options() epg.Options {
	return s.converter.Load().Options()
}

// Translate fetches the feed at rawURL and renders it as XMLTV.
func (s *Service) Translate(ctx context.Context, rawURL string) (Result, error) {
	start := time.Now()
	rawURL = strings.TrimSpace(rawURL)

	ctx, span := s.tracer.Start(ctx, "translate.url")
	defer span.End()

	if rawURL == "" {
		fail(span, "missing_url", ErrMissingURL)
		metrics.RecordConversion(string(SourceURL), metrics.OutcomeRejected, time.Since(start).Seconds())
		return Result{}, ErrMissingURL
	}

	host := hostOf(rawURL)
	logger := xglog.WithComponentFromContext(ctx, "translate").With().
		Str(xglog.FieldSourceHost, host).
		Logger()

	if err := s.allow.Check(rawURL); err != nil {
		fail(span, "allowlist", err)
		metrics.IncAllowlistRejection()
		metrics.RecordConversion(string(SourceURL), metrics.OutcomeRejected, time.Since(start).Seconds())
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "translate.rejected").
			Msg("source url rejected by allowlist")
		return Result{}, err
	}

	body, err := s.fetcher.FetchJSON(ctx, rawURL)
	if err != nil {
		fail(span, "fetch", err)
		metrics.RecordConversion(string(SourceURL), metrics.OutcomeFetchError, time.Since(start).Seconds())
		return Result{}, err
	}

	res, err := s.render(ctx, span, body, SourceURL, host)
	metrics.RecordConversion(string(SourceURL), outcomeOf(err), time.Since(start).Seconds())
	return res, err
}

// ConvertBytes renders an already available feed document.
func (s *Service) ConvertBytes(ctx context.Context, data []byte, source Source) (Result, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "translate."+string(source))
	defer span.End()

	res, err := s.render(ctx, span, data, source, "")
	metrics.RecordConversion(string(source), outcomeOf(err), time.Since(start).Seconds())
	return res, err
}

func (s *Service) render(ctx context.Context, span trace.Span, data []byte, source Source, host string) (Result, error) {
	logger := xglog.WithComponentFromContext(ctx, "translate")
	span.SetAttributes(telemetry.FeedAttributes(string(source), host, len(data))...)

	channels, err := feed.Decode(data)
	if err != nil {
		fail(span, "conversion", err)
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "translate.conversion_failed").
			Str("source", string(source)).
			Msg("feed could not be converted")
		return Result{}, err
	}

	tv, report := s.converter.Load().Convert(channels)
	for _, skip := range report.Skips {
		logger.Debug().Err(skip.Err).
			Str(xglog.FieldEvent, "record.skipped").
			Str(xglog.FieldChannelID, skip.ChannelID).
			Int(xglog.FieldMediaIndex, skip.Index).
			Str(xglog.FieldSkipReason, string(skip.Reason)).
			Msg("media entry skipped")
	}
	for reason, n := range report.SkipCounts() {
		metrics.AddRecordsSkipped(string(reason), n)
	}

	var buf bytes.Buffer
	if err := epg.Encode(&buf, tv); err != nil {
		fail(span, "encode", err)
		return Result{}, err
	}

	metrics.RecordDocument(report.Channels, report.Programmes, report.NegativeDurations, buf.Len())
	span.SetAttributes(telemetry.XMLTVAttributes(report.Channels, report.Programmes,
		len(report.Skips), report.NegativeDurations, buf.Len())...)
	span.SetStatus(codes.Ok, "")

	logger.Info().
		Str(xglog.FieldEvent, "translate.ok").
		Str("source", string(source)).
		Str(xglog.FieldSourceHost, host).
		Int(xglog.FieldChannels, report.Channels).
		Int(xglog.FieldProgrammes, report.Programmes).
		Int(xglog.FieldSkipped, len(report.Skips)).
		Int(xglog.FieldBytes, buf.Len()).
		Msg("xmltv document generated")

	return Result{TV: tv, Document: buf.Bytes(), Report: report, Host: host}, nil
}

func fail(span trace.Span, errorType string, err error) {
	span.RecordError(err)
	span.SetAttributes(telemetry.ErrorAttributes(errorType)...)
	span.SetStatus(codes.Error, err.Error())
}

func outcomeOf(err error) string {
	if err != nil {
		return metrics.OutcomeConversionError
	}
	return metrics.OutcomeSuccess
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

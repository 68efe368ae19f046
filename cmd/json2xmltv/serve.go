// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ManuGH/json2xmltv/internal/allowlist"
	"github.com/ManuGH/json2xmltv/internal/api"
	"github.com/ManuGH/json2xmltv/internal/api/middleware"
	"github.com/ManuGH/json2xmltv/internal/config"
	"github.com/ManuGH/json2xmltv/internal/epg"
	"github.com/ManuGH/json2xmltv/internal/health"
	xglog "github.com/ManuGH/json2xmltv/internal/log"
	"github.com/ManuGH/json2xmltv/internal/metrics"
	"github.com/ManuGH/json2xmltv/internal/telemetry"
	"github.com/ManuGH/json2xmltv/internal/translate"
	"github.com/ManuGH/json2xmltv/internal/upstream"
	"github.com/ManuGH/json2xmltv/internal/version"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const serviceName = "json2xmltv"

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

// app is the set of long-lived components shared by serve and convert.
type app struct {
	allow   *allowlist.Holder
	fetcher *upstream.Fetcher
	service *translate.Service
}

func newApp(cfg config.AppConfig) (*app, error) {
	list, err := allowlist.New(cfg.AllowedDomains)
	if err != nil {
		return nil, err
	}
	metrics.SetAllowlistEntries(list.Len())
	holder := allowlist.NewHolder(list)

	fetcher := upstream.New(upstreamConfig(cfg))
	return &app{
		allow:   holder,
		fetcher: fetcher,
		service: translate.NewService(holder, fetcher, generatorOptions(cfg)),
	}, nil
}

func upstreamConfig(cfg config.AppConfig) upstream.Config {
	return upstream.Config{
		Timeout:            cfg.Upstream.Timeout,
		InsecureSkipVerify: cfg.Upstream.InsecureSkipVerify,
		MaxBodyBytes:       cfg.Upstream.MaxBodyBytes,
		UserAgent:          cfg.Upstream.UserAgent,
		Rate:               cfg.Upstream.Rate,
		Burst:              cfg.Upstream.Burst,
		BreakerThreshold:   cfg.Upstream.BreakerThreshold,
		BreakerReset:       cfg.Upstream.BreakerReset,
		Traced:             cfg.Tracing.Enabled,
	}
}

func generatorOptions(cfg config.AppConfig) epg.Options {
	return epg.Options{
		GeneratorName:   cfg.Generator.Name,
		GeneratorURL:    cfg.Generator.URL,
		ChannelIDSuffix: cfg.Generator.ChannelIDSuffix,
		DefaultDuration: cfg.Generator.DefaultDuration,
	}
}

// apply pushes the hot-reloadable settings of cfg into the running components.
func (rt *app) apply(cfg config.AppConfig) error {
	list, err := allowlist.New(cfg.AllowedDomains)
	if err != nil {
		return err
	}
	rt.allow.Store(list)
	metrics.SetAllowlistEntries(list.Len())
	rt.service.SetOptions(generatorOptions(cfg))
	xglog.Configure(xglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  os.Stderr,
		Version: cfg.Version,
	})
	return nil
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg, loader, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := xglog.WithComponent("daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "startup.check_failed").
			Msg("startup checks failed; verify configuration")
		return err
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		Environment:    os.Getenv(config.EnvPrefix + "ENVIRONMENT"),
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	rt, err := newApp(cfg)
	if err != nil {
		return err
	}

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewAllowlistChecker(rt.allow))
	hm.RegisterChecker(health.NewBreakerChecker(rt.fetcher.BreakerStates))
	hm.RegisterChecker(health.NewFileChecker("config_file", loader.Path()))

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = serviceName
	}
	srv := api.New(api.Config{
		Listen:         cfg.Listen,
		MaxUploadBytes: cfg.MaxUploadBytes,
		WriteTimeout:   cfg.Upstream.Timeout + 30*time.Second,
		RateLimit: middleware.RateLimitConfig{
			RequestLimit: cfg.RateLimit.Requests,
			WindowSize:   cfg.RateLimit.Window,
		},
		TracingService: tracingService,
	}, rt.service, hm)

	holder := config.NewConfigHolder(cfg, loader, loader.Path())
	updates := make(chan config.AppConfig, 1)
	holder.RegisterListener(updates)

	logger.Info().
		Str(xglog.FieldEvent, "daemon.start").
		Str(xglog.FieldListenAddr, cfg.Listen).
		Strs(xglog.FieldAllowedHost, rt.allow.Load().Domains()).
		Str("version", version.Version).
		Msg("starting json2xmltv")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		if err := holder.StartWatcher(gctx); err != nil {
			return fmt.Errorf("config watcher: %w", err)
		}
		<-gctx.Done()
		holder.Stop()
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case next := <-updates:
				if err := rt.apply(next); err != nil {
					logger := xglog.WithComponent("daemon")
					logger.Error().Err(err).
						Str(xglog.FieldEvent, "config.apply_failed").
						Msg("reloaded configuration could not be applied")
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str(xglog.FieldEvent, "daemon.exit_error").Msg("server stopped with error")
		return err
	}
	logger.Info().Str(xglog.FieldEvent, "daemon.stopped").Msg("server stopped")
	return nil
}

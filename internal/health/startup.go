// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/ManuGH/json2xmltv/internal/allowlist"
	"github.com/ManuGH/json2xmltv/internal/config"
	"github.com/ManuGH/json2xmltv/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates runtime-critical settings before the server starts.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Str(log.FieldEvent, "startup.checks_begin").Msg("running pre-flight startup checks")

	if err := checkListenAddr(logger, cfg.Listen); err != nil {
		return fmt.Errorf("listen address check failed: %w", err)
	}
	if err := checkAllowlist(logger, cfg.AllowedDomains); err != nil {
		return fmt.Errorf("allowlist check failed: %w", err)
	}
	checkSecurityPosture(logger, cfg)

	logger.Info().Str(log.FieldEvent, "startup.checks_passed").Msg("all startup checks passed")
	return nil
}

func checkListenAddr(logger zerolog.Logger, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 0 || portNum > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, addr)
	}
	logger.Info().Str(log.FieldListenAddr, addr).Msg("listen address is valid")
	return nil
}

func checkAllowlist(logger zerolog.Logger, domains []string) error {
	list, err := allowlist.New(domains)
	if err != nil {
		return err
	}
	if list.Len() == 0 {
		return fmt.Errorf("no allowed domains configured")
	}
	logger.Info().Strs(log.FieldAllowedHost, list.Domains()).Msg("allowlist is valid")
	return nil
}

func checkSecurityPosture(logger zerolog.Logger, cfg config.AppConfig) {
	if cfg.Upstream.InsecureSkipVerify {
		logger.Warn().
			Str(log.FieldEvent, "startup.tls_verification_disabled").
			Msg("upstream TLS certificate verification is disabled")
	}
	if cfg.RateLimit.Requests == 0 {
		logger.Warn().
			Str(log.FieldEvent, "startup.ratelimit_disabled").
			Msg("inbound rate limiting is disabled")
	}
	if cfg.Tracing.Enabled {
		logger.Info().
			Str("exporter", cfg.Tracing.Exporter).
			Str("endpoint", cfg.Tracing.Endpoint).
			Msg("tracing enabled")
	}
}

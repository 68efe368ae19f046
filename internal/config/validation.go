// SPDX-License-Identifier: MIT

package config

import (
	"strings"

	"github.com/ManuGH/json2xmltv/internal/allowlist"
	"github.com/ManuGH/json2xmltv/internal/validate"
)

// Validate checks cfg and reports every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("listen", cfg.Listen)
	v.PositiveDuration("shutdownTimeout", cfg.ShutdownTimeout)
	v.Positive("maxUploadBytes", cfg.MaxUploadBytes)

	v.OneOf("log.level", cfg.Log.Level, "trace", "debug", "info", "warn", "error")
	v.OneOf("log.format", cfg.Log.Format, "json", "console")

	validateAllowlist(v, cfg.AllowedDomains)

	v.PositiveDuration("upstream.timeout", cfg.Upstream.Timeout)
	v.Positive("upstream.maxBodyBytes", cfg.Upstream.MaxBodyBytes)
	if cfg.Upstream.Rate <= 0 {
		v.Addf("upstream.rate", cfg.Upstream.Rate, "must be positive, got %g", cfg.Upstream.Rate)
	}
	v.IntBetween("upstream.burst", cfg.Upstream.Burst, 1, 10000)
	v.IntBetween("upstream.breakerThreshold", cfg.Upstream.BreakerThreshold, 1, 1000)
	v.PositiveDuration("upstream.breakerReset", cfg.Upstream.BreakerReset)

	v.NotBlank("generator.name", cfg.Generator.Name)
	v.URL("generator.url", cfg.Generator.URL, "http", "https")
	v.NotBlank("generator.channelIdSuffix", cfg.Generator.ChannelIDSuffix)
	if strings.ContainsAny(cfg.Generator.ChannelIDSuffix, " \t\n\"<>&") {
		v.Addf("generator.channelIdSuffix", cfg.Generator.ChannelIDSuffix, "must not contain whitespace or XML special characters")
	}
	v.PositiveDuration("generator.defaultDuration", cfg.Generator.DefaultDuration)

	if cfg.RateLimit.Requests < 0 {
		v.Addf("rateLimit.requests", cfg.RateLimit.Requests, "cannot be negative (0 disables)")
	}
	if cfg.RateLimit.Requests > 0 {
		v.PositiveDuration("rateLimit.window", cfg.RateLimit.Window)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("tracing.exporter", cfg.Tracing.Exporter, "grpc", "http")
		v.NotBlank("tracing.endpoint", cfg.Tracing.Endpoint)
		v.FloatBetween("tracing.samplingRate", cfg.Tracing.SamplingRate, 0, 1)
	}

	return v.Err()
}

func validateAllowlist(v *validate.Validator, domains []string) {
	nonEmpty := 0
	for _, d := range domains {
		if strings.TrimSpace(d) == "" {
			v.Addf("allowedDomains", d, "entries cannot be empty")
			continue
		}
		nonEmpty++
	}
	if nonEmpty == 0 {
		v.Addf("allowedDomains", domains, "at least one domain is required")
		return
	}
	if _, err := allowlist.New(domains); err != nil {
		v.Addf("allowedDomains", domains, "%v", err)
	}
}

// SPDX-License-Identifier: MIT

package config

import (
	"time"
)

// EnvPrefix prefixes every environment key read by the loader.
const EnvPrefix = "JSON2XMLTV_"

// AppConfig is the fully resolved configuration.
type AppConfig struct {
	Version string `yaml:"-"`

	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxUploadBytes  int64         `yaml:"maxUploadBytes"`
	AllowedDomains  []string      `yaml:"allowedDomains"`

	Log       LogConfig       `yaml:"log"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Generator GeneratorConfig `yaml:"generator"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// UpstreamConfig controls feed fetching.
type UpstreamConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecureSkipVerify"`
	MaxBodyBytes       int64         `yaml:"maxBodyBytes"`
	UserAgent          string        `yaml:"userAgent"`
	Rate               float64       `yaml:"rate"`
	Burst              int           `yaml:"burst"`
	BreakerThreshold   int           `yaml:"breakerThreshold"`
	BreakerReset       time.Duration `yaml:"breakerReset"`
}

// GeneratorConfig shapes the emitted XMLTV document.
type GeneratorConfig struct {
	Name            string        `yaml:"name"`
	URL             string        `yaml:"url"`
	ChannelIDSuffix string        `yaml:"channelIdSuffix"`
	DefaultDuration time.Duration `yaml:"defaultDuration"`
}

// RateLimitConfig throttles inbound conversion requests per client IP.
// Requests == 0 disables the limit.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// FileConfig mirrors AppConfig for YAML input. nil means "not set".
type FileConfig struct {
	Listen          *string        `yaml:"listen"`
	ShutdownTimeout *time.Duration `yaml:"shutdownTimeout"`
	MaxUploadBytes  *int64         `yaml:"maxUploadBytes"`
	AllowedDomains  []string       `yaml:"allowedDomains"`

	Log *struct {
		Level  *string `yaml:"level"`
		Format *string `yaml:"format"`
	} `yaml:"log"`

	Upstream *struct {
		Timeout            *time.Duration `yaml:"timeout"`
		InsecureSkipVerify *bool          `yaml:"insecureSkipVerify"`
		MaxBodyBytes       *int64         `yaml:"maxBodyBytes"`
		UserAgent          *string        `yaml:"userAgent"`
		Rate               *float64       `yaml:"rate"`
		Burst              *int           `yaml:"burst"`
		BreakerThreshold   *int           `yaml:"breakerThreshold"`
		BreakerReset       *time.Duration `yaml:"breakerReset"`
	} `yaml:"upstream"`

	Generator *struct {
		Name            *string        `yaml:"name"`
		URL             *string        `yaml:"url"`
		ChannelIDSuffix *string        `yaml:"channelIdSuffix"`
		DefaultDuration *time.Duration `yaml:"defaultDuration"`
	} `yaml:"generator"`

	RateLimit *struct {
		Requests *int           `yaml:"requests"`
		Window   *time.Duration `yaml:"window"`
	} `yaml:"rateLimit"`

	Tracing *struct {
		Enabled      *bool    `yaml:"enabled"`
		Exporter     *string  `yaml:"exporter"`
		Endpoint     *string  `yaml:"endpoint"`
		SamplingRate *float64 `yaml:"samplingRate"`
	} `yaml:"tracing"`
}

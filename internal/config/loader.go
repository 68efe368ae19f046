// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/json2xmltv/internal/epg"
	"github.com/ManuGH/json2xmltv/internal/metrics"
	"gopkg.in/yaml.v3"
)

// DefaultAllowedDomains are the feed origins accepted out of the box.
var DefaultAllowedDomains = []string{"api.toonamiaftermath.com", "toonamiaftermath.com"}

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader. configPath may be empty.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// Path returns the config file path, or "" for ENV-only configuration.
func (l *Loader) Path() string { return l.configPath }

func (l *Loader) key(name string) string {
	k := EnvPrefix + name
	l.ConsumedEnvKeys[k] = struct{}{}
	return k
}

// Defaults returns the built-in configuration for version.
func Defaults(version string) AppConfig {
	ua := "json2xmltv"
	if version != "" {
		ua += "/" + version
	}
	opts := epg.DefaultOptions()
	return AppConfig{
		Version:         version,
		Listen:          ":8080",
		ShutdownTimeout: 10 * time.Second,
		MaxUploadBytes:  16 << 20,
		AllowedDomains:  append([]string(nil), DefaultAllowedDomains...),
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Upstream: UpstreamConfig{
			Timeout:          10 * time.Second,
			MaxBodyBytes:     16 << 20,
			UserAgent:        ua,
			Rate:             5,
			Burst:            10,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
		},
		Generator: GeneratorConfig{
			Name:            opts.GeneratorName,
			URL:             opts.GeneratorURL,
			ChannelIDSuffix: opts.ChannelIDSuffix,
			DefaultDuration: opts.DefaultDuration,
		},
		RateLimit: RateLimitConfig{
			Requests: 60,
			Window:   time.Minute,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// Load loads configuration with precedence: ENV > File > Defaults.
// The result is validated.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults(l.version)

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFileConfig(&cfg, fileCfg)
	}

	l.mergeEnvConfig(&cfg)

	if err := Validate(cfg); err != nil {
		metrics.IncConfigValidationError()
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFileConfig loads a YAML config file without applying defaults or env overrides.
func LoadFileConfig(path string) (*FileConfig, error) {
	return NewLoader(path, "").loadFile(path)
}

// loadFile parses path strictly: unknown fields, trailing documents and
// non-YAML extensions are errors.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if isUnknownFieldError(err) {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, ErrMultipleDocuments
	}

	return &fileCfg, nil
}

func isUnknownFieldError(err error) bool {
	var typeErr *yaml.TypeError
	if !errors.As(err, &typeErr) {
		return false
	}
	for _, msg := range typeErr.Errors {
		if strings.Contains(msg, "not found in type") {
			return true
		}
	}
	return false
}

func mergeFileConfig(cfg *AppConfig, fc *FileConfig) {
	setIf(&cfg.Listen, fc.Listen)
	setIf(&cfg.ShutdownTimeout, fc.ShutdownTimeout)
	setIf(&cfg.MaxUploadBytes, fc.MaxUploadBytes)
	if fc.AllowedDomains != nil {
		cfg.AllowedDomains = append([]string(nil), fc.AllowedDomains...)
	}

	if s := fc.Log; s != nil {
		setIf(&cfg.Log.Level, s.Level)
		setIf(&cfg.Log.Format, s.Format)
	}
	if s := fc.Upstream; s != nil {
		setIf(&cfg.Upstream.Timeout, s.Timeout)
		setIf(&cfg.Upstream.InsecureSkipVerify, s.InsecureSkipVerify)
		setIf(&cfg.Upstream.MaxBodyBytes, s.MaxBodyBytes)
		setIf(&cfg.Upstream.UserAgent, s.UserAgent)
		setIf(&cfg.Upstream.Rate, s.Rate)
		setIf(&cfg.Upstream.Burst, s.Burst)
		setIf(&cfg.Upstream.BreakerThreshold, s.BreakerThreshold)
		setIf(&cfg.Upstream.BreakerReset, s.BreakerReset)
	}
	if s := fc.Generator; s != nil {
		setIf(&cfg.Generator.Name, s.Name)
		setIf(&cfg.Generator.URL, s.URL)
		setIf(&cfg.Generator.ChannelIDSuffix, s.ChannelIDSuffix)
		setIf(&cfg.Generator.DefaultDuration, s.DefaultDuration)
	}
	if s := fc.RateLimit; s != nil {
		setIf(&cfg.RateLimit.Requests, s.Requests)
		setIf(&cfg.RateLimit.Window, s.Window)
	}
	if s := fc.Tracing; s != nil {
		setIf(&cfg.Tracing.Enabled, s.Enabled)
		setIf(&cfg.Tracing.Exporter, s.Exporter)
		setIf(&cfg.Tracing.Endpoint, s.Endpoint)
		setIf(&cfg.Tracing.SamplingRate, s.SamplingRate)
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.Listen = ParseString(l.key("LISTEN"), cfg.Listen)
	cfg.ShutdownTimeout = ParseDuration(l.key("SHUTDOWN_TIMEOUT"), cfg.ShutdownTimeout)
	cfg.MaxUploadBytes = ParseInt64(l.key("MAX_UPLOAD_BYTES"), cfg.MaxUploadBytes)
	cfg.AllowedDomains = ParseStringList(l.key("ALLOWED_DOMAINS"), cfg.AllowedDomains)

	cfg.Log.Level = ParseString(l.key("LOG_LEVEL"), cfg.Log.Level)
	cfg.Log.Format = ParseString(l.key("LOG_FORMAT"), cfg.Log.Format)

	cfg.Upstream.Timeout = ParseDuration(l.key("UPSTREAM_TIMEOUT"), cfg.Upstream.Timeout)
	cfg.Upstream.InsecureSkipVerify = ParseBool(l.key("UPSTREAM_INSECURE_SKIP_VERIFY"), cfg.Upstream.InsecureSkipVerify)
	cfg.Upstream.MaxBodyBytes = ParseInt64(l.key("UPSTREAM_MAX_BODY_BYTES"), cfg.Upstream.MaxBodyBytes)
	cfg.Upstream.UserAgent = ParseString(l.key("UPSTREAM_USER_AGENT"), cfg.Upstream.UserAgent)
	cfg.Upstream.Rate = ParseFloat(l.key("UPSTREAM_RATE"), cfg.Upstream.Rate)
	cfg.Upstream.Burst = ParseInt(l.key("UPSTREAM_BURST"), cfg.Upstream.Burst)
	cfg.Upstream.BreakerThreshold = ParseInt(l.key("UPSTREAM_BREAKER_THRESHOLD"), cfg.Upstream.BreakerThreshold)
	cfg.Upstream.BreakerReset = ParseDuration(l.key("UPSTREAM_BREAKER_RESET"), cfg.Upstream.BreakerReset)

	cfg.Generator.Name = ParseString(l.key("GENERATOR_NAME"), cfg.Generator.Name)
	cfg.Generator.URL = ParseString(l.key("GENERATOR_URL"), cfg.Generator.URL)
	cfg.Generator.ChannelIDSuffix = ParseString(l.key("CHANNEL_ID_SUFFIX"), cfg.Generator.ChannelIDSuffix)
	cfg.Generator.DefaultDuration = ParseDuration(l.key("DEFAULT_DURATION"), cfg.Generator.DefaultDuration)

	cfg.RateLimit.Requests = ParseInt(l.key("RATELIMIT_REQUESTS"), cfg.RateLimit.Requests)
	cfg.RateLimit.Window = ParseDuration(l.key("RATELIMIT_WINDOW"), cfg.RateLimit.Window)

	cfg.Tracing.Enabled = ParseBool(l.key("TRACING_ENABLED"), cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = ParseString(l.key("TRACING_EXPORTER"), cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = ParseString(l.key("TRACING_ENDPOINT"), cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = ParseFloat(l.key("TRACING_SAMPLING_RATE"), cfg.Tracing.SamplingRate)
}

// Marshal renders cfg as YAML in the file schema.
func Marshal(cfg AppConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}

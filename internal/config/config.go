// SPDX-License-Identifier: MIT

// Package config loads and validates the daemon configuration from an
// optional YAML file with environment-variable overrides. Environment
// always wins over the file; defaults fill the rest.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Env var names. All are optional; MEDIASTUDIO_CONFIG points at the YAML
// file.
const (
	EnvConfigFile       = "MEDIASTUDIO_CONFIG"
	EnvListenAddr       = "MEDIASTUDIO_LISTEN"
	EnvWorkDir          = "MEDIASTUDIO_WORK_DIR"
	EnvFFmpegBin        = "MEDIASTUDIO_FFMPEG_BIN"
	EnvFFprobeBin       = "MEDIASTUDIO_FFPROBE_BIN"
	EnvLogLevel         = "MEDIASTUDIO_LOG_LEVEL"
	EnvMaxTotalDuration = "MEDIASTUDIO_MAX_TOTAL_DURATION"
	EnvNormalizeTimeout = "MEDIASTUDIO_NORMALIZE_TIMEOUT"
	EnvConcatTimeout    = "MEDIASTUDIO_CONCAT_TIMEOUT"
	EnvRemixTimeout     = "MEDIASTUDIO_REMIX_TIMEOUT"
	EnvProbeTimeout     = "MEDIASTUDIO_PROBE_TIMEOUT"
	EnvFetchTimeout     = "MEDIASTUDIO_FETCH_TIMEOUT"
	EnvParallelism      = "MEDIASTUDIO_NORMALIZE_PARALLELISM"
	EnvMaxFetchBytes    = "MEDIASTUDIO_MAX_FETCH_BYTES"
	EnvRateLimit        = "MEDIASTUDIO_RATE_LIMIT_PER_MINUTE"
	EnvStorageBackend   = "MEDIASTUDIO_STORAGE_BACKEND"
	EnvStorageDir       = "MEDIASTUDIO_STORAGE_DIR"
	EnvS3Bucket         = "MEDIASTUDIO_S3_BUCKET"
	EnvS3Prefix         = "MEDIASTUDIO_S3_PREFIX"
	EnvOTLPEndpoint     = "MEDIASTUDIO_OTLP_ENDPOINT"
	EnvOTLPProtocol     = "MEDIASTUDIO_OTLP_PROTOCOL"
	EnvTraceSampleRate  = "MEDIASTUDIO_TRACE_SAMPLE_RATE"
)

// Storage backend names accepted by StorageBackend.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Config is the resolved daemon configuration.
type Config struct {
	ListenAddr string `yaml:"listen"`
	WorkDir    string `yaml:"workDir"`
	FFmpegBin  string `yaml:"ffmpegBin"`
	FFprobeBin string `yaml:"ffprobeBin"`
	LogLevel   string `yaml:"logLevel"`

	MaxTotalDuration     time.Duration `yaml:"maxTotalDuration"`
	NormalizeTimeout     time.Duration `yaml:"normalizeTimeout"`
	ConcatTimeout        time.Duration `yaml:"concatTimeout"`
	RemixTimeout         time.Duration `yaml:"remixTimeout"`
	ProbeTimeout         time.Duration `yaml:"probeTimeout"`
	FetchTimeout         time.Duration `yaml:"fetchTimeout"`
	NormalizeParallelism int           `yaml:"normalizeParallelism"`
	MaxFetchBytes        int64         `yaml:"maxFetchBytes"`
	RateLimitPerMinute   int           `yaml:"rateLimitPerMinute"`

	StorageBackend string `yaml:"storageBackend"`
	StorageDir     string `yaml:"storageDir"`
	S3Bucket       string `yaml:"s3Bucket"`
	S3Prefix       string `yaml:"s3Prefix"`

	OTLPEndpoint    string  `yaml:"otlpEndpoint"`
	OTLPProtocol    string  `yaml:"otlpProtocol"`
	TraceSampleRate float64 `yaml:"traceSampleRate"`
}

func defaults() Config {
	return Config{
		ListenAddr:           ":8080",
		WorkDir:              os.TempDir(),
		FFmpegBin:            "ffmpeg",
		LogLevel:             "info",
		MaxTotalDuration:     300 * time.Second,
		NormalizeTimeout:     5 * time.Minute,
		ConcatTimeout:        2 * time.Minute,
		RemixTimeout:         5 * time.Minute,
		ProbeTimeout:         30 * time.Second,
		FetchTimeout:         60 * time.Second,
		NormalizeParallelism: 2,
		MaxFetchBytes:        512 << 20,
		RateLimitPerMinute:   60,
		StorageBackend:       StorageLocal,
		StorageDir:           "./media-out",
		OTLPProtocol:         "grpc",
		TraceSampleRate:      1.0,
	}
}

// Load builds the effective configuration: defaults, then the YAML file
// named by path (or MEDIASTUDIO_CONFIG; missing file is fine when not
// explicitly requested), then environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigFile)
		explicit = path != ""
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			if explicit || !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ListenAddr = ParseString(EnvListenAddr, cfg.ListenAddr)
	cfg.WorkDir = ParseString(EnvWorkDir, cfg.WorkDir)
	cfg.FFmpegBin = ParseString(EnvFFmpegBin, cfg.FFmpegBin)
	cfg.FFprobeBin = ParseString(EnvFFprobeBin, cfg.FFprobeBin)
	cfg.LogLevel = ParseString(EnvLogLevel, cfg.LogLevel)

	cfg.MaxTotalDuration = ParseDuration(EnvMaxTotalDuration, cfg.MaxTotalDuration)
	cfg.NormalizeTimeout = ParseDuration(EnvNormalizeTimeout, cfg.NormalizeTimeout)
	cfg.ConcatTimeout = ParseDuration(EnvConcatTimeout, cfg.ConcatTimeout)
	cfg.RemixTimeout = ParseDuration(EnvRemixTimeout, cfg.RemixTimeout)
	cfg.ProbeTimeout = ParseDuration(EnvProbeTimeout, cfg.ProbeTimeout)
	cfg.FetchTimeout = ParseDuration(EnvFetchTimeout, cfg.FetchTimeout)
	cfg.NormalizeParallelism = ParseInt(EnvParallelism, cfg.NormalizeParallelism)
	cfg.MaxFetchBytes = ParseInt64(EnvMaxFetchBytes, cfg.MaxFetchBytes)
	cfg.RateLimitPerMinute = ParseInt(EnvRateLimit, cfg.RateLimitPerMinute)

	cfg.StorageBackend = ParseString(EnvStorageBackend, cfg.StorageBackend)
	cfg.StorageDir = ParseString(EnvStorageDir, cfg.StorageDir)
	cfg.S3Bucket = ParseString(EnvS3Bucket, cfg.S3Bucket)
	cfg.S3Prefix = ParseString(EnvS3Prefix, cfg.S3Prefix)

	cfg.OTLPEndpoint = ParseString(EnvOTLPEndpoint, cfg.OTLPEndpoint)
	cfg.OTLPProtocol = ParseString(EnvOTLPProtocol, cfg.OTLPProtocol)
	cfg.TraceSampleRate = ParseFloat(EnvTraceSampleRate, cfg.TraceSampleRate)
}

// Validate rejects configurations the daemon cannot start with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.WorkDir == "" {
		return fmt.Errorf("work directory must not be empty")
	}
	if c.FFmpegBin == "" {
		return fmt.Errorf("ffmpeg binary must not be empty")
	}
	if c.NormalizeParallelism < 1 {
		return fmt.Errorf("normalize parallelism must be >= 1, got %d", c.NormalizeParallelism)
	}
	if c.MaxTotalDuration <= 0 {
		return fmt.Errorf("max total duration must be positive, got %s", c.MaxTotalDuration)
	}
	if c.MaxFetchBytes < 0 {
		return fmt.Errorf("max fetch bytes must not be negative, got %d", c.MaxFetchBytes)
	}
	switch c.StorageBackend {
	case StorageLocal:
		if c.StorageDir == "" {
			return fmt.Errorf("local storage requires a storage directory")
		}
	case StorageS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 storage requires a bucket name")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return fmt.Errorf("trace sample rate %v outside [0,1]", c.TraceSampleRate)
	}
	return nil
}

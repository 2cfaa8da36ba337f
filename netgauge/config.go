package netgauge

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	yaml "go.yaml.in/yaml/v3"
)

const envPrefix = "NETGAUGE"

const (
	AggregateMean   = "mean"
	AggregateMedian = "median"

	DownloadModeFixed  = "fixed"
	DownloadModeStream = "stream"

	ProgressStyleBar  = "bar"
	ProgressStyleLog  = "log"
	ProgressStyleNone = "none"
)

const (
	defaultLatencyURL  = "https://www.google.com/favicon.ico"
	defaultDownloadURL = "https://speed.cloudflare.com/__down"
	defaultUploadURL   = "https://httpbin.org/post"

	latencyAttemptsMin = 3
	latencyAttemptsMax = 5

	defaultStreamMaxBytes       = 256 * 1024 * 1024
	defaultDownloadFallbackSize = 2 * 1024 * 1024

	defaultGaugeMaxMbps   = 200
	defaultGaugeArcLength = 314
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Network  NetworkConfig  `yaml:"network" envconfig:"NETWORK"`
	IPLookup IPLookupConfig `yaml:"iplookup" envconfig:"IPLOOKUP"`
	Latency  LatencyConfig  `yaml:"latency" envconfig:"LATENCY"`
	Download DownloadConfig `yaml:"download" envconfig:"DOWNLOAD"`
	Upload   UploadConfig   `yaml:"upload" envconfig:"UPLOAD"`
	Gauge    GaugeConfig    `yaml:"gauge" envconfig:"GAUGE"`
	Progress ProgressConfig `yaml:"progress" envconfig:"PROGRESS"`
	Log      LogConfig      `yaml:"log" envconfig:"LOG"`
}

type NetworkConfig struct {
	// tcp, tcp4 or tcp6
	Protocol    string        `yaml:"protocol" envconfig:"PROTOCOL"`
	DialTimeout time.Duration `yaml:"dial_timeout" envconfig:"DIAL_TIMEOUT"`
	UserAgent   string        `yaml:"user_agent" envconfig:"USER_AGENT"`
}

type IPLookupConfig struct {
	Skip    bool          `yaml:"skip" envconfig:"SKIP"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
	// AnyFamily accepts IPv6 answers too; by default only IPv4 answers are valid.
	AnyFamily bool `yaml:"any_family" envconfig:"ANY_FAMILY"`
}

type LatencyConfig struct {
	URL       string        `yaml:"url" envconfig:"URL"`
	Attempts  int           `yaml:"attempts" envconfig:"ATTEMPTS"`
	Aggregate string        `yaml:"aggregate" envconfig:"AGGREGATE"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

type DownloadConfig struct {
	URL            string        `yaml:"url" envconfig:"URL"`
	Mode           string        `yaml:"mode" envconfig:"MODE"`
	Sizes          []int64       `yaml:"sizes" envconfig:"SIZES"`
	StreamDuration time.Duration `yaml:"stream_duration" envconfig:"STREAM_DURATION"`
	StreamMaxBytes int64         `yaml:"stream_max_bytes" envconfig:"STREAM_MAX_BYTES"`
	FallbackSize   int64         `yaml:"fallback_size" envconfig:"FALLBACK_SIZE"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

type UploadConfig struct {
	URL          string        `yaml:"url" envconfig:"URL"`
	FieldName    string        `yaml:"field_name" envconfig:"FIELD_NAME"`
	ChunkSize    int64         `yaml:"chunk_size" envconfig:"CHUNK_SIZE"`
	Chunks       int           `yaml:"chunks" envconfig:"CHUNKS"`
	FallbackSize int64         `yaml:"fallback_size" envconfig:"FALLBACK_SIZE"`
	RequireJSON  bool          `yaml:"require_json" envconfig:"REQUIRE_JSON"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

type GaugeConfig struct {
	MaxMbps   float64 `yaml:"max_mbps" envconfig:"MAX_MBPS"`
	ArcLength float64 `yaml:"arc_length" envconfig:"ARC_LENGTH"`
}

type ProgressConfig struct {
	Style    string        `yaml:"style" envconfig:"STYLE"`
	Interval time.Duration `yaml:"interval" envconfig:"INTERVAL"`
}

type LogConfig struct {
	Level string `yaml:"level" envconfig:"LEVEL"`
}

func DefaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			Protocol:    "tcp",
			DialTimeout: defaultDialTimeout,
			UserAgent:   "netgauge",
		},
		IPLookup: IPLookupConfig{
			Timeout: 7 * time.Second,
		},
		Latency: LatencyConfig{
			URL:       defaultLatencyURL,
			Attempts:  latencyAttemptsMin,
			Aggregate: AggregateMean,
			Timeout:   5 * time.Second,
		},
		Download: DownloadConfig{
			URL:            defaultDownloadURL,
			Mode:           DownloadModeFixed,
			Sizes:          []int64{1 * 1024 * 1024, 2 * 1024 * 1024, 5 * 1024 * 1024},
			StreamDuration: 8 * time.Second,
			StreamMaxBytes: defaultStreamMaxBytes,
			FallbackSize:   defaultDownloadFallbackSize,
			Timeout:        30 * time.Second,
		},
		Upload: UploadConfig{
			URL:          defaultUploadURL,
			FieldName:    "file",
			ChunkSize:    512 * 1024,
			Chunks:       8,
			FallbackSize: 256 * 1024,
			RequireJSON:  true,
			Timeout:      30 * time.Second,
		},
		Gauge: GaugeConfig{
			MaxMbps:   defaultGaugeMaxMbps,
			ArcLength: defaultGaugeArcLength,
		},
		Progress: ProgressConfig{
			Style:    ProgressStyleBar,
			Interval: 100 * time.Millisecond,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig layers the YAML file at path (optional) and NETGAUGE_* environment
// variables over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read config file %s", path)
		}
		if err := decodeYAMLConfig(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "could not parse config file %s", path)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "could not read environment")
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decodeYAMLConfig(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Normalize clamps numeric settings into their supported ranges and rejects unknown
// enumerations.
func (c *Config) Normalize() error {
	switch c.Network.Protocol {
	case "tcp", "tcp4", "tcp6":
	default:
		return errors.Wrapf(ErrInvalidConfig, "network.protocol %q", c.Network.Protocol)
	}
	if c.Network.DialTimeout <= 0 {
		c.Network.DialTimeout = defaultDialTimeout
	}

	if c.Latency.Attempts < latencyAttemptsMin {
		c.Latency.Attempts = latencyAttemptsMin
	}
	if c.Latency.Attempts > latencyAttemptsMax {
		c.Latency.Attempts = latencyAttemptsMax
	}
	switch c.Latency.Aggregate {
	case AggregateMean, AggregateMedian:
	default:
		return errors.Wrapf(ErrInvalidConfig, "latency.aggregate %q", c.Latency.Aggregate)
	}

	switch c.Download.Mode {
	case DownloadModeFixed, DownloadModeStream:
	default:
		return errors.Wrapf(ErrInvalidConfig, "download.mode %q", c.Download.Mode)
	}
	if c.Download.Mode == DownloadModeFixed && len(c.Download.Sizes) == 0 {
		return errors.Wrap(ErrInvalidConfig, "download.sizes is empty")
	}
	for _, size := range c.Download.Sizes {
		if size <= 0 {
			return errors.Wrapf(ErrInvalidConfig, "download.sizes contains %d", size)
		}
	}
	if c.Download.StreamDuration <= 0 {
		c.Download.StreamDuration = 8 * time.Second
	}
	if c.Download.StreamMaxBytes <= 0 {
		c.Download.StreamMaxBytes = defaultStreamMaxBytes
	}
	if c.Download.FallbackSize <= 0 {
		c.Download.FallbackSize = defaultDownloadFallbackSize
	}

	if c.Upload.ChunkSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "upload.chunk_size %d", c.Upload.ChunkSize)
	}
	if c.Upload.Chunks < 1 {
		c.Upload.Chunks = 1
	}
	if c.Upload.FallbackSize <= 0 || c.Upload.FallbackSize >= c.Upload.ChunkSize {
		c.Upload.FallbackSize = max(c.Upload.ChunkSize/2, 1)
	}
	if c.Upload.FieldName == "" {
		c.Upload.FieldName = "file"
	}

	if c.Gauge.MaxMbps <= 0 {
		c.Gauge.MaxMbps = defaultGaugeMaxMbps
	}
	if c.Gauge.ArcLength <= 0 {
		c.Gauge.ArcLength = defaultGaugeArcLength
	}

	switch c.Progress.Style {
	case ProgressStyleBar, ProgressStyleLog, ProgressStyleNone:
	default:
		return errors.Wrapf(ErrInvalidConfig, "progress.style %q", c.Progress.Style)
	}
	if c.Progress.Interval < 0 {
		c.Progress.Interval = 0
	}

	return nil
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Backends understood by the daemon.
const (
	BackendSimulated   = "simulated"
	BackendLlamaServer = "llama-server"
	BackendLlama       = "llama"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified"; Default supplies a complete baseline.
type Config struct {
	Addr           string   `json:"addr" yaml:"addr" toml:"addr"`
	Backend        string   `json:"backend" yaml:"backend" toml:"backend"`
	Model          string   `json:"model" yaml:"model" toml:"model"`
	ModelsDir      string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	LlamaServerURL string   `json:"llama_server_url" yaml:"llama_server_url" toml:"llama_server_url"`
	APIKey         string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout" toml:"request_timeout"`
	ConnectTimeout Duration `json:"connect_timeout" yaml:"connect_timeout" toml:"connect_timeout"`

	GenerateTimeout Duration `json:"generate_timeout" yaml:"generate_timeout" toml:"generate_timeout"`
	MaxQueueDepth   int      `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	MaxWait         Duration `json:"max_wait" yaml:"max_wait" toml:"max_wait"`
	DrainTimeout    Duration `json:"drain_timeout" yaml:"drain_timeout" toml:"drain_timeout"`
	StreamBuffer    int      `json:"stream_buffer" yaml:"stream_buffer" toml:"stream_buffer"`
	MaxBodyBytes    int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	WSWriteTimeout  Duration `json:"ws_write_timeout" yaml:"ws_write_timeout" toml:"ws_write_timeout"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	CORS      CORSConfig      `json:"cors" yaml:"cors" toml:"cors"`
	Redis     RedisConfig     `json:"redis" yaml:"redis" toml:"redis"`
	Simulated SimulatedConfig `json:"simulated" yaml:"simulated" toml:"simulated"`
}

type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// RedisConfig enables lifecycle event publishing when Addr is set.
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr"`
	Channel  string `json:"channel" yaml:"channel" toml:"channel"`
	Password string `json:"password" yaml:"password" toml:"password"`
	DB       int    `json:"db" yaml:"db" toml:"db"`
}

type SimulatedConfig struct {
	Delay Duration `json:"delay" yaml:"delay" toml:"delay"`
	// Availability is the raw state reported by the backend, e.g. model_not_ready.
	Availability string `json:"availability" yaml:"availability" toml:"availability"`
	// Supported defaults to true; false exercises the unsupported path.
	Supported *bool `json:"supported" yaml:"supported" toml:"supported"`
}

// Duration accepts Go duration strings ("30s", "2m") in every format.
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) { return []byte(time.Duration(d).String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Addr:            ":8080",
		Backend:         BackendSimulated,
		ModelsDir:       "~/models/llm",
		RequestTimeout:  Duration(5 * time.Minute),
		ConnectTimeout:  Duration(5 * time.Second),
		GenerateTimeout: Duration(2 * time.Minute),
		MaxQueueDepth:   32,
		MaxWait:         Duration(30 * time.Second),
		DrainTimeout:    Duration(10 * time.Second),
		StreamBuffer:    16,
		MaxBodyBytes:    1 << 20,
		WSWriteTimeout:  Duration(10 * time.Second),
		LogLevel:        "info",
		LogFormat:       "console",
		Redis:           RedisConfig{Channel: "modelbridge.events"},
	}
}

// Load reads a configuration file based on its extension, on top of Default.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSimulated, BackendLlama:
	case BackendLlamaServer:
		if c.LlamaServerURL == "" {
			return fmt.Errorf("backend %q requires llama_server_url", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendSimulated, BackendLlamaServer, BackendLlama)
	}
	for name, d := range map[string]Duration{
		"request_timeout":  c.RequestTimeout,
		"connect_timeout":  c.ConnectTimeout,
		"max_wait":         c.MaxWait,
		"drain_timeout":    c.DrainTimeout,
		"simulated.delay":  c.Simulated.Delay,
		"ws_write_timeout": c.WSWriteTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if c.MaxQueueDepth < 0 || c.StreamBuffer < 0 || c.MaxBodyBytes < 0 {
		return fmt.Errorf("max_queue_depth, stream_buffer and max_body_bytes must not be negative")
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	if c.CORS.Enabled && len(c.CORS.Origins) == 0 {
		return fmt.Errorf("cors.enabled requires at least one origin")
	}
	return nil
}

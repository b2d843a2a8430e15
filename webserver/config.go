package webserver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingListenAddr is returned when Config.ListenAddr is empty.
var ErrMissingListenAddr = errors.New("webserver: listen_addr is required")

// Duration is a time.Duration that unmarshals from the Go duration
// syntax in YAML (e.g. "30s", "2m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config configures the web server.
type Config struct {
	// ListenAddr is the TCP address to listen on, host:port. Required.
	ListenAddr string `yaml:"listen_addr"`

	// ReadTimeout bounds reading the whole request, including the
	// body. Zero means no timeout.
	ReadTimeout Duration `yaml:"read_timeout"`

	// ReadHeaderTimeout bounds reading the request headers. When zero,
	// ReadTimeout applies.
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`

	// WriteTimeout bounds writing the response. Zero means no timeout.
	WriteTimeout Duration `yaml:"write_timeout"`

	// IdleTimeout bounds how long an idle keep-alive connection is
	// kept open. Zero means no timeout.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Defaults to 30s.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers. Zero uses the
	// standard library default.
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// EnableH2C serves HTTP/2 over cleartext TCP, for deployments
	// behind a TLS-terminating proxy that speaks h2c upstream.
	EnableH2C bool `yaml:"enable_h2c"`
}

// Validate checks the configuration and fills in defaults.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return ErrMissingListenAddr
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = Duration(30 * time.Second)
	}
	return nil
}

// LoadConfig reads a YAML configuration. Unknown fields are rejected
// so typos fail at startup instead of silently using defaults.
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("webserver: decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfigFile reads a YAML configuration from a file.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("webserver: opening config: %w", err)
	}
	defer f.Close()

	return LoadConfig(f)
}

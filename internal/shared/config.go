package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Credentials CredentialsConfig `toml:"credentials"`
	API         APIConfig         `toml:"api"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
	Serve       ServeConfig       `toml:"serve"`
}

// ServerConfig describes where the trace websocket lives.
type ServerConfig struct {
	Domain           string   `toml:"domain"`
	SSL              *bool    `toml:"ssl"`
	HandshakeTimeout Duration `toml:"handshake_timeout"`
}

// SSLEnabled reports whether the secure scheme should be used.
//
// An unset value means true; only an explicit false disables it.
func (s ServerConfig) SSLEnabled() bool {
	return s.SSL == nil || *s.SSL
}

// CredentialsConfig contains the optional job API token.
type CredentialsConfig struct {
	APIKey string `toml:"api_key"`
}

// APIConfig contains settings for the example job HTTP API.
type APIConfig struct {
	BaseURL  string  `toml:"base_url"`
	PollRate float64 `toml:"poll_rate"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// ServeConfig contains settings for the local development server.
type ServeConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for the development server.
func (s ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Duration wraps [time.Duration] so it can be decoded from TOML strings like "10s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, string(text))
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate checks that required values are present and in range.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Domain) == "" {
		return fmt.Errorf("%w: server.domain is required", ErrInvalidConfig)
	}
	if c.Server.HandshakeTimeout.Duration < 0 {
		return fmt.Errorf("%w: server.handshake_timeout must not be negative", ErrInvalidConfig)
	}
	if c.API.PollRate < 0 {
		return fmt.Errorf("%w: api.poll_rate must not be negative", ErrInvalidConfig)
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("%w: serve.port %d out of range", ErrInvalidConfig, c.Serve.Port)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"market-pulse/src/helpers"
	"market-pulse/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Defaults applied to fields left empty in the YAML file
const (
	DefaultAckTimeoutMs         = 5000
	DefaultReconnectBaseDelayMs = 500
	DefaultReconnectMaxDelayMs  = 30000
	DefaultHandshakeTimeoutMs   = 10000
	DefaultReadTimeoutSeconds   = 60
	DefaultPingIntervalSeconds  = 25
	DefaultFrameIntervalMs      = 16
	DefaultMinFlushIntervalMs   = 40
	DefaultWindowSize           = 100
	DefaultHistorySeed          = 50
	DefaultListLimit            = 200
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a Config from raw YAML bytes
func Parse(data []byte) (*Config, error) {
	// 1. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.ApplyDefaults()

	// 2. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills zero values with the documented defaults
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}

	t := &c.Transport
	if t.AckTimeoutMs == 0 {
		t.AckTimeoutMs = DefaultAckTimeoutMs
	}
	if t.ReconnectBaseDelayMs == 0 {
		t.ReconnectBaseDelayMs = DefaultReconnectBaseDelayMs
	}
	if t.ReconnectMaxDelayMs == 0 {
		t.ReconnectMaxDelayMs = DefaultReconnectMaxDelayMs
	}
	if t.HandshakeTimeoutMs == 0 {
		t.HandshakeTimeoutMs = DefaultHandshakeTimeoutMs
	}
	if t.ReadTimeoutSeconds == 0 {
		t.ReadTimeoutSeconds = DefaultReadTimeoutSeconds
	}
	if t.PingIntervalSeconds == 0 {
		t.PingIntervalSeconds = DefaultPingIntervalSeconds
	}

	if c.Render.FrameIntervalMs == 0 {
		c.Render.FrameIntervalMs = DefaultFrameIntervalMs
	}
	if c.Render.MinFlushIntervalMs == 0 {
		c.Render.MinFlushIntervalMs = DefaultMinFlushIntervalMs
	}

	if c.Chart.WindowSize == 0 {
		c.Chart.WindowSize = DefaultWindowSize
	}
	if c.Chart.HistorySeed == 0 {
		c.Chart.HistorySeed = DefaultHistorySeed
	}
	if c.Chart.ListLimit == 0 {
		c.Chart.ListLimit = DefaultListLimit
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty for redis")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	// Validate Transport configuration
	if c.Transport.URL == "" {
		return fmt.Errorf("transport url cannot be empty")
	}
	if c.Transport.AckTimeoutMs < 0 {
		return fmt.Errorf("ack timeout cannot be negative")
	}
	if c.Transport.ReconnectMaxDelayMs < c.Transport.ReconnectBaseDelayMs {
		return fmt.Errorf("reconnect max delay must be >= base delay")
	}

	// Validate Render configuration
	if c.Render.FrameIntervalMs <= 0 {
		return fmt.Errorf("frame interval must be greater than 0")
	}
	if c.Render.MinFlushIntervalMs < 0 {
		return fmt.Errorf("min flush interval cannot be negative")
	}

	// Validate Chart configuration
	if c.Chart.WindowSize <= 0 {
		return fmt.Errorf("chart window size must be greater than 0")
	}
	if c.Chart.HistorySeed < 0 || c.Chart.HistorySeed > c.Chart.WindowSize {
		return fmt.Errorf("history seed must be between 0 and window size (%d)", c.Chart.WindowSize)
	}
	if c.Chart.TimeLocation != "" {
		if _, err := time.LoadLocation(c.Chart.TimeLocation); err != nil {
			return fmt.Errorf("invalid chart time location '%s': %w", c.Chart.TimeLocation, err)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Location returns the zone chart labels are formatted in
func (c *Config) Location() *time.Location {
	if c.Chart.TimeLocation == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Chart.TimeLocation)
	if err != nil {
		return time.Local
	}
	return loc
}

// -----------------------------------------------------------------------------

// MinFlushInterval returns the render gate as a duration
func (c *Config) MinFlushInterval() time.Duration {
	return time.Duration(c.Render.MinFlushIntervalMs) * time.Millisecond
}

// -----------------------------------------------------------------------------

// FrameInterval returns the frame clock period as a duration
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.Render.FrameIntervalMs) * time.Millisecond
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

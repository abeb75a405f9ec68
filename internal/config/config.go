package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/yardwatch.defaults.json"

// Config is the root service configuration. Every field is optional in the
// JSON file except database_path; the Get* methods supply defaults.
type Config struct {
	DatabasePath *string `json:"database_path,omitempty"`
	Listen       *string `json:"listen,omitempty"`
	LogLevel     *string `json:"log_level,omitempty"`

	// gRPC status stream. Empty disables it.
	GRPCListen     *string `json:"grpc_listen,omitempty"`
	GRPCMaxClients *int    `json:"grpc_max_clients,omitempty"`

	// Transport
	SerialPort *string        `json:"serial_port,omitempty"`
	Serial     *SerialOptions `json:"serial,omitempty"`

	// Fixture replay instead of a port, for bench runs.
	FixturePath     *string `json:"fixture_path,omitempty"`
	FixtureInterval *string `json:"fixture_interval,omitempty"` // duration string like "1s"

	// Engine
	RecorderQueueSize *int     `json:"recorder_queue_size,omitempty"`
	IDTimezone        *string  `json:"id_timezone,omitempty"`
	ResetRoles        []string `json:"reset_roles,omitempty"`
	DebugRoutes       *bool    `json:"debug_routes,omitempty"`
}

// SerialOptions mirrors the port settings accepted by the transport.
type SerialOptions struct {
	BaudRate int    `json:"baud_rate,omitempty"`
	DataBits int    `json:"data_bits,omitempty"`
	StopBits int    `json:"stop_bits,omitempty"`
	Parity   string `json:"parity,omitempty"`
}

func ptrString(v string) *string { return &v }

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json extension
// and be under 1MB. Fields omitted from the file keep their defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the working directory or
// one of its parents. Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that required parameters are present and the rest parse.
func (c *Config) Validate() error {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return Errorf("database_path", "required")
	}

	if c.FixtureInterval != nil && *c.FixtureInterval != "" {
		if _, err := time.ParseDuration(*c.FixtureInterval); err != nil {
			return Errorf("fixture_interval", "invalid duration %q: %v", *c.FixtureInterval, err)
		}
	}

	if c.GRPCMaxClients != nil && *c.GRPCMaxClients < 0 {
		return Errorf("grpc_max_clients", "must not be negative, got %d", *c.GRPCMaxClients)
	}

	if c.RecorderQueueSize != nil && *c.RecorderQueueSize < 1 {
		return Errorf("recorder_queue_size", "must be positive, got %d", *c.RecorderQueueSize)
	}

	if c.IDTimezone != nil {
		if _, err := time.LoadLocation(*c.IDTimezone); err != nil {
			return Errorf("id_timezone", "%v", err)
		}
	}

	if c.Serial != nil {
		switch c.Serial.Parity {
		case "", "N", "n", "none", "E", "e", "even", "O", "o", "odd":
		default:
			return Errorf("serial.parity", "unsupported value %q", c.Serial.Parity)
		}
	}

	return nil
}

// GetDatabasePath returns the SQLite file path.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath == nil {
		return ""
	}
	return *c.DatabasePath
}

// GetListen returns the HTTP listen address or the default.
func (c *Config) GetListen() string {
	if c.Listen == nil || *c.Listen == "" {
		return ":8080"
	}
	return *c.Listen
}

// GetGRPCListen returns the status stream listen address. Empty means off.
func (c *Config) GetGRPCListen() string {
	if c.GRPCListen == nil {
		return ""
	}
	return *c.GRPCListen
}

// GetGRPCMaxClients returns the status stream client limit, 0 for the
// server default.
func (c *Config) GetGRPCMaxClients() int {
	if c.GRPCMaxClients == nil {
		return 0
	}
	return *c.GRPCMaxClients
}

// GetLogLevel returns the log level or the default.
func (c *Config) GetLogLevel() string {
	if c.LogLevel == nil || *c.LogLevel == "" {
		return "info"
	}
	return *c.LogLevel
}

// GetSerialPort returns the serial device path. Empty disables the port.
func (c *Config) GetSerialPort() string {
	if c.SerialPort == nil {
		return ""
	}
	return *c.SerialPort
}

// GetSerial returns the port options or the defaults (19200 8N1).
func (c *Config) GetSerial() SerialOptions {
	if c.Serial == nil {
		return SerialOptions{BaudRate: 19200, DataBits: 8, StopBits: 1, Parity: "N"}
	}
	return *c.Serial
}

// GetFixturePath returns the fixture replay file, if any.
func (c *Config) GetFixturePath() string {
	if c.FixturePath == nil {
		return ""
	}
	return *c.FixturePath
}

// GetFixtureInterval returns the replay period or the default.
func (c *Config) GetFixtureInterval() time.Duration {
	if c.FixtureInterval == nil || *c.FixtureInterval == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.FixtureInterval)
	if err != nil {
		return time.Second
	}
	return d
}

// GetRecorderQueueSize returns the persistence queue depth or the default.
func (c *Config) GetRecorderQueueSize() int {
	if c.RecorderQueueSize == nil {
		return 1024
	}
	return *c.RecorderQueueSize
}

// GetIDLocation returns the zone used to format vehicle ids.
func (c *Config) GetIDLocation() *time.Location {
	if c.IDTimezone == nil {
		return time.Local
	}
	loc, err := time.LoadLocation(*c.IDTimezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GetResetRoles returns the roles allowed to reset section state.
func (c *Config) GetResetRoles() []string {
	if len(c.ResetRoles) == 0 {
		return []string{"admin", "supervisor"}
	}
	return c.ResetRoles
}

// GetDebugRoutes reports whether /debug/ admin routes are attached.
func (c *Config) GetDebugRoutes() bool {
	if c.DebugRoutes == nil {
		return true
	}
	return *c.DebugRoutes
}

// WithDatabasePath returns a copy of c with the database path overridden.
func (c *Config) WithDatabasePath(path string) *Config {
	cp := *c
	cp.DatabasePath = ptrString(path)
	return &cp
}

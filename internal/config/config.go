// Package config loads the daemon's JSON configuration file.
//
// All fields are pointers so a partial file only overrides what it
// names; the Get* accessors supply defaults for everything else. The
// same schema is served and accepted by the /api/config endpoint.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/questrig/questrig/internal/units"
)

// Config represents the root daemon configuration.
type Config struct {
	// Intake params
	SampleRate        *float64 `json:"sample_rate,omitempty"`        // frames per second for the dev generator
	ConnectionTimeout *string  `json:"connection_timeout,omitempty"` // duration string like "250ms"
	RingCapacity      *int     `json:"ring_capacity,omitempty"`      // unread frame buffer size
	CommandTTL        *string  `json:"command_ttl,omitempty"`        // pose reset time-to-live

	// Serving params
	StreamListen *string `json:"stream_listen,omitempty"` // gRPC listen address
	APIListen    *string `json:"api_listen,omitempty"`    // HTTP listen address

	// Storage params
	DatabasePath  *string `json:"database_path,omitempty"`
	FlushInterval *string `json:"flush_interval,omitempty"` // recorder cadence

	// Display params
	AngleUnits    *string `json:"angle_units,omitempty"`
	DistanceUnits *string `json:"distance_units,omitempty"`
	DeviceID      *string `json:"device_id,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields set to nil, so every
// accessor falls back to its default.
func EmptyConfig() *Config {
	return &Config{}
}

// LoadConfig loads a Config from a JSON file. Fields omitted from the
// file keep their defaults, so partial configs are safe.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.SampleRate != nil {
		if *c.SampleRate <= 0 || *c.SampleRate > 1000 {
			return fmt.Errorf("sample_rate must be in (0, 1000], got %f", *c.SampleRate)
		}
	}

	if c.RingCapacity != nil {
		if *c.RingCapacity <= 0 {
			return fmt.Errorf("ring_capacity must be positive, got %d", *c.RingCapacity)
		}
	}

	for name, value := range map[string]*string{
		"connection_timeout": c.ConnectionTimeout,
		"command_ttl":        c.CommandTTL,
		"flush_interval":     c.FlushInterval,
	} {
		if value != nil && *value != "" {
			if _, err := time.ParseDuration(*value); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *value, err)
			}
		}
	}

	if c.AngleUnits != nil {
		if !units.IsValidAngleUnit(*c.AngleUnits) {
			return fmt.Errorf("invalid angle_units '%s', valid units are: %s", *c.AngleUnits, units.GetValidAngleUnitsString())
		}
	}
	if c.DistanceUnits != nil {
		if !units.IsValidDistanceUnit(*c.DistanceUnits) {
			return fmt.Errorf("invalid distance_units '%s', valid units are: %s", *c.DistanceUnits, units.GetValidDistanceUnitsString())
		}
	}

	return nil
}

// GetSampleRate returns the sample_rate value or the default.
func (c *Config) GetSampleRate() float64 {
	if c.SampleRate == nil {
		return 100.0 // default
	}
	return *c.SampleRate
}

// GetConnectionTimeout parses and returns the ConnectionTimeout as a time.Duration.
func (c *Config) GetConnectionTimeout() time.Duration {
	if c.ConnectionTimeout == nil || *c.ConnectionTimeout == "" {
		return 250 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.ConnectionTimeout)
	if err != nil {
		return 250 * time.Millisecond // default on parse error
	}
	return d
}

// GetRingCapacity returns the ring_capacity value or the default.
func (c *Config) GetRingCapacity() int {
	if c.RingCapacity == nil {
		return 64 // default
	}
	return *c.RingCapacity
}

// GetCommandTTL parses and returns the CommandTTL as a time.Duration.
func (c *Config) GetCommandTTL() time.Duration {
	if c.CommandTTL == nil || *c.CommandTTL == "" {
		return 50 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.CommandTTL)
	if err != nil {
		return 50 * time.Millisecond // default on parse error
	}
	return d
}

// GetStreamListen returns the stream_listen value or the default.
func (c *Config) GetStreamListen() string {
	if c.StreamListen == nil || *c.StreamListen == "" {
		return "localhost:50051" // default
	}
	return *c.StreamListen
}

// GetAPIListen returns the api_listen value or the default.
func (c *Config) GetAPIListen() string {
	if c.APIListen == nil || *c.APIListen == "" {
		return ":8080" // default
	}
	return *c.APIListen
}

// GetDatabasePath returns the database_path value or the default.
func (c *Config) GetDatabasePath() string {
	if c.DatabasePath == nil || *c.DatabasePath == "" {
		return "questrig.db" // default
	}
	return *c.DatabasePath
}

// GetFlushInterval parses and returns the FlushInterval as a time.Duration.
func (c *Config) GetFlushInterval() time.Duration {
	if c.FlushInterval == nil || *c.FlushInterval == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.FlushInterval)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetAngleUnits returns the angle_units value or the default.
func (c *Config) GetAngleUnits() string {
	if c.AngleUnits == nil || *c.AngleUnits == "" {
		return units.Radians // default
	}
	return *c.AngleUnits
}

// GetDistanceUnits returns the distance_units value or the default.
func (c *Config) GetDistanceUnits() string {
	if c.DistanceUnits == nil || *c.DistanceUnits == "" {
		return units.Meters // default
	}
	return *c.DistanceUnits
}

// GetDeviceID returns the device_id value or the default.
func (c *Config) GetDeviceID() string {
	if c.DeviceID == nil || *c.DeviceID == "" {
		return "quest-1" // default
	}
	return *c.DeviceID
}

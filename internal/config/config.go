// Package config loads server configuration from a TOML file, with
// sensible defaults for every field.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so TOML files can say "1h" or "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds everything the server needs to run.
type Config struct {
	ListenAddr     string   `toml:"listen_addr"`
	DataDir        string   `toml:"data_dir"`
	InitialSeconds int      `toml:"initial_seconds"`
	ByoyomiSeconds int      `toml:"byoyomi_seconds"`
	GCInterval     Duration `toml:"gc_interval"`
	RoomTTL        Duration `toml:"room_ttl"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ListenAddr:     ":3001",
		InitialSeconds: 600,
		ByoyomiSeconds: 30,
		GCInterval:     Duration{time.Hour},
		RoomTTL:        Duration{24 * time.Hour},
		AllowedOrigins: []string{"*"},
	}
}

// Load reads a TOML config file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.InitialSeconds < 0 || c.ByoyomiSeconds < 0 {
		return fmt.Errorf("time settings must not be negative")
	}
	if c.GCInterval.Duration <= 0 {
		return fmt.Errorf("gc_interval must be positive")
	}
	if c.RoomTTL.Duration <= 0 {
		return fmt.Errorf("room_ttl must be positive")
	}
	return nil
}

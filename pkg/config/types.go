package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent aisearch configuration stored as
// config.toml in the .aisearch/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Backend     BackendConfig     `toml:"backend"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Tracing     TracingConfig     `toml:"tracing"`
	Mock        MockConfig        `toml:"mock"`
}

// BackendConfig holds the RAG workspace the chat commands talk to.
type BackendConfig struct {
	URL         string `toml:"url,omitempty"`
	Workspace   string `toml:"workspace,omitempty"`
	Mode        string `toml:"mode,omitempty"`
	Framing     string `toml:"framing,omitempty"`
	MaxLineSize uint   `toml:"max_line_size,omitempty"`
}

// EventStreamConfig holds turn event publishing settings.
type EventStreamConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Exporter string `toml:"exporter,omitempty"`
	Endpoint string `toml:"endpoint,omitempty"`
}

// MockConfig holds settings for the local mock backend.
type MockConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"backend.url": {
		get: func(c *Config) string { return c.Backend.URL },
		set: func(c *Config, v string) error { c.Backend.URL = v; return nil },
	},
	"backend.workspace": {
		get: func(c *Config) string { return c.Backend.Workspace },
		set: func(c *Config, v string) error { c.Backend.Workspace = v; return nil },
	},
	"backend.mode": {
		get: func(c *Config) string { return c.Backend.Mode },
		set: func(c *Config, v string) error { c.Backend.Mode = v; return nil },
	},
	"backend.framing": {
		get: func(c *Config) string { return c.Backend.Framing },
		set: func(c *Config, v string) error {
			switch v {
			case "sse", "legacy":
				c.Backend.Framing = v
				return nil
			default:
				return fmt.Errorf("invalid value for backend.framing: %q (available: sse, legacy)", v)
			}
		},
	},
	"backend.max_line_size": {
		get: func(c *Config) string {
			if c.Backend.MaxLineSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Backend.MaxLineSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for backend.max_line_size: %w", err)
			}
			c.Backend.MaxLineSize = uint(n)
			return nil
		},
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.target": {
		get: func(c *Config) string { return c.EventStream.Target },
		set: func(c *Config, v string) error { c.EventStream.Target = v; return nil },
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"tracing.exporter": {
		get: func(c *Config) string { return c.Tracing.Exporter },
		set: func(c *Config, v string) error { c.Tracing.Exporter = v; return nil },
	},
	"tracing.endpoint": {
		get: func(c *Config) string { return c.Tracing.Endpoint },
		set: func(c *Config, v string) error { c.Tracing.Endpoint = v; return nil },
	},
	"mock.listen": {
		get: func(c *Config) string { return c.Mock.Listen },
		set: func(c *Config, v string) error { c.Mock.Listen = v; return nil },
	},
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/aisearch/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the AISEARCH_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (AISEARCH_BACKEND_URL, AISEARCH_BACKEND_WORKSPACE, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("AISEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper resolves the effective Config from v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Backend: BackendConfig{
			URL:         v.GetString("backend.url"),
			Workspace:   v.GetString("backend.workspace"),
			Mode:        v.GetString("backend.mode"),
			Framing:     v.GetString("backend.framing"),
			MaxLineSize: v.GetUint("backend.max_line_size"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("eventstream.provider"),
			Target:   v.GetString("eventstream.target"),
			Topic:    v.GetString("eventstream.topic"),
		},
		Tracing: TracingConfig{
			Exporter: v.GetString("tracing.exporter"),
			Endpoint: v.GetString("tracing.endpoint"),
		},
		Mock: MockConfig{
			Listen: v.GetString("mock.listen"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Backend
	v.SetDefault("backend.url", d.Backend.URL)
	v.SetDefault("backend.workspace", d.Backend.Workspace)
	v.SetDefault("backend.mode", d.Backend.Mode)
	v.SetDefault("backend.framing", d.Backend.Framing)
	v.SetDefault("backend.max_line_size", d.Backend.MaxLineSize)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.target", d.EventStream.Target)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	// Tracing
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.endpoint", d.Tracing.Endpoint)

	// Mock backend
	v.SetDefault("mock.listen", d.Mock.Listen)
}

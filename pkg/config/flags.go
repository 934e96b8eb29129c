package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --workspace
// on both "aisearch chat" and "aisearch ask").
type Flag struct {
	// Name is the long flag name (e.g. "workspace").
	Name string

	// Shorthand is the one-letter short flag (e.g. "w"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "backend.workspace").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagBackendURL          = "backend-url"
	FlagWorkspace           = "workspace"
	FlagMode                = "mode"
	FlagFraming             = "framing"
	FlagMaxLineSize         = "max-line-size"
	FlagEventStreamProvider = "eventstream-provider"
	FlagEventStreamTarget   = "eventstream-target"
	FlagEventStreamTopic    = "eventstream-topic"
	FlagTraceExporter       = "trace-exporter"
	FlagTraceEndpoint       = "trace-endpoint"
	FlagMockListen          = "listen"
)

// Flags is the registry shared by every command.
var Flags = FlagSet{
	FlagBackendURL: {
		Name:        "backend-url",
		Shorthand:   "b",
		ViperKey:    "backend.url",
		Description: "RAG backend base URL",
	},
	FlagWorkspace: {
		Name:        "workspace",
		Shorthand:   "w",
		ViperKey:    "backend.workspace",
		Description: "Workspace slug to chat with",
	},
	FlagMode: {
		Name:        "mode",
		ViperKey:    "backend.mode",
		Description: "Chat mode sent with each message (query, chat)",
	},
	FlagFraming: {
		Name:        "framing",
		ViperKey:    "backend.framing",
		Description: "Response line framing (sse, legacy)",
	},
	FlagMaxLineSize: {
		Name:        "max-line-size",
		ViperKey:    "backend.max_line_size",
		Description: "Maximum size in bytes of one response line",
	},
	FlagEventStreamProvider: {
		Name:        "eventstream-provider",
		ViperKey:    "eventstream.provider",
		Description: "Turn event publisher (none, kafka, nats, redis)",
	},
	FlagEventStreamTarget: {
		Name:        "eventstream-target",
		ViperKey:    "eventstream.target",
		Description: "Kafka brokers (comma separated), or NATS or Redis server URL",
	},
	FlagEventStreamTopic: {
		Name:        "eventstream-topic",
		ViperKey:    "eventstream.topic",
		Description: "Kafka topic, NATS subject or Redis stream for turn events",
	},
	FlagTraceExporter: {
		Name:        "trace-exporter",
		ViperKey:    "tracing.exporter",
		Description: "OpenTelemetry span exporter (none, stdout, otlp)",
	},
	FlagTraceEndpoint: {
		Name:        "trace-endpoint",
		ViperKey:    "tracing.endpoint",
		Description: "OTLP/HTTP collector endpoint",
	},
	FlagMockListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "mock.listen",
		Description: "Address for the mock backend to listen on",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

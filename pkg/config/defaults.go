package config

const (
	defaultBackendURL  = "https://chat.pravochat.ru"
	defaultWorkspace   = "ios"
	defaultMode        = "query"
	defaultFraming     = "sse"
	defaultMaxLineSize = 4 * 1024 * 1024

	defaultEventStreamProvider = "none"
	defaultEventStreamTopic    = "aisearch.turn.finished"

	defaultTraceExporter = "none"

	defaultMockListen = ":3001"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Backend: BackendConfig{
			URL:         defaultBackendURL,
			Workspace:   defaultWorkspace,
			Mode:        defaultMode,
			Framing:     defaultFraming,
			MaxLineSize: defaultMaxLineSize,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Tracing: TracingConfig{
			Exporter: defaultTraceExporter,
		},
		Mock: MockConfig{
			Listen: defaultMockListen,
		},
	}
}

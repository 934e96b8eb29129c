// Package sessionflags registers and resolves the flags shared by commands
// that talk to the backend ("aisearch chat" and "aisearch ask").
package sessionflags

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aisearch/pkg/config"
	"github.com/papercomputeco/aisearch/pkg/dotdir"
)

// RecordAuto is the --record value that writes to a new file under
// .aisearch/recordings/.
const RecordAuto = "auto"

// Keys are the registry flags bound by Register.
var Keys = []string{
	config.FlagBackendURL,
	config.FlagWorkspace,
	config.FlagMode,
	config.FlagFraming,
	config.FlagMaxLineSize,
	config.FlagEventStreamProvider,
	config.FlagEventStreamTarget,
	config.FlagEventStreamTopic,
	config.FlagTraceExporter,
	config.FlagTraceEndpoint,
}

// Values holds the raw flag targets. Commands read the effective
// configuration through Resolve; Record is the only value used directly.
type Values struct {
	BackendURL          string
	Workspace           string
	Mode                string
	Framing             string
	MaxLineSize         uint
	EventStreamProvider string
	EventStreamTarget   string
	EventStreamTopic    string
	TraceExporter       string
	TraceEndpoint       string

	Record string
}

// Register adds the shared flags to cmd.
func Register(cmd *cobra.Command, v *Values) {
	config.AddStringFlag(cmd, config.Flags, config.FlagBackendURL, &v.BackendURL)
	config.AddStringFlag(cmd, config.Flags, config.FlagWorkspace, &v.Workspace)
	config.AddStringFlag(cmd, config.Flags, config.FlagMode, &v.Mode)
	config.AddStringFlag(cmd, config.Flags, config.FlagFraming, &v.Framing)
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxLineSize, &v.MaxLineSize)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamProvider, &v.EventStreamProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamTarget, &v.EventStreamTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEventStreamTopic, &v.EventStreamTopic)
	config.AddStringFlag(cmd, config.Flags, config.FlagTraceExporter, &v.TraceExporter)
	config.AddStringFlag(cmd, config.Flags, config.FlagTraceEndpoint, &v.TraceEndpoint)

	cmd.Flags().StringVar(&v.Record, "record", "", `Write the raw response stream to a file ("auto" or no value: .aisearch/recordings/)`)
	cmd.Flags().Lookup("record").NoOptDefVal = RecordAuto
}

// Resolve returns the effective configuration for cmd following the
// flag > env > config file > default precedence.
func Resolve(cmd *cobra.Command) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, Keys)

	return config.FromViper(v), nil
}

// OpenRecording opens the recording destination named by the --record
// value. It returns a nil writer when recording is off.
func OpenRecording(record, configDir string, now time.Time) (io.WriteCloser, string, error) {
	switch record {
	case "":
		return nil, "", nil

	case RecordAuto:
		f, err := dotdir.NewManager().CreateRecording(configDir, now)
		if err != nil {
			return nil, "", err
		}
		return f, f.Name(), nil

	default:
		f, err := os.Create(record)
		if err != nil {
			return nil, "", fmt.Errorf("creating recording: %w", err)
		}
		return f, record, nil
	}
}

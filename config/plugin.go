// Package config defines the configuration types for a simulation run
// (spec.md §6): per-plugin process/thread configuration and the overall
// simulator configuration. Grounded on
// dqcsim/src/host/configuration/{plugin_process,plugin_thread,simulator}.rs.
package config

import (
	"time"

	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/types"
)

// StreamCaptureMode controls how a spawned plugin's stdout/stderr is
// handled, mirroring StreamCaptureMode in plugin_process.rs.
// plugin.SpawnProcess does not consult these modes: a spawned process's
// stderr is always logged at debug level, and its stdout is read only for
// the rendezvous announcement.
type StreamCaptureMode int

const (
	// CapturePassthrough connects the stream directly to DQCsim's own, with
	// no processing.
	CapturePassthrough StreamCaptureMode = iota
	// CaptureSuppress discards the stream entirely.
	CaptureSuppress
	// CaptureLog routes the stream into the log system line-by-line at a
	// fixed level.
	CaptureLog
)

// EnvMod is an environment variable modification applied to a spawned
// plugin process, mirroring env_mod.rs's EnvMod enum (Set/Remove).
// pipeline.Controller passes only the Set entries to the process; Remove
// entries are skipped and do not unset anything.
type EnvMod struct {
	Key string
	// Value is used when Remove is false; ignored otherwise.
	Value  string
	Remove bool
}

// Timeout is an optional duration, mirroring timeout.rs's Timeout (which
// wraps Option<Duration> so "disabled" is representable alongside any
// finite duration including zero).
type Timeout struct {
	Duration time.Duration
	Disabled bool
}

// TimeoutFromSeconds constructs a finite Timeout.
func TimeoutFromSeconds(s float64) Timeout {
	return Timeout{Duration: time.Duration(s * float64(time.Second))}
}

// DisabledTimeout constructs a Timeout that never expires.
func DisabledTimeout() Timeout { return Timeout{Disabled: true} }

// PluginProcessConfig is the complete configuration for a subprocess
// plugin, mirroring PluginProcessConfiguration.
type PluginProcessConfig struct {
	Name       string
	Type       types.PluginType
	Executable string
	Script     string
	Args       []string

	InitCmds []arb.Cmd
	Env      []EnvMod
	Workdir  string

	Verbosity       dqlog.Level
	StdoutMode      StreamCaptureMode
	StderrMode      StreamCaptureMode
	AcceptTimeout   Timeout
	ShutdownTimeout Timeout
}

// NewPluginProcessConfig constructs a PluginProcessConfig with the same
// defaults as plugin_process.rs's PluginProcessConfiguration::new: info
// verbosity, both streams set to CaptureLog, 5 second accept/shutdown
// timeouts, and the current directory as the working directory.
func NewPluginProcessConfig(name string, typ types.PluginType, executable string) PluginProcessConfig {
	return PluginProcessConfig{
		Name:            name,
		Type:            typ,
		Executable:      executable,
		Workdir:         ".",
		Verbosity:       dqlog.Info,
		StdoutMode:      CaptureLog,
		StderrMode:      CaptureLog,
		AcceptTimeout:   TimeoutFromSeconds(5),
		ShutdownTimeout: TimeoutFromSeconds(5),
	}
}

// PluginThreadConfig is the complete configuration for an in-process
// (goroutine) plugin, mirroring plugin_thread.rs's PluginThreadConfiguration:
// no executable/process fields, since the plugin runs as a callback in the
// same address space.
type PluginThreadConfig struct {
	Name     string
	Type     types.PluginType
	InitCmds []arb.Cmd
	Verbosity dqlog.Level
}

// NewPluginThreadConfig constructs a PluginThreadConfig with info-level
// verbosity, matching the process flavor's default.
func NewPluginThreadConfig(name string, typ types.PluginType) PluginThreadConfig {
	return PluginThreadConfig{Name: name, Type: typ, Verbosity: dqlog.Info}
}

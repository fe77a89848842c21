// Package repro implements reproduction file dump/load (spec.md §6):
// recording the seed, the per-plugin configuration, and the sequence of
// host calls made during a run, so the run can be replayed later. Grounded
// directly on the original source's dqcsim/src/host/reproduction/mod.rs
// (the Reproduction struct and its new_logger/record/to_run/from_file/
// to_file methods) and dqcsim/src/reproduction/host_call.rs (the HostCall
// sequence, reusing clihost.Call for its string grammar instead of a
// second independent representation). Library: gopkg.in/yaml.v3 (pack:
// streamspace, teranos), replacing the original's serde_yaml.
package repro

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dqcsim/dqcsim/clihost"
	"github.com/dqcsim/dqcsim/config"
	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/types"
)

// PathStyle controls how a plugin's executable/script path is recorded in
// a reproduction file, mirroring reproduction/path_style.rs.
type PathStyle int

const (
	// KeepAsTyped stores the path exactly as the user supplied it.
	KeepAsTyped PathStyle = iota
	// RelativeToWorkdir stores the path relative to the recording run's
	// working directory.
	RelativeToWorkdir
	// Absolute stores an absolute path.
	Absolute
)

// Resolve renders p according to the style, relative to workdir.
func (s PathStyle) Resolve(p, workdir string) (string, error) {
	switch s {
	case KeepAsTyped:
		return p, nil
	case RelativeToWorkdir:
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", dqerr.Wrap(dqerr.IO, err, "resolving path %q", p)
		}
		rel, err := filepath.Rel(workdir, abs)
		if err != nil {
			return "", dqerr.Wrap(dqerr.IO, err, "relativizing path %q to %q", p, workdir)
		}
		return rel, nil
	case Absolute:
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", dqerr.Wrap(dqerr.IO, err, "resolving path %q", p)
		}
		return abs, nil
	}
	return p, nil
}

// PluginEntry is the recorded configuration for one plugin, mirroring
// PluginReproduction: name, executable, optional script, and the
// functional (reproducibility-relevant) configuration.
type PluginEntry struct {
	Name       string     `yaml:"name"`
	Executable string     `yaml:"executable"`
	Script     string     `yaml:"script,omitempty"`
	InitCmds   []arb.Cmd  `yaml:"init_cmds,omitempty"`
	Env        []EnvEntry `yaml:"env,omitempty"`
	Workdir    string     `yaml:"workdir"`
}

// EnvEntry is one environment variable modification recorded alongside a
// plugin's functional configuration, mirroring config.EnvMod's yaml shape.
type EnvEntry struct {
	Key    string `yaml:"key"`
	Value  string `yaml:"value,omitempty"`
	Remove bool   `yaml:"remove,omitempty"`
}

// Reproduction is the full contents of a reproduction file, mirroring
// Reproduction in reproduction/mod.rs.
type Reproduction struct {
	Seed      int64         `yaml:"seed"`
	Plugins   []PluginEntry `yaml:"plugins"`
	HostCalls []string      `yaml:"host_calls"`
	Hostname  string        `yaml:"hostname"`
	Username  string        `yaml:"username"`
	Workdir   string        `yaml:"workdir"`
}

// NewLogger constructs a Reproduction ready to record a run of cfg, with an
// empty host-call log. Only process-flavour plugins are recordable, since
// only they have an executable path and functional configuration to
// capture; the caller is expected to have already run config.CheckPluginList.
func NewLogger(cfg config.SimulatorConfig, hostname, username, workdir string, style PathStyle) (*Reproduction, error) {
	entries := make([]PluginEntry, 0, len(cfg.Plugins))
	for _, p := range cfg.Plugins {
		spec, ok := p.(*config.PluginProcessConfig)
		if !ok {
			return nil, dqerr.InvalidArgumentf("plugin %q has no recordable (process) configuration", p.PluginName())
		}
		executable, err := style.Resolve(spec.Executable, workdir)
		if err != nil {
			return nil, err
		}
		script := spec.Script
		if script != "" {
			script, err = style.Resolve(script, workdir)
			if err != nil {
				return nil, err
			}
		}
		entries = append(entries, PluginEntry{
			Name:       spec.Name,
			Executable: executable,
			Script:     script,
			InitCmds:   spec.InitCmds,
			Env:        toEnvEntries(spec.Env),
			Workdir:    spec.Workdir,
		})
	}
	return &Reproduction{
		Seed:     cfg.Seed,
		Plugins:  entries,
		Hostname: hostname,
		Username: username,
		Workdir:  workdir,
	}, nil
}

func toEnvEntries(mods []config.EnvMod) []EnvEntry {
	out := make([]EnvEntry, len(mods))
	for i, m := range mods {
		out[i] = EnvEntry{Key: m.Key, Value: m.Value, Remove: m.Remove}
	}
	return out
}

// Record appends a host call to the log, in its mini-language string form
// (spec.md §6), mirroring Reproduction::record.
func (r *Reproduction) Record(call clihost.Call) {
	r.HostCalls = append(r.HostCalls, call.String())
}

// ToRun reconstructs the plugin list — recorded front to back, so every
// entry is built as an Operator and then the first is retyped Frontend and
// the last Backend, mirroring to_run's "pretend every plugin is an
// operator, then fix up" comment — and returns the recorded host calls for
// replay. If exact is set, cfg's seed is overwritten with the recorded
// seed, matching to_run's --reproduce-exactly behaviour.
func (r *Reproduction) ToRun(cfg *config.SimulatorConfig, exact bool) ([]clihost.Call, error) {
	if exact {
		cfg.Seed = r.Seed
	}
	if len(r.Plugins) < 2 {
		return nil, dqerr.InvalidArgumentf("reproduction file corrupted: less than two plugins specified")
	}

	plugins := make([]config.Plugin, len(r.Plugins))
	for i, e := range r.Plugins {
		p := config.NewPluginProcessConfig(e.Name, types.Operator, e.Executable)
		p.Script = e.Script
		p.InitCmds = e.InitCmds
		p.Workdir = e.Workdir
		for _, env := range e.Env {
			p.Env = append(p.Env, config.EnvMod{Key: env.Key, Value: env.Value, Remove: env.Remove})
		}
		plugins[i] = &p
	}
	plugins[0].(*config.PluginProcessConfig).Type = types.Frontend
	plugins[len(plugins)-1].(*config.PluginProcessConfig).Type = types.Backend
	cfg.Plugins = plugins

	calls := make([]clihost.Call, 0, len(r.HostCalls))
	for _, s := range r.HostCalls {
		call, err := clihost.ParseCall(s)
		if err != nil {
			return nil, dqerr.Wrap(dqerr.InvalidArgument, err, "parsing recorded host call %q", s)
		}
		calls = append(calls, call)
	}
	return calls, nil
}

// FromFile loads a Reproduction from a YAML file.
func FromFile(path string) (*Reproduction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dqerr.Wrap(dqerr.IO, err, "opening reproduction file %q", path)
	}
	defer f.Close()
	var r Reproduction
	if err := yaml.NewDecoder(f).Decode(&r); err != nil {
		return nil, dqerr.Wrap(dqerr.InvalidArgument, err, "decoding reproduction file %q", path)
	}
	return &r, nil
}

// ToFile writes r to path as YAML.
func (r *Reproduction) ToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return dqerr.Wrap(dqerr.IO, err, "creating reproduction file %q", path)
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	defer enc.Close()
	if err := enc.Encode(r); err != nil {
		return dqerr.Wrap(dqerr.Other, err, "encoding reproduction file %q", path)
	}
	return nil
}

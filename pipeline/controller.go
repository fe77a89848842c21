// Package pipeline implements the pipeline controller (spec.md §4.D): it
// owns the ordered list of plugin handles, drives the three-phase
// initialization and cooperative teardown, and routes host arb commands to
// a named or indexed plugin. Grounded on
// dqcsim/src/host/{simulator,simulation}.rs: Simulator::new's
// optimize_loglevels → check_plugin_list → spawn → init sequence, and
// simulation.rs's arb_idx for host arb routing.
package pipeline

import (
	"fmt"
	"time"

	"github.com/dqcsim/dqcsim/config"
	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/hostcall"
	"github.com/dqcsim/dqcsim/internal/metrics"
	"github.com/dqcsim/dqcsim/internal/proto"
	"github.com/dqcsim/dqcsim/internal/types"
	"github.com/dqcsim/dqcsim/plugin"
)

// disabledShutdownTimeout stands in for "no deadline" when a plugin's
// AcceptTimeout or ShutdownTimeout is disabled: long enough that the wait
// is never the thing that gives up first.
const disabledShutdownTimeout = 365 * 24 * time.Hour

// Controller owns a running pipeline: the ordered plugin handles (frontend
// at index 0, backend last) and the host-call engine talking to the
// frontend.
type Controller struct {
	log     *dqlog.Logger
	handles []*plugin.Handle
	engine  *hostcall.Engine
}

// New validates cfg (spec.md §4.D's Validation step), spawns every plugin,
// and drives the three-phase initialization. On any failure, every plugin
// already spawned is aborted and dropped before the error is returned.
func New(cfg config.SimulatorConfig, logBackend *dqlog.Backend) (*Controller, error) {
	if err := cfg.CheckPluginList(); err != nil {
		return nil, err
	}

	c := &Controller{log: logBackend.GetLogger("dqcsim")}
	if err := c.spawn(cfg, logBackend); err != nil {
		return nil, err
	}
	if err := c.initialize(cfg); err != nil {
		c.teardown()
		return nil, err
	}

	c.engine = hostcall.NewEngine(c.handles[0])
	return c, nil
}

// spawn launches every plugin (spec.md §4.D step 1: order is immaterial,
// failure short-circuits — done here sequentially for simplicity, which is
// observably identical since a spawn failure aborts the whole attempt
// either way).
func (c *Controller) spawn(cfg config.SimulatorConfig, logBackend *dqlog.Backend) error {
	for _, p := range cfg.Plugins {
		switch spec := p.(type) {
		case *config.PluginProcessConfig:
			timeout := spec.AcceptTimeout.Duration
			if spec.AcceptTimeout.Disabled {
				// No deadline: wait for the announcement as long as it takes.
				timeout = disabledShutdownTimeout
			}
			shutdownTimeout := spec.ShutdownTimeout.Duration
			if spec.ShutdownTimeout.Disabled {
				// No deadline: let the process take as long as it needs.
				shutdownTimeout = disabledShutdownTimeout
			}
			h, err := plugin.SpawnProcess(spec.Name, spec.Type, spec.Executable, spec.Args, envStrings(spec.Env), spec.Workdir, logBackend, timeout, shutdownTimeout)
			if err != nil {
				metrics.RecordSpawn(spec.Type.String(), "error")
				c.teardown()
				return dqerr.Wrap(dqerr.IO, err, "spawning plugin %s", spec.Name)
			}
			metrics.RecordSpawn(spec.Type.String(), "ok")
			metrics.PluginsRunning.Inc()
			c.handles = append(c.handles, h)
		default:
			c.teardown()
			return dqerr.InvalidArgumentf("plugin %q has no supported spawn specification", p.PluginName())
		}
	}
	return nil
}

func envStrings(mods []config.EnvMod) []string {
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		if m.Remove {
			continue
		}
		out = append(out, fmt.Sprintf("%s=%s", m.Key, m.Value))
	}
	return out
}

// initialize drives the three-phase handshake of spec.md §4.D: initialize
// downstream-first, accept-upstream back-to-front, user-initialize
// front-to-back.
func (c *Controller) initialize(cfg config.SimulatorConfig) error {
	n := len(c.handles)
	upstreamURIs := make([]string, n)

	for i := n - 1; i >= 0; i-- {
		downstream := ""
		if i+1 < n {
			downstream = upstreamURIs[i+1]
		}
		logLevel := dqlog.Info
		switch spec := cfg.Plugins[i].(type) {
		case *config.PluginProcessConfig:
			logLevel = spec.Verbosity
		case *config.PluginThreadConfig:
			logLevel = spec.Verbosity
		}
		resp, err := c.handles[i].Initialize(proto.InitializeRequest{
			Downstream: downstream,
			PluginType: c.handles[i].PluginType,
			Seed:       uint64(cfg.Seed),
			LogLevel:   int(logLevel),
		})
		if err != nil {
			return dqerr.Wrap(dqerr.IO, err, "initializing plugin %s", c.handles[i].Name)
		}
		upstreamURIs[i] = resp.Upstream
	}

	for i := 1; i < n; i++ {
		if err := c.handles[i].AcceptUpstream(); err != nil {
			return dqerr.Wrap(dqerr.IO, err, "accepting upstream on plugin %s", c.handles[i].Name)
		}
	}

	for i := 0; i < n; i++ {
		if err := c.handles[i].UserInitialize(initCmdsFor(cfg, i)); err != nil {
			return dqerr.Wrap(dqerr.IO, err, "user-initializing plugin %s", c.handles[i].Name)
		}
	}
	return nil
}

func initCmdsFor(cfg config.SimulatorConfig, i int) []arb.Cmd {
	if spec, ok := cfg.Plugins[i].(*config.PluginProcessConfig); ok {
		return spec.InitCmds
	}
	return nil
}

// Frontend returns the handle at index 0.
func (c *Controller) Frontend() *plugin.Handle { return c.handles[0] }

// Engine returns the host-call engine driving the frontend.
func (c *Controller) Engine() *hostcall.Engine { return c.engine }

// Arb routes a host ArbCmd to the plugin named target, or (if target
// parses as a signed integer) to the plugin at that index — negative
// indices count from the end, -1 meaning the backend, mirroring
// simulation.rs's arb_idx. Before dispatching, it flushes any pending
// host-side asynchronous call by yielding through the frontend, matching
// arb_idx's "yield_to_frontend()" call before every dispatch.
func (c *Controller) Arb(target string, cmd arb.Cmd) (arb.Data, error) {
	idx, err := c.resolve(target)
	if err != nil {
		return arb.Data{}, err
	}
	if err := c.engine.Yield(); err != nil {
		return arb.Data{}, err
	}
	data, err := c.handles[idx].Arb(cmd)
	if err != nil {
		metrics.RecordArb(target, "error")
	} else {
		metrics.RecordArb(target, "ok")
	}
	return data, err
}

func (c *Controller) resolve(target string) (int, error) {
	for i, h := range c.handles {
		if h.Name == target {
			return i, nil
		}
	}
	var signed int
	if _, err := fmt.Sscanf(target, "%d", &signed); err == nil {
		idx := signed
		if idx < 0 {
			idx += len(c.handles)
		}
		if idx < 0 || idx >= len(c.handles) {
			return 0, dqerr.InvalidArgumentf("plugin index %d out of range for %d plugins", signed, len(c.handles))
		}
		return idx, nil
	}
	return 0, dqerr.InvalidArgumentf("no plugin named %q", target)
}

// Drop tears the pipeline down: Abort is sent to the frontend first so its
// run loop terminates before downstream peers disappear, then every handle
// is dropped in reverse spawn order so channels close cleanly (spec.md
// §4.D's Teardown).
func (c *Controller) Drop() {
	c.teardown()
}

func (c *Controller) teardown() {
	for _, h := range c.handles {
		h.Abort()
	}
	for i := len(c.handles) - 1; i >= 0; i-- {
		if err := c.handles[i].Drop(); err != nil {
			c.log.Warningf("dropping plugin %s: %s", c.handles[i].Name, err)
		}
		metrics.PluginsRunning.Dec()
	}
}

package config

import (
	"fmt"

	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/types"
)

// Plugin is the common shape config.CheckPluginList needs from either
// flavor of per-plugin configuration, so the pipeline shape validation
// doesn't need to know about process vs. thread plugins.
type Plugin interface {
	PluginType() types.PluginType
	PluginName() string
	SetPluginName(string)
}

func (c PluginProcessConfig) PluginType() types.PluginType { return c.Type }
func (c PluginProcessConfig) PluginName() string           { return c.Name }
func (c *PluginProcessConfig) SetPluginName(name string)    { c.Name = name }

func (c PluginThreadConfig) PluginType() types.PluginType { return c.Type }
func (c PluginThreadConfig) PluginName() string           { return c.Name }
func (c *PluginThreadConfig) SetPluginName(name string)   { c.Name = name }

// SimulatorConfig is the complete configuration for a simulation run
// (spec.md §6), mirroring SimulatorConfiguration in
// dqcsim/src/host/configuration/simulator.rs.
type SimulatorConfig struct {
	Seed int64

	StderrLevel dqlogLevel
	DQCsimLevel dqlogLevel

	Plugins []Plugin
}

// dqlogLevel avoids importing dqlog here just for the type name in the
// struct above while keeping the field's intent obvious; it is the same
// underlying type as dqlog.Level.
type dqlogLevel = int

// CheckPluginList validates and normalizes the plugin list in place,
// mirroring SimulatorConfiguration::check_plugin_list: exactly one
// frontend (moved to index 0 if found elsewhere), exactly one backend
// (moved to the last index), auto-naming of unnamed plugins ("front",
// "op<i>", "back"), and uniqueness of the resulting names.
func (c *SimulatorConfig) CheckPluginList() error {
	frontendIdx := -1
	for i, p := range c.Plugins {
		if p.PluginType() == types.Frontend {
			if frontendIdx != -1 {
				return dqerr.InvalidArgumentf("duplicate frontend")
			}
			frontendIdx = i
		}
	}
	switch frontendIdx {
	case -1:
		return dqerr.InvalidArgumentf("missing frontend")
	case 0:
	default:
		p := c.Plugins[frontendIdx]
		c.Plugins = append(c.Plugins[:frontendIdx], c.Plugins[frontendIdx+1:]...)
		c.Plugins = append([]Plugin{p}, c.Plugins...)
	}

	backendIdx := -1
	for i, p := range c.Plugins {
		if p.PluginType() == types.Backend {
			if backendIdx != -1 {
				return dqerr.InvalidArgumentf("duplicate backend")
			}
			backendIdx = i
		}
	}
	switch backendIdx {
	case -1:
		return dqerr.InvalidArgumentf("missing backend")
	case len(c.Plugins) - 1:
	default:
		p := c.Plugins[backendIdx]
		c.Plugins = append(c.Plugins[:backendIdx], c.Plugins[backendIdx+1:]...)
		c.Plugins = append(c.Plugins, p)
	}

	names := make(map[string]bool, len(c.Plugins))
	for i, p := range c.Plugins {
		if p.PluginName() == "" {
			switch p.PluginType() {
			case types.Frontend:
				p.SetPluginName("front")
			case types.Backend:
				p.SetPluginName("back")
			default:
				p.SetPluginName(fmt.Sprintf("op%d", i))
			}
		}
		if names[p.PluginName()] {
			return dqerr.InvalidArgumentf("duplicate plugin name %q", p.PluginName())
		}
		names[p.PluginName()] = true
	}
	return nil
}

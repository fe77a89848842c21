package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dqcsim/dqcsim/internal/types"
)

func proc(name string, typ types.PluginType) *PluginProcessConfig {
	c := NewPluginProcessConfig(name, typ, "/bin/true")
	return &c
}

func TestCheckPluginListMovesFrontendAndBackendIntoPlace(t *testing.T) {
	cfg := SimulatorConfig{Plugins: []Plugin{
		proc("op", types.Operator),
		proc("back", types.Backend),
		proc("front", types.Frontend),
	}}
	require.NoError(t, cfg.CheckPluginList())
	require.Equal(t, "front", cfg.Plugins[0].PluginName())
	require.Equal(t, types.Frontend, cfg.Plugins[0].PluginType())
	require.Equal(t, types.Backend, cfg.Plugins[len(cfg.Plugins)-1].PluginType())
}

func TestCheckPluginListAutoNamesUnnamedPlugins(t *testing.T) {
	front := proc("", types.Frontend)
	op := proc("", types.Operator)
	back := proc("", types.Backend)
	cfg := SimulatorConfig{Plugins: []Plugin{front, op, back}}
	require.NoError(t, cfg.CheckPluginList())
	require.Equal(t, "front", front.Name)
	require.Equal(t, "op1", op.Name)
	require.Equal(t, "back", back.Name)
}

func TestCheckPluginListRejectsDuplicateFrontend(t *testing.T) {
	cfg := SimulatorConfig{Plugins: []Plugin{
		proc("a", types.Frontend),
		proc("b", types.Frontend),
		proc("c", types.Backend),
	}}
	require.Error(t, cfg.CheckPluginList())
}

func TestCheckPluginListRejectsMissingBackend(t *testing.T) {
	cfg := SimulatorConfig{Plugins: []Plugin{proc("a", types.Frontend)}}
	require.Error(t, cfg.CheckPluginList())
}

func TestCheckPluginListRejectsDuplicateNames(t *testing.T) {
	cfg := SimulatorConfig{Plugins: []Plugin{
		proc("same", types.Frontend),
		proc("same", types.Backend),
	}}
	require.Error(t, cfg.CheckPluginList())
}

package repro

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dqcsim/dqcsim/clihost"
	"github.com/dqcsim/dqcsim/config"
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/types"
)

func sampleConfig() config.SimulatorConfig {
	front := config.NewPluginProcessConfig("front", types.Frontend, "/bin/front")
	back := config.NewPluginProcessConfig("back", types.Backend, "/bin/back")
	return config.SimulatorConfig{Seed: 42, Plugins: []config.Plugin{&front, &back}}
}

func TestNewLoggerCapturesPluginShape(t *testing.T) {
	cfg := sampleConfig()
	r, err := NewLogger(cfg, "host1", "alice", "/work", KeepAsTyped)
	require.NoError(t, err)
	require.Equal(t, int64(42), r.Seed)
	require.Len(t, r.Plugins, 2)
	require.Equal(t, "/bin/front", r.Plugins[0].Executable)
}

func TestRecordAppendsHostCallStrings(t *testing.T) {
	r := &Reproduction{}
	call, err := clihost.ParseCall("wait")
	require.NoError(t, err)
	r.Record(call)
	require.Equal(t, []string{"wait"}, r.HostCalls)
}

func TestToRunRebuildsFrontendAndBackendTypes(t *testing.T) {
	r := &Reproduction{
		Seed: 7,
		Plugins: []PluginEntry{
			{Name: "front", Executable: "/bin/front"},
			{Name: "mid", Executable: "/bin/mid"},
			{Name: "back", Executable: "/bin/back"},
		},
		HostCalls: []string{"start", "wait"},
	}
	var cfg config.SimulatorConfig
	calls, err := r.ToRun(&cfg, true)
	require.NoError(t, err)
	require.Equal(t, int64(7), cfg.Seed)
	require.Len(t, calls, 2)
	require.Equal(t, types.Frontend, cfg.Plugins[0].PluginType())
	require.Equal(t, types.Operator, cfg.Plugins[1].PluginType())
	require.Equal(t, types.Backend, cfg.Plugins[2].PluginType())
}

func TestToRunRejectsFewerThanTwoPlugins(t *testing.T) {
	r := &Reproduction{Plugins: []PluginEntry{{Name: "front"}}}
	var cfg config.SimulatorConfig
	_, err := r.ToRun(&cfg, false)
	require.Error(t, err)
}

func TestFileRoundTrip(t *testing.T) {
	cfg := sampleConfig()
	r, err := NewLogger(cfg, "host1", "alice", "/work", KeepAsTyped)
	require.NoError(t, err)
	cmd, err := arb.NewCmd("iface", "op", arb.Default())
	require.NoError(t, err)
	call, err := clihost.ParseCall("arb:back:" + cmd.String())
	require.NoError(t, err)
	r.Record(call)

	path := filepath.Join(t.TempDir(), "repro.yaml")
	require.NoError(t, r.ToFile(path))

	loaded, err := FromFile(path)
	require.NoError(t, err)
	require.Equal(t, r.Seed, loaded.Seed)
	require.Equal(t, r.HostCalls, loaded.HostCalls)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

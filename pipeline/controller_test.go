package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dqcsim/dqcsim/config"
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/channel"
	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/hostcall"
	"github.com/dqcsim/dqcsim/internal/proto"
	"github.com/dqcsim/dqcsim/internal/types"
	"github.com/dqcsim/dqcsim/plugin"
)

func testLogger() *dqlog.Logger { return dqlog.NewBackend().GetLogger("test") }

// runFakePlugin answers the control RPC protocol generically until it sees
// Abort, standing in for a real plugin process across the full
// spawn/initialize/teardown sequence exercised by these tests.
func runFakePlugin(t *testing.T, ch channel.Channel, upstream string) {
	t.Helper()
	go func() {
		for {
			m, err := ch.Recv()
			if err != nil {
				return
			}
			req, ok := m.(*proto.SimulatorToPlugin)
			if !ok {
				return
			}
			switch {
			case req.Initialize != nil:
				ch.Send(&proto.PluginToSimulator{Initialized: &proto.InitializedResponse{
					Upstream: upstream,
					Metadata: types.NewMetadata("fake", "test", "0.1"),
				}})
			case req.AcceptUpstream:
				ch.Send(&proto.PluginToSimulator{Success: true})
			case req.UserInitialize != nil:
				ch.Send(&proto.PluginToSimulator{Success: true})
			case req.ArbRequest != nil:
				result := req.ArbRequest.Data
				ch.Send(&proto.PluginToSimulator{ArbResponse: &result})
			case req.RunRequest != nil:
				ch.Send(&proto.PluginToSimulator{RunResponse: &proto.RunResponse{Complete: &req.RunRequest.Messages[0]}})
			case req.Abort:
				ch.Send(&proto.PluginToSimulator{Success: true})
				return
			}
		}
	}()
}

func newFakeController(t *testing.T) *Controller {
	t.Helper()
	names := []struct {
		name string
		typ  types.PluginType
	}{
		{"front", types.Frontend},
		{"op0", types.Operator},
		{"back", types.Backend},
	}
	c := &Controller{log: testLogger()}
	for _, n := range names {
		a, b := channel.NewLocalPair()
		runFakePlugin(t, b, "ipc://downstream/"+n.name)
		c.handles = append(c.handles, plugin.NewHandle(n.name, n.typ, a, testLogger()))
	}
	return c
}

func TestInitializeDrivesThreePhaseHandshake(t *testing.T) {
	c := newFakeController(t)
	defer c.teardown()

	cfg := config.SimulatorConfig{Plugins: []config.Plugin{
		func() *config.PluginProcessConfig { p := config.NewPluginProcessConfig("front", types.Frontend, "x"); return &p }(),
		func() *config.PluginProcessConfig { p := config.NewPluginProcessConfig("op0", types.Operator, "x"); return &p }(),
		func() *config.PluginProcessConfig { p := config.NewPluginProcessConfig("back", types.Backend, "x"); return &p }(),
	}}
	require.NoError(t, c.initialize(cfg))
	require.Equal(t, "fake", c.handles[0].Metadata.Name)
}

func TestResolveByNameAndSignedIndex(t *testing.T) {
	c := newFakeController(t)
	defer c.teardown()

	idx, err := c.resolve("op0")
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	idx, err = c.resolve("-1")
	require.NoError(t, err)
	require.Equal(t, 2, idx)

	idx, err = c.resolve("0")
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	_, err = c.resolve("nope")
	require.Error(t, err)

	_, err = c.resolve("-99")
	require.Error(t, err)
}

func TestArbRoutesToResolvedPlugin(t *testing.T) {
	c := newFakeController(t)
	defer c.teardown()
	c.engine = hostcall.NewEngine(c.handles[0])

	cmd, err := arb.NewCmd("iface", "op", arb.Default())
	require.NoError(t, err)
	_, err = c.Arb("back", cmd)
	require.NoError(t, err)
}

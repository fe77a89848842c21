package plugin

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/channel"
	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/proto"
	"github.com/dqcsim/dqcsim/internal/types"
)

func testLogger() *dqlog.Logger {
	return dqlog.NewBackend().GetLogger("test")
}

// fakePlugin answers one SimulatorToPlugin request with a scripted reply,
// standing in for a real plugin subprocess on the other end of the control
// channel.
func fakePlugin(t *testing.T, ch channel.Channel, reply proto.PluginToSimulator) {
	t.Helper()
	go func() {
		_, err := ch.Recv()
		if err != nil {
			return
		}
		ch.Send(&reply)
	}()
}

func TestHandleInitializeRoundTrip(t *testing.T) {
	a, b := channel.NewLocalPair()
	h := NewHandle("backend", types.Backend, a, testLogger())
	fakePlugin(t, b, proto.PluginToSimulator{Initialized: &proto.InitializedResponse{
		Metadata: types.NewMetadata("test-backend", "someone", "1.0"),
	}})

	resp, err := h.Initialize(proto.InitializeRequest{PluginType: types.Backend, Seed: 42})
	require.NoError(t, err)
	require.Equal(t, "test-backend", resp.Metadata.Name)
	require.Equal(t, "test-backend", h.Metadata.Name)
}

func TestHandleInitializeFailure(t *testing.T) {
	a, b := channel.NewLocalPair()
	h := NewHandle("backend", types.Backend, a, testLogger())
	fakePlugin(t, b, proto.PluginToSimulator{Failure: "boom"})

	_, err := h.Initialize(proto.InitializeRequest{})
	require.Error(t, err)
}

func TestHandleArbRoundTrip(t *testing.T) {
	a, b := channel.NewLocalPair()
	h := NewHandle("op", types.Operator, a, testLogger())
	result := arb.Default()
	result.SetJSONString(`{"ok":true}`)
	fakePlugin(t, b, proto.PluginToSimulator{ArbResponse: &result})

	cmd, err := arb.NewCmd("iface", "op", arb.Default())
	require.NoError(t, err)
	resp, err := h.Arb(cmd)
	require.NoError(t, err)
	js, _ := resp.JSONString()
	require.JSONEq(t, `{"ok":true}`, js)
}

func TestFacadeBackendCannotForward(t *testing.T) {
	f := NewFacade(types.Backend, 1, testLogger(), nil)
	_, err := f.Allocate(1, arb.Default())
	require.Error(t, err)
}

func TestFacadeOnlyFrontendSendsAndRecvs(t *testing.T) {
	f := NewFacade(types.Operator, 1, testLogger(), nil)
	err := f.Send(arb.Default())
	require.Error(t, err)
	_, err = f.Recv()
	require.Error(t, err)
}

func TestFacadeSendRecvRequiresRunning(t *testing.T) {
	f := NewFacade(types.Frontend, 1, testLogger(), nil)
	err := f.Send(arb.Default())
	require.Error(t, err)

	start := arb.Default()
	start.SetJSONString(`{"n":1}`)
	f.BeginRun(&start, nil)
	got, err := f.Recv()
	require.NoError(t, err)
	js, _ := got.JSONString()
	require.JSONEq(t, `{"n":1}`, js)

	require.NoError(t, f.Send(arb.Default()))
	out := f.EndRun()
	require.Len(t, out, 1)

	_, err = f.Recv()
	require.Error(t, err)
}

func TestFacadeRandomStreamsAreDeterministicPerSeed(t *testing.T) {
	f1 := NewFacade(types.Frontend, 7, testLogger(), nil)
	f2 := NewFacade(types.Frontend, 7, testLogger(), nil)
	require.Equal(t, f1.RandomU64(), f2.RandomU64())
	require.Equal(t, f1.RandomF64(), f2.RandomF64())
}

package proto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/types"
)

func TestGatestreamDownCBORRoundTrip(t *testing.T) {
	enc, err := NewEncMode()
	require.NoError(t, err)
	dec, err := NewDecMode()
	require.NoError(t, err)

	g, err := types.NewMeasurement([]types.QubitRef{1, 2})
	require.NoError(t, err)
	msg := GatestreamDown{Seq: 5, Gate: &g}

	var buf bytes.Buffer
	require.NoError(t, enc.NewEncoder(&buf).Encode(msg))

	var out GatestreamDown
	require.NoError(t, dec.NewDecoder(&buf).Decode(&out))
	require.Equal(t, msg.Seq, out.Seq)
	require.Equal(t, msg.Gate.Measures, out.Gate.Measures)
}

func TestSimulatorToPluginCBORRoundTrip(t *testing.T) {
	enc, err := NewEncMode()
	require.NoError(t, err)
	dec, err := NewDecMode()
	require.NoError(t, err)

	cmd, err := arb.NewCmd("my", "op", arb.Default())
	require.NoError(t, err)
	msg := SimulatorToPlugin{ArbRequest: &cmd}

	var buf bytes.Buffer
	require.NoError(t, enc.NewEncoder(&buf).Encode(msg))

	var out SimulatorToPlugin
	require.NoError(t, dec.NewDecoder(&buf).Decode(&out))
	require.NotNil(t, out.ArbRequest)
	require.Equal(t, "my", out.ArbRequest.Interface)
}

func TestPluginToSimulatorIsFailure(t *testing.T) {
	p := PluginToSimulator{Failure: "boom"}
	msg, isFail := p.IsFailure()
	require.True(t, isFail)
	require.Equal(t, "boom", msg)

	p2 := PluginToSimulator{Success: true}
	_, isFail2 := p2.IsFailure()
	require.False(t, isFail2)
}

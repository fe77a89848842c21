package gatestream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/channel"
	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/types"
)

func testLogger() *dqlog.Logger {
	b := dqlog.NewBackend()
	return b.GetLogger("test")
}

// recordingHandler executes requests against an in-memory qubit register
// just large enough for the pairing/ordering properties under test.
type recordingHandler struct {
	measureValue types.MeasurementValue
}

func (h *recordingHandler) Allocate(count int, data arb.Data) error { return nil }
func (h *recordingHandler) Free(qubits []types.QubitRef) error      { return nil }

func (h *recordingHandler) Gate(g types.Gate) ([]types.MeasurementResult, error) {
	if len(g.Measures) == 0 {
		return nil, nil
	}
	results := make([]types.MeasurementResult, len(g.Measures))
	for i, q := range g.Measures {
		results[i] = types.MeasurementResult{Qubit: q, Value: h.measureValue, Data: arb.Default()}
	}
	return results, nil
}

func (h *recordingHandler) Advance(cycles uint64) error { return nil }

func (h *recordingHandler) Arb(cmd arb.Cmd) (arb.Data, error) {
	d := arb.Default()
	d.SetJSONString(`{"echoed":true}`)
	return d, nil
}

func newTestEdge(t *testing.T, handler Handler) (*Edge, *Receiver) {
	t.Helper()
	a, b := channel.NewLocalPair()
	edge := NewEdge(a, testLogger())
	recv := NewReceiver(b, handler, testLogger())
	go recv.Serve()
	t.Cleanup(func() { edge.Close() })
	return edge, recv
}

func TestAllocateAssignsLocallyWithoutBlocking(t *testing.T) {
	edge, _ := newTestEdge(t, &recordingHandler{})
	refs, err := edge.Allocate(2, arb.Default())
	require.NoError(t, err)
	require.Equal(t, []types.QubitRef{1, 2}, refs)
}

func TestGateAndGetMeasurementPairing(t *testing.T) {
	edge, _ := newTestEdge(t, &recordingHandler{measureValue: types.One})
	refs, err := edge.Allocate(1, arb.Default())
	require.NoError(t, err)

	g, err := types.NewMeasurement(refs)
	require.NoError(t, err)
	require.NoError(t, edge.Gate(g))

	v, err := edge.GetMeasurement(refs[0])
	require.NoError(t, err)
	require.Equal(t, types.One, v)
}

func TestGetMeasurementDeadlocksWithNothingOutstanding(t *testing.T) {
	edge, _ := newTestEdge(t, &recordingHandler{})
	_, err := edge.GetMeasurement(types.QubitRef(1))
	require.Error(t, err)
}

// TestGetMeasurementDeadlocksDespiteUnrelatedPendingRequest pins down that a
// pending request measuring some other qubit must not keep GetMeasurement
// waiting: only a pending gate that actually measures the queried qubit is
// grounds to wait.
func TestGetMeasurementDeadlocksDespiteUnrelatedPendingRequest(t *testing.T) {
	edge, _ := newTestEdge(t, &recordingHandler{})
	refs, err := edge.Allocate(2, arb.Default())
	require.NoError(t, err)

	edge.mu.Lock()
	edge.pending[999] = []types.QubitRef{refs[1]}
	edge.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := edge.GetMeasurement(refs[0])
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("GetMeasurement blocked on a request that doesn't measure the queried qubit")
	}
}

func TestArbRoundTrip(t *testing.T) {
	edge, _ := newTestEdge(t, &recordingHandler{})
	cmd, err := arb.NewCmd("my", "op", arb.Default())
	require.NoError(t, err)
	result, err := edge.Arb(cmd)
	require.NoError(t, err)
	js, err := result.JSONString()
	require.NoError(t, err)
	require.JSONEq(t, `{"echoed":true}`, js)
}

func TestAdvanceTracksCycleLocally(t *testing.T) {
	edge, _ := newTestEdge(t, &recordingHandler{})
	require.NoError(t, edge.Advance(3))
	require.NoError(t, edge.Advance(4))
	edge.mu.Lock()
	cycle := edge.cycle
	edge.mu.Unlock()
	require.Equal(t, uint64(7), cycle)
}

func TestCyclesSinceAndBetweenMeasure(t *testing.T) {
	edge, _ := newTestEdge(t, &recordingHandler{measureValue: types.Zero})
	refs, err := edge.Allocate(1, arb.Default())
	require.NoError(t, err)
	g, err := types.NewMeasurement(refs)
	require.NoError(t, err)

	require.NoError(t, edge.Gate(g))
	_, err = edge.GetMeasurement(refs[0])
	require.NoError(t, err)

	require.NoError(t, edge.Advance(2))
	require.NoError(t, edge.Gate(g))
	// Allow the second measurement to land before reading state.
	require.Eventually(t, func() bool {
		edge.mu.Lock()
		defer edge.mu.Unlock()
		return edge.measurements[refs[0]].PreviousHasValue
	}, time.Second, time.Millisecond)

	since, err := edge.CyclesSinceMeasure(refs[0])
	require.NoError(t, err)
	require.Equal(t, uint64(0), since)

	between, err := edge.CyclesBetweenMeasures(refs[0])
	require.NoError(t, err)
	require.Equal(t, uint64(2), between)
}

package gatestream

import (
	"sync"

	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/channel"
	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/metrics"
	"github.com/dqcsim/dqcsim/internal/proto"
	"github.com/dqcsim/dqcsim/internal/types"
)

// Edge is the downstream-sending half of a gatestream connection. Allocate,
// Free, Gate, and Advance are fire-and-forget: they assign a sequence
// number, hand the request to the channel's unbounded outbound queue, and
// return without waiting for the peer to execute it, which is the
// pipelining spec.md §4.E describes. Arb blocks, since its result can only
// be known once the peer has actually run it. GetMeasurement blocks until
// either a result for the qubit has arrived or no outstanding gate that
// measures it remains (the deadlock rule).
type Edge struct {
	ch  channel.Channel
	log *dqlog.Logger

	qubits *types.QubitRefGenerator

	mu   sync.Mutex
	cond *sync.Cond
	// pending maps each unacknowledged request's sequence number to the
	// qubits it measures (nil for anything but a Gate with a non-empty
	// Measures set), so GetMeasurement can tell which in-flight requests it
	// actually needs to wait on.
	pending      map[types.SequenceNumber][]types.QubitRef
	measurements map[types.QubitRef]*types.MeasurementState
	cycle        uint64
	seq          *types.SequenceNumberGenerator
	closed       bool
	closeErr     error

	arbMu      sync.Mutex
	arbWaiters map[types.SequenceNumber]chan arbReply
}

type arbReply struct {
	data arb.Data
	err  error
}

// NewEdge wraps ch (expected to yield *proto.GatestreamUp from Recv) as a
// sending Edge and starts its background reader.
func NewEdge(ch channel.Channel, log *dqlog.Logger) *Edge {
	e := &Edge{
		ch:           ch,
		log:          log,
		qubits:       types.NewQubitRefGenerator(),
		pending:      make(map[types.SequenceNumber][]types.QubitRef),
		measurements: make(map[types.QubitRef]*types.MeasurementState),
		seq:          types.NewSequenceNumberGenerator(),
		arbWaiters:   make(map[types.SequenceNumber]chan arbReply),
	}
	e.cond = sync.NewCond(&e.mu)
	go e.readLoop()
	return e
}

// Allocate assigns count fresh qubit references locally and pipelines an
// Allocate request downstream; the peer is expected to derive the same
// references by counting allocations in arrival order, so no round trip is
// needed before the caller can use them in subsequent gates.
func (e *Edge) Allocate(count int, data arb.Data) ([]types.QubitRef, error) {
	refs := e.qubits.Allocate(count)
	if err := e.send(proto.GatestreamDown{Allocate: &proto.AllocateRequest{Count: count, Data: data}}, nil); err != nil {
		return nil, err
	}
	metrics.RecordGatestreamSent("allocate")
	return refs, nil
}

// Free pipelines a Free request for qubits, which may never be reused by
// this edge's generator once freed.
func (e *Edge) Free(qubits []types.QubitRef) error {
	e.qubits.Free(qubits)
	if err := e.send(proto.GatestreamDown{Free: qubits}, nil); err != nil {
		return err
	}
	metrics.RecordGatestreamSent("free")
	return nil
}

// Gate pipelines g downstream. Measurement results, if any, must be
// retrieved later via GetMeasurement.
func (e *Edge) Gate(g types.Gate) error {
	gate := g
	if err := e.send(proto.GatestreamDown{Gate: &gate}, g.Measures); err != nil {
		return err
	}
	metrics.RecordGatestreamSent("gate")
	return nil
}

// Advance pipelines an Advance(cycles) request and bumps the locally
// tracked cycle counter immediately: the logical cycle count is just a
// running total of requested advances, so it doesn't need to wait for the
// peer's acknowledgement to be authoritative.
func (e *Edge) Advance(cycles uint64) error {
	if err := e.send(proto.GatestreamDown{Advance: &cycles}, nil); err != nil {
		return err
	}
	metrics.RecordGatestreamSent("advance")
	e.mu.Lock()
	e.cycle += cycles
	e.mu.Unlock()
	return nil
}

// Arb pipelines an Arb request and blocks for its result, since an
// implementation-defined command's return value can't be known until the
// peer runs it.
func (e *Edge) Arb(cmd arb.Cmd) (arb.Data, error) {
	seq := e.seq.Next()
	reply := make(chan arbReply, 1)
	e.arbMu.Lock()
	e.arbWaiters[seq] = reply
	e.arbMu.Unlock()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return arb.Data{}, e.closeErr
	}
	e.pending[seq] = nil
	e.mu.Unlock()

	cmdCopy := cmd
	msg := proto.GatestreamDown{Seq: seq, Arb: &cmdCopy}
	if err := e.ch.Send(&msg); err != nil {
		e.arbMu.Lock()
		delete(e.arbWaiters, seq)
		e.arbMu.Unlock()
		return arb.Data{}, dqerr.Wrap(dqerr.Channel, err, "sending arb request")
	}
	metrics.RecordGatestreamSent("arb")

	r := <-reply
	return r.data, r.err
}

// GetMeasurement blocks until qubit has a recorded measurement result or
// returns a deadlock error once no outstanding gate that measures qubit
// remains (spec.md §4.E's measurement visibility rule) — an unrelated
// pending request for some other qubit is not a reason to keep waiting.
func (e *Edge) GetMeasurement(qubit types.QubitRef) (types.MeasurementValue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for {
		if ms, ok := e.measurements[qubit]; ok && ms.HasResult {
			return ms.Value, nil
		}
		if e.closed {
			if e.closeErr != nil {
				return types.Undefined, e.closeErr
			}
			return types.Undefined, dqerr.Deadlockf("edge closed while waiting for a measurement of %s", qubit)
		}
		if !e.pendingMeasures(qubit) {
			return types.Undefined, dqerr.Deadlockf("no measurement available for %s and no outstanding gate measures it", qubit)
		}
		e.cond.Wait()
	}
}

// pendingMeasures reports whether any unacknowledged request measures
// qubit. Callers must hold e.mu.
func (e *Edge) pendingMeasures(qubit types.QubitRef) bool {
	for _, measures := range e.pending {
		for _, q := range measures {
			if q == qubit {
				return true
			}
		}
	}
	return false
}

// CyclesSinceMeasure returns how many cycles have elapsed since qubit was
// last measured (spec.md §4.G's get_cycles_since_measure).
func (e *Edge) CyclesSinceMeasure(qubit types.QubitRef) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms, ok := e.measurements[qubit]
	if !ok || !ms.HasResult {
		return 0, dqerr.InvalidOperationf("%s has never been measured", qubit)
	}
	return e.cycle - ms.MeasuredCycle, nil
}

// CyclesBetweenMeasures returns the number of cycles between qubit's two
// most recent measurements (spec.md §4.G's get_cycles_between_measures).
func (e *Edge) CyclesBetweenMeasures(qubit types.QubitRef) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ms, ok := e.measurements[qubit]
	if !ok || !ms.HasResult || !ms.PreviousHasValue {
		return 0, dqerr.InvalidOperationf("%s has not been measured twice", qubit)
	}
	return ms.MeasuredCycle - ms.PreviousCycle, nil
}

// Close closes the edge's channel and marks the edge closed. Any call
// blocked in GetMeasurement or Arb returns an error. The background reader
// exits once its Recv fails; on a process-local channel that happens only
// when the peer closes its end as well.
func (e *Edge) Close() error {
	err := e.ch.Close()
	e.mu.Lock()
	e.closed = true
	if e.closeErr == nil {
		e.closeErr = dqerr.New(dqerr.Channel, "edge closed")
	}
	closeErr := e.closeErr
	e.cond.Broadcast()
	e.mu.Unlock()

	e.arbMu.Lock()
	for seq, ch := range e.arbWaiters {
		ch <- arbReply{err: closeErr}
		delete(e.arbWaiters, seq)
	}
	e.arbMu.Unlock()
	return err
}

func (e *Edge) send(msg proto.GatestreamDown, measures []types.QubitRef) error {
	seq := e.seq.Next()
	msg.Seq = seq

	e.mu.Lock()
	if e.closed {
		err := e.closeErr
		e.mu.Unlock()
		return err
	}
	e.pending[seq] = measures
	e.mu.Unlock()

	if err := e.ch.Send(&msg); err != nil {
		return dqerr.Wrap(dqerr.Channel, err, "sending gatestream request")
	}
	return nil
}

func (e *Edge) readLoop() {
	for {
		m, err := e.ch.Recv()
		if err != nil {
			e.fail(dqerr.Wrap(dqerr.Channel, err, "gatestream reader"))
			return
		}
		up, ok := m.(*proto.GatestreamUp)
		if !ok {
			e.fail(dqerr.New(dqerr.Channel, "unexpected gatestream message type %T", m))
			return
		}
		e.handleUp(up)
	}
}

func (e *Edge) handleUp(up *proto.GatestreamUp) {
	if up.IsMeasured() {
		e.mu.Lock()
		for _, r := range up.Measured {
			ms := e.measurements[r.Qubit]
			if ms == nil {
				ms = &types.MeasurementState{}
				e.measurements[r.Qubit] = ms
			}
			ms.Observe(r.Value, e.cycle)
		}
		e.cond.Broadcast()
		e.mu.Unlock()
	}

	if up.ArbSuccess != nil || up.ArbFailure != "" {
		e.arbMu.Lock()
		if ch, ok := e.arbWaiters[up.Ack]; ok {
			delete(e.arbWaiters, up.Ack)
			if up.ArbFailure != "" {
				ch <- arbReply{err: dqerr.WrapPlugin("", up.ArbFailure)}
			} else {
				ch <- arbReply{data: *up.ArbSuccess}
			}
		}
		e.arbMu.Unlock()
	}

	e.mu.Lock()
	acked := 0
	for s := range e.pending {
		if up.Ack.Acknowledges(s) {
			delete(e.pending, s)
			acked++
		}
	}
	e.cond.Broadcast()
	e.mu.Unlock()
	metrics.RecordGatestreamAcked(acked)

	if up.Failure != "" {
		e.log.Warningf("downstream reported failure: %s", up.Failure)
	}
}

func (e *Edge) fail(err error) {
	e.mu.Lock()
	e.closed = true
	e.closeErr = err
	e.cond.Broadcast()
	e.mu.Unlock()

	e.arbMu.Lock()
	for seq, ch := range e.arbWaiters {
		ch <- arbReply{err: err}
		delete(e.arbWaiters, seq)
	}
	e.arbMu.Unlock()
}

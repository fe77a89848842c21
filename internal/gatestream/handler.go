// Package gatestream implements the gatestream protocol of spec.md §4.E: a
// pipelined, sequence-numbered downstream request stream (allocate/free/
// gate/advance/arb) with cumulative-acknowledgement upstream replies,
// measurement result delivery, and deadlock detection when a caller blocks
// on a measurement nothing in flight can still produce.
//
// The pipelining and acknowledgement bookkeeping (a mutex-guarded map of
// outstanding requests, drained by a background reader goroutine that wakes
// blocked callers) is grounded on client2/arq.go's ARQ: there, the map
// tracks packets awaiting a SURB-routed acknowledgement before
// retransmission; here, it tracks gatestream requests awaiting the
// acknowledgement that retires them. The upstream Ack field is a cumulative
// watermark (types.SequenceNumber.Acknowledges), so one reply can retire
// several outstanding requests at once instead of one ack per request.
package gatestream

import (
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/types"
)

// Handler executes downstream gatestream requests for whichever plugin role
// owns this edge's receiving side (an operator forwarding to its own
// downstream edge, or a backend executing against a physical/simulated
// register). Implementations run on the single goroutine Receiver.Serve
// drives and must not block waiting on anything but their own downstream
// work.
type Handler interface {
	Allocate(count int, data arb.Data) error
	Free(qubits []types.QubitRef) error
	// Gate executes g and returns the measurement results produced by any
	// of g's Measures qubits, in qubit order.
	Gate(g types.Gate) ([]types.MeasurementResult, error)
	Advance(cycles uint64) error
	Arb(cmd arb.Cmd) (arb.Data, error)
}

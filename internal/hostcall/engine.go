// Package hostcall implements the host-call engine of spec.md §4.F: the
// host-side half of the asynchronous start/send/recv/wait/yield protocol a
// simulator uses to drive a frontend plugin's accelerator program. Grounded
// on dqcsim/src/host/simulation.rs's Simulation.{start,wait,send,recv,
// yield_to_frontend} (original_source), which documents start/send as
// asynchronous — queued locally, flushed to the plugin only when yield,
// recv, or wait actually needs the plugin to make progress — and wait/recv
// as the two operations that must detect when the plugin can never satisfy
// them.
package hostcall

import (
	"sync"

	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/metrics"
	"github.com/dqcsim/dqcsim/internal/proto"
)

// RunState is the frontend accelerator program's lifecycle state.
type RunState int

const (
	// NotStarted: no program has been handed to Start yet.
	NotStarted RunState = iota
	// Running: a program has started and has not yet completed.
	Running
	// Complete: the program's run() callback has returned a result.
	Complete
)

func (s RunState) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Transport performs one RunRequest/RunResponse round trip against the
// frontend plugin, i.e. one turn of its run() coroutine.
type Transport interface {
	RunRequest(req proto.RunRequest) (proto.RunResponse, error)
}

// Engine is the program/to_accel_queue/from_accel_queue/run_state state
// machine described in spec.md §4.F. It is not safe for concurrent calls
// from more than one goroutine at a time beyond the locking Engine does
// itself; the pipeline controller is the only intended caller, and it
// drives the engine from whichever goroutine is servicing a host API call.
type Engine struct {
	mu        sync.Mutex
	transport Transport

	state        RunState
	pendingStart *arb.Data
	toAccel      []arb.Data
	fromAccel    []arb.Data
	result       *arb.Data
}

// NewEngine constructs an Engine bound to transport.
func NewEngine(transport Transport) *Engine {
	return &Engine{transport: transport}
}

// State returns the engine's current run state.
func (e *Engine) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Start begins an accelerator program. Asynchronous: the RunRequest isn't
// sent until the next Yield, Recv, or Wait needs it to be.
func (e *Engine) Start(args arb.Data) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != NotStarted {
		return dqerr.InvalidOperationf("a program has already been started on this accelerator")
	}
	cp := args
	e.pendingStart = &cp
	e.state = Running
	return nil
}

// Send queues a message for the accelerator. Asynchronous, like Start.
func (e *Engine) Send(args arb.Data) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != Running {
		return dqerr.InvalidOperationf("must start the accelerator before sending to it")
	}
	e.toAccel = append(e.toAccel, args)
	return nil
}

// Yield gives the accelerator a chance to run further. It silently does
// nothing if there is no pending start/send data to flush, matching
// simulation.rs's documented behavior.
func (e *Engine) Yield() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flush(false)
}

// Recv waits for the accelerator to send a message, flushing pending
// start/send data as needed. Returns a Deadlock error if the program
// completes, or stops making progress, without ever sending one.
func (e *Engine) Recv() (arb.Data, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == NotStarted {
		return arb.Data{}, dqerr.InvalidOperationf("the accelerator has not been started")
	}
	if d, ok := e.pop(); ok {
		return d, nil
	}
	if err := e.flush(true); err != nil {
		return arb.Data{}, err
	}
	if d, ok := e.pop(); ok {
		return d, nil
	}
	if e.state == Complete {
		return arb.Data{}, dqerr.Deadlockf("accelerator program completed without sending the expected message")
	}
	return arb.Data{}, dqerr.Deadlockf("accelerator is blocked waiting for data that will never be sent")
}

// Wait blocks until the accelerator program completes and returns its
// result. Returns a Deadlock error if the program stops making progress
// without completing.
func (e *Engine) Wait() (arb.Data, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == NotStarted {
		return arb.Data{}, dqerr.InvalidOperationf("the accelerator has not been started")
	}
	for e.state != Complete {
		pending := len(e.fromAccel)
		if err := e.flush(true); err != nil {
			return arb.Data{}, err
		}
		if e.state != Complete && len(e.fromAccel) == pending {
			return arb.Data{}, dqerr.Deadlockf("accelerator deadlocked before completing its program")
		}
	}
	return *e.result, nil
}

// flush performs one RunRequest/RunResponse round trip if there is anything
// new to send, or unconditionally when force is true (Recv/Wait need to
// know whether the plugin has more to say even with nothing new queued).
func (e *Engine) flush(force bool) error {
	if e.state != Running {
		return nil
	}
	if !force && e.pendingStart == nil && len(e.toAccel) == 0 {
		return nil
	}
	req := proto.RunRequest{Start: e.pendingStart, Messages: e.toAccel}
	e.pendingStart = nil
	e.toAccel = nil

	resp, err := e.transport.RunRequest(req)
	metrics.RecordHostCallRunRequest()
	if err != nil {
		return err
	}
	e.fromAccel = append(e.fromAccel, resp.Messages...)
	if resp.Complete != nil {
		e.result = resp.Complete
		e.state = Complete
	}
	return nil
}

func (e *Engine) pop() (arb.Data, bool) {
	if len(e.fromAccel) == 0 {
		return arb.Data{}, false
	}
	d := e.fromAccel[0]
	e.fromAccel = e.fromAccel[1:]
	return d, true
}

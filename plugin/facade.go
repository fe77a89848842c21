package plugin

import (
	"math/rand"

	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/arb"
	"github.com/dqcsim/dqcsim/internal/dqlog"
	"github.com/dqcsim/dqcsim/internal/gatestream"
	"github.com/dqcsim/dqcsim/internal/types"
)

// Facade is the plugin-side state a plugin implementation is given (spec.md
// §4.G): logging, two independent PRNG streams (one seeded for reproducible
// functional behavior, one unseeded for incidental randomness that must
// never affect reproduction), and, for frontends and operators, the
// downstream gatestream Edge used to submit gates. It enforces the same
// role restrictions the original's plugin definitions document: a backend
// has no downstream edge to forward to, and send/recv are only meaningful
// while a run() step is executing.
type Facade struct {
	pluginType types.PluginType
	log        *dqlog.Logger

	functional    *rand.Rand
	nonFunctional *rand.Rand

	// Gates is the downstream edge used to Allocate/Free/Gate/Advance/Arb.
	// nil for backends, which execute gates instead of forwarding them.
	Gates *gatestream.Edge

	inRun    bool
	outgoing []arb.Data
	incoming []arb.Data
}

// NewFacade constructs a Facade for a plugin of the given type and seed.
// gates is the downstream edge (nil for backends).
func NewFacade(pluginType types.PluginType, seed uint64, log *dqlog.Logger, gates *gatestream.Edge) *Facade {
	return &Facade{
		pluginType:    pluginType,
		log:           log,
		functional:    rand.New(rand.NewSource(int64(seed))),
		nonFunctional: rand.New(rand.NewSource(rand.Int63())),
		Gates:         gates,
	}
}

// Log emits a log record at the given level through this plugin's logger.
func (f *Facade) Log(level dqlog.Level, msg string) { f.log.Log(level, msg) }

// RandomU64 draws from the seeded, reproducible PRNG stream.
func (f *Facade) RandomU64() uint64 { return f.functional.Uint64() }

// RandomF64 draws a float in [0, 1) from the seeded, reproducible PRNG
// stream.
func (f *Facade) RandomF64() float64 { return f.functional.Float64() }

// RandomNonFunctionalU64 draws from the unseeded stream, for randomness
// (e.g. simulated timing jitter) that must not participate in reproduction.
func (f *Facade) RandomNonFunctionalU64() uint64 { return f.nonFunctional.Uint64() }

func (f *Facade) requireForwarding() error {
	if f.pluginType == types.Backend {
		return dqerr.InvalidOperationf("a backend has no downstream to forward gates to")
	}
	if f.Gates == nil {
		return dqerr.InvalidOperationf("this plugin's downstream edge is not connected")
	}
	return nil
}

// Allocate forwards an Allocate request downstream.
func (f *Facade) Allocate(count int, data arb.Data) ([]types.QubitRef, error) {
	if err := f.requireForwarding(); err != nil {
		return nil, err
	}
	return f.Gates.Allocate(count, data)
}

// Free forwards a Free request downstream.
func (f *Facade) Free(qubits []types.QubitRef) error {
	if err := f.requireForwarding(); err != nil {
		return err
	}
	return f.Gates.Free(qubits)
}

// Gate forwards a gate downstream.
func (f *Facade) Gate(g types.Gate) error {
	if err := f.requireForwarding(); err != nil {
		return err
	}
	return f.Gates.Gate(g)
}

// Advance forwards an Advance request downstream.
func (f *Facade) Advance(cycles uint64) error {
	if err := f.requireForwarding(); err != nil {
		return err
	}
	return f.Gates.Advance(cycles)
}

// Arb forwards an ArbCmd downstream and returns its result.
func (f *Facade) Arb(cmd arb.Cmd) (arb.Data, error) {
	if err := f.requireForwarding(); err != nil {
		return arb.Data{}, err
	}
	return f.Gates.Arb(cmd)
}

// GetMeasurement retrieves qubit's measurement result, blocking until
// downstream produces one or a deadlock is detected.
func (f *Facade) GetMeasurement(qubit types.QubitRef) (types.MeasurementValue, error) {
	if err := f.requireForwarding(); err != nil {
		return types.Undefined, err
	}
	return f.Gates.GetMeasurement(qubit)
}

// GetCyclesSinceMeasure returns cycles elapsed since qubit's last
// measurement.
func (f *Facade) GetCyclesSinceMeasure(qubit types.QubitRef) (uint64, error) {
	if err := f.requireForwarding(); err != nil {
		return 0, err
	}
	return f.Gates.CyclesSinceMeasure(qubit)
}

// GetCyclesBetweenMeasures returns the cycle gap between qubit's two most
// recent measurements.
func (f *Facade) GetCyclesBetweenMeasures(qubit types.QubitRef) (uint64, error) {
	if err := f.requireForwarding(); err != nil {
		return 0, err
	}
	return f.Gates.CyclesBetweenMeasures(qubit)
}

// BeginRun marks the facade as executing inside a run() step, enabling
// Send/Recv, and seeds the incoming queue from the host's RunRequest.
//
// Simplification: spec.md §4.F keeps start's argument in its own program
// slot, separate from to_accel_queue (which only send() populates); this
// facade prepends start into the same queue Recv drains instead of
// exposing it through a distinct run() parameter. No production code path
// drives a run() callback through this facade (that's a specific plugin
// implementation, an explicit Non-goal per spec.md §1) — only tests
// (plugin_test.go, pipeline/integration_test.go) call BeginRun/EndRun — so the two queues have never needed
// to be kept apart.
func (f *Facade) BeginRun(start *arb.Data, messages []arb.Data) {
	f.inRun = true
	f.incoming = append([]arb.Data(nil), messages...)
	if start != nil {
		f.incoming = append([]arb.Data{*start}, f.incoming...)
	}
	f.outgoing = nil
}

// EndRun returns the messages queued via Send since the matching BeginRun
// and leaves send/recv.
func (f *Facade) EndRun() []arb.Data {
	f.inRun = false
	out := f.outgoing
	f.outgoing = nil
	return out
}

// Send queues a message to the host. Valid only for a frontend while a
// run() step is executing.
func (f *Facade) Send(data arb.Data) error {
	if f.pluginType != types.Frontend {
		return dqerr.InvalidOperationf("only a frontend may send to the host")
	}
	if !f.inRun {
		return dqerr.InvalidOperationf("send is only valid while run() is executing")
	}
	f.outgoing = append(f.outgoing, data)
	return nil
}

// Recv dequeues a message from the host. Valid only for a frontend while a
// run() step is executing; a step with no buffered message available
// indicates the run() callback must return control to the host (the
// cooperative-scheduler boundary) rather than block.
func (f *Facade) Recv() (arb.Data, error) {
	if f.pluginType != types.Frontend {
		return arb.Data{}, dqerr.InvalidOperationf("only a frontend may receive from the host")
	}
	if !f.inRun {
		return arb.Data{}, dqerr.InvalidOperationf("recv is only valid while run() is executing")
	}
	if len(f.incoming) == 0 {
		return arb.Data{}, dqerr.Deadlockf("no host message buffered for this run() step")
	}
	d := f.incoming[0]
	f.incoming = f.incoming[1:]
	return d, nil
}

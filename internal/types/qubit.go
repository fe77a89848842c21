// Package types holds the DQCsim data model value types of spec.md §3 that
// are not ArbData/ArbCmd (those live in internal/arb): QubitRef,
// SequenceNumber, PluginMetadata, PluginType, Matrix, Gate and measurement
// results. Grounded directly on the original source's
// dqcsim/src/common/types/*.rs.
package types

import "fmt"

// QubitRef is a non-zero qubit reference (spec.md §3). The zero value is
// reserved for "absent" at interfaces where that distinction matters,
// mirroring qubit_ref.rs's QubitRef(u64) newtype with 0 excluded.
type QubitRef uint64

// Valid reports whether q is a non-null reference.
func (q QubitRef) Valid() bool { return q != 0 }

func (q QubitRef) String() string { return fmt.Sprintf("%d", uint64(q)) }

// QubitRefGenerator allocates qubit references monotonically starting at 1,
// never reusing a reference even after it is freed (spec.md §9 Open
// Question, resolved: no reuse — mirrors qubit_ref.rs's QubitRefGenerator,
// whose Free is a documented no-op).
type QubitRefGenerator struct {
	next uint64
}

// NewQubitRefGenerator constructs a generator with the first reference
// equal to 1.
func NewQubitRefGenerator() *QubitRefGenerator {
	return &QubitRefGenerator{next: 1}
}

// Allocate returns n freshly allocated qubit references.
func (g *QubitRefGenerator) Allocate(n int) []QubitRef {
	out := make([]QubitRef, n)
	for i := range out {
		out[i] = QubitRef(g.next)
		g.next++
	}
	return out
}

// Free is intentionally a no-op: freed qubit references are never reused.
func (g *QubitRefGenerator) Free(qubits []QubitRef) {}

package types

import (
	"github.com/dqcsim/dqcsim/dqerr"
	"github.com/dqcsim/dqcsim/internal/arb"
)

// Gate is the tagged union of spec.md §3: a unitary, a measurement, or a
// custom gate, each carrying an ArbData payload. Grounded directly on
// dqcsim/src/common/types/gate.rs's Gate struct and its three constructors
// (new_unitary/new_measurement/new_custom): rather than a Go sum type (no
// natural fit without an interface per variant, which would complicate the
// wire codec), this mirrors the original's single-struct-with-optional-name
// representation, where an empty Name means "DQCsim-defined behavior" and
// a non-empty Name means "plugin-defined behavior".
type Gate struct {
	Name     string     `cbor:"name,omitempty"`
	Targets  []QubitRef `cbor:"targets"`
	Controls []QubitRef `cbor:"controls"`
	Measures []QubitRef `cbor:"measures"`
	Matrix   *Matrix    `cbor:"matrix,omitempty"`
	Data     arb.Data   `cbor:"data"`
}

// NewUnitary constructs a unitary gate (gate.rs's Gate::new_unitary).
func NewUnitary(targets, controls []QubitRef, matrix []complex128) (Gate, error) {
	if len(targets) == 0 {
		return Gate{}, dqerr.InvalidArgumentf("at least one target qubit is required")
	}
	if err := requireUnique(append(append([]QubitRef{}, targets...), controls...)); err != nil {
		return Gate{}, err
	}
	m, err := NewMatrix(len(targets), matrix)
	if err != nil {
		return Gate{}, err
	}
	return Gate{Targets: targets, Controls: controls, Matrix: &m, Data: arb.Default()}, nil
}

// NewMeasurement constructs a measurement gate over qubits, in the Z basis
// (gate.rs's Gate::new_measurement).
func NewMeasurement(qubits []QubitRef) (Gate, error) {
	if err := requireUnique(qubits); err != nil {
		return Gate{}, err
	}
	return Gate{Measures: qubits, Data: arb.Default()}, nil
}

// NewCustom constructs an implementation-defined gate (gate.rs's
// Gate::new_custom).
func NewCustom(name string, targets, controls, measures []QubitRef, matrix []complex128, data arb.Data) (Gate, error) {
	if err := requireUnique(append(append([]QubitRef{}, targets...), controls...)); err != nil {
		return Gate{}, err
	}
	if err := requireUnique(measures); err != nil {
		return Gate{}, err
	}
	var m *Matrix
	if matrix != nil {
		if len(targets) == 0 {
			return Gate{}, dqerr.InvalidArgumentf("cannot specify a matrix when there are no target qubits")
		}
		mv, err := NewMatrix(len(targets), matrix)
		if err != nil {
			return Gate{}, err
		}
		m = &mv
	}
	return Gate{Name: name, Targets: targets, Controls: controls, Measures: measures, Matrix: m, Data: data}, nil
}

// IsCustom reports whether this gate has implementation-defined (named)
// behavior rather than DQCsim-defined behavior.
func (g Gate) IsCustom() bool { return g.Name != "" }

func requireUnique(qubits []QubitRef) error {
	seen := make(map[QubitRef]bool, len(qubits))
	for _, q := range qubits {
		if seen[q] {
			return dqerr.InvalidArgumentf("qubit %s is used more than once", q)
		}
		seen[q] = true
	}
	return nil
}

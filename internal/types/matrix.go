package types

import (
	"math"
	"math/cmplx"

	"github.com/fxamacker/cbor/v2"

	"github.com/dqcsim/dqcsim/dqerr"
)

// complexPair is the wire representation of a complex128, mirroring gate.rs's
// InternalComplex64 workaround for a complex type that the original's
// serialization library (serde) can't handle directly; fxamacker/cbor has
// the identical limitation for complex128, so the same flat-struct
// workaround applies here.
type complexPair struct {
	Re float64 `json:"re" cbor:"re"`
	Im float64 `json:"im" cbor:"im"`
}

// Matrix is a 2^n x 2^n complex matrix stored row-major (spec.md §3).
type Matrix struct {
	numQubits int
	data      []complex128
}

// NewMatrix constructs a Matrix for the given number of target qubits from
// row-major complex data. Returns an error if the data isn't the expected
// size 4^numQubits.
func NewMatrix(numQubits int, data []complex128) (Matrix, error) {
	expected := expectedMatrixSize(numQubits)
	if len(data) != expected {
		return Matrix{}, dqerr.InvalidArgumentf("the matrix is expected to be of size %d but was %d", expected, len(data))
	}
	cp := make([]complex128, len(data))
	copy(cp, data)
	return Matrix{numQubits: numQubits, data: cp}, nil
}

func expectedMatrixSize(numQubits int) int {
	dim := 1 << numQubits
	return dim * dim
}

// NumQubits returns the number of qubits this matrix acts on.
func (m Matrix) NumQubits() int { return m.numQubits }

// Data returns the row-major complex matrix entries.
func (m Matrix) Data() []complex128 { return m.data }

// Equal reports bit-exact equality (spec.md §3).
func (m Matrix) Equal(other Matrix) bool {
	if m.numQubits != other.numQubits || len(m.data) != len(other.data) {
		return false
	}
	for i := range m.data {
		if m.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// ApproxEqual reports approximate equality modulo eps, and optionally
// modulo a global phase factor (spec.md §3).
func (m Matrix) ApproxEqual(other Matrix, eps float64, ignorePhase bool) bool {
	if m.numQubits != other.numQubits || len(m.data) != len(other.data) {
		return false
	}
	if !ignorePhase {
		for i := range m.data {
			if cmplx.Abs(m.data[i]-other.data[i]) > eps {
				return false
			}
		}
		return true
	}
	// Derive the relative phase from the first entry of m with non-negligible
	// magnitude (phase 1 if there is none), then compare every entry modulo
	// that phase.
	var phase complex128 = 1
	for i := range m.data {
		if cmplx.Abs(m.data[i]) > eps {
			phase = other.data[i] / m.data[i]
			if math.Abs(cmplx.Abs(phase)-1) > eps {
				return false
			}
			break
		}
	}
	for i := range m.data {
		if cmplx.Abs(m.data[i]*phase-other.data[i]) > eps {
			return false
		}
	}
	return true
}

func toWire(data []complex128) []complexPair {
	out := make([]complexPair, len(data))
	for i, c := range data {
		out[i] = complexPair{Re: real(c), Im: imag(c)}
	}
	return out
}

func fromWire(data []complexPair) []complex128 {
	out := make([]complex128, len(data))
	for i, c := range data {
		out[i] = complex(c.Re, c.Im)
	}
	return out
}

// MarshalCBOR implements cbor.Marshaler via the complexPair wire form.
func (m Matrix) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(wireMatrix{NumQubits: m.numQubits, Data: toWire(m.data)})
}

// UnmarshalCBOR implements cbor.Unmarshaler via the complexPair wire form.
func (m *Matrix) UnmarshalCBOR(b []byte) error {
	var w wireMatrix
	if err := cbor.Unmarshal(b, &w); err != nil {
		return err
	}
	m.numQubits = w.NumQubits
	m.data = fromWire(w.Data)
	return nil
}

type wireMatrix struct {
	NumQubits int           `cbor:"num_qubits"`
	Data      []complexPair `cbor:"data"`
}

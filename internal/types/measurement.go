package types

import "github.com/dqcsim/dqcsim/internal/arb"

// MeasurementValue is the outcome of measuring a qubit in the Z basis,
// mirroring measurement.rs's QubitMeasurementValue.
type MeasurementValue int

const (
	Undefined MeasurementValue = iota
	Zero
	One
)

func (v MeasurementValue) String() string {
	switch v {
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return "?"
	}
}

// MeasurementValueFromBool converts a definite measurement outcome.
func MeasurementValueFromBool(b bool) MeasurementValue {
	if b {
		return One
	}
	return Zero
}

// MeasurementResult is QubitMeasurementResult (spec.md §3): {qubit, value,
// ArbData}.
type MeasurementResult struct {
	Qubit QubitRef         `json:"qubit" cbor:"qubit"`
	Value MeasurementValue `json:"value" cbor:"value"`
	Data  arb.Data         `json:"data" cbor:"data"`
}

// MeasurementState caches what the gatestream engine knows about one
// qubit's measurement history: the latest value, the cycle it was recorded
// at, and the cycle of the measurement before that (spec.md §4.E).
type MeasurementState struct {
	HasResult        bool
	Value            MeasurementValue
	MeasuredCycle    uint64
	PreviousHasValue bool
	PreviousCycle    uint64
}

// Observe records a new measurement taken at the given cycle.
func (s *MeasurementState) Observe(value MeasurementValue, cycle uint64) {
	if s.HasResult {
		s.PreviousCycle = s.MeasuredCycle
		s.PreviousHasValue = true
	}
	s.Value = value
	s.MeasuredCycle = cycle
	s.HasResult = true
}

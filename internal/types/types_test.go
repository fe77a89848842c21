package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQubitRefGeneratorNeverReuses(t *testing.T) {
	g := NewQubitRefGenerator()
	a := g.Allocate(2)
	require.Equal(t, []QubitRef{1, 2}, a)
	g.Free(a)
	b := g.Allocate(1)
	require.Equal(t, []QubitRef{3}, b)
}

func TestSequenceNumberAcknowledges(t *testing.T) {
	g := NewSequenceNumberGenerator()
	s1 := g.Next()
	s2 := g.Next()
	require.Equal(t, SequenceNumber(1), s1)
	require.Equal(t, SequenceNumber(2), s2)
	require.True(t, s2.Acknowledges(s1))
	require.False(t, s1.Acknowledges(s2))
	require.True(t, s1.Acknowledges(s1))
}

func TestNewUnitaryRejectsOverlap(t *testing.T) {
	_, err := NewUnitary([]QubitRef{1, 2}, []QubitRef{2}, []complex128{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1})
	require.Error(t, err)
}

func TestNewUnitaryValidatesMatrixSize(t *testing.T) {
	_, err := NewUnitary([]QubitRef{1}, nil, []complex128{1, 0, 0})
	require.Error(t, err)

	g, err := NewUnitary([]QubitRef{1}, nil, []complex128{0, 1, 1, 0})
	require.NoError(t, err)
	require.Equal(t, 1, g.Matrix.NumQubits())
}

func TestMatrixApproxEqualModuloPhase(t *testing.T) {
	m1, err := NewMatrix(1, []complex128{1, 0, 0, 1})
	require.NoError(t, err)
	m2, err := NewMatrix(1, []complex128{0, 1i, 1i, 0})
	require.NoError(t, err)
	require.False(t, m1.ApproxEqual(m2, 1e-9, true))

	m3, err := NewMatrix(1, []complex128{1i, 0, 0, 1i})
	require.NoError(t, err)
	require.True(t, m1.ApproxEqual(m3, 1e-9, true))
	require.False(t, m1.ApproxEqual(m3, 1e-9, false))
}

func TestMeasurementStateCyclesSinceAndBetween(t *testing.T) {
	var s MeasurementState
	s.Observe(One, 3)
	require.True(t, s.HasResult)
	require.False(t, s.PreviousHasValue)

	s.Observe(Zero, 7)
	require.True(t, s.PreviousHasValue)
	require.Equal(t, uint64(3), s.PreviousCycle)
	require.Equal(t, uint64(7), s.MeasuredCycle)
}

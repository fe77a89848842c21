package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordGatestreamSentAndAckedTrackPending(t *testing.T) {
	before := testutil.ToFloat64(GatestreamPending)
	RecordGatestreamSent("gate")
	require.Equal(t, before+1, testutil.ToFloat64(GatestreamPending))
	RecordGatestreamAcked(1)
	require.Equal(t, before, testutil.ToFloat64(GatestreamPending))
}

func TestRecordSpawnIncrementsByRoleAndOutcome(t *testing.T) {
	before := testutil.ToFloat64(PluginsSpawned.WithLabelValues("frontend", "ok"))
	RecordSpawn("frontend", "ok")
	require.Equal(t, before+1, testutil.ToFloat64(PluginsSpawned.WithLabelValues("frontend", "ok")))
}

func TestRecordArbIncrementsByTargetAndOutcome(t *testing.T) {
	before := testutil.ToFloat64(HostArbCalls.WithLabelValues("back", "ok"))
	RecordArb("back", "ok")
	require.Equal(t, before+1, testutil.ToFloat64(HostArbCalls.WithLabelValues("back", "ok")))
}

func TestRecordHostCallRunRequestIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(HostCallRunRequests)
	RecordHostCallRunRequest()
	require.Equal(t, before+1, testutil.ToFloat64(HostCallRunRequests))
}

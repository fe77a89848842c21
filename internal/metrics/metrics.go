// Package metrics exposes the pipeline's Prometheus metrics surface.
// DQCsim's design notes call out process exit codes and logging but do not
// exclude metrics as a Non-goal, so the pipeline controller, gatestream
// engine, and host-call engine are instrumented here. Grounded on
// streamspace-dev-streamspace's controller/pkg/metrics/metrics.go: package
// level *Vec variables registered once in init, with small Record*
// wrapper functions instead of exposing the vecs directly to callers.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PluginsSpawned counts plugin process spawns by role and outcome.
	PluginsSpawned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dqcsim_plugins_spawned_total",
			Help: "Total number of plugin processes spawned, by role and outcome",
		},
		[]string{"role", "outcome"},
	)

	// PluginsRunning tracks how many plugins are currently part of a live
	// pipeline.
	PluginsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dqcsim_plugins_running",
			Help: "Number of plugins in the currently running pipeline",
		},
	)

	// HostArbCalls counts host-initiated ArbCmd dispatches by target plugin.
	HostArbCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dqcsim_host_arb_calls_total",
			Help: "Total number of host ArbCmd dispatches, by target plugin and outcome",
		},
		[]string{"target", "outcome"},
	)

	// GatestreamRequestsSent counts downstream gatestream requests by kind.
	GatestreamRequestsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dqcsim_gatestream_requests_sent_total",
			Help: "Total number of gatestream requests sent downstream, by kind",
		},
		[]string{"kind"},
	)

	// GatestreamRequestsAcked counts gatestream requests retired by an
	// upstream cumulative acknowledgement.
	GatestreamRequestsAcked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dqcsim_gatestream_requests_acked_total",
			Help: "Total number of gatestream requests retired by an upstream ack",
		},
	)

	// GatestreamPending tracks requests sent but not yet acknowledged.
	GatestreamPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dqcsim_gatestream_requests_pending",
			Help: "Number of gatestream requests sent but not yet acknowledged",
		},
	)

	// HostCallRunRequests counts RunRequest/RunResponse round trips driven
	// by the host-call engine.
	HostCallRunRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dqcsim_hostcall_run_requests_total",
			Help: "Total number of RunRequest/RunResponse round trips with the frontend",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PluginsSpawned,
		PluginsRunning,
		HostArbCalls,
		GatestreamRequestsSent,
		GatestreamRequestsAcked,
		GatestreamPending,
		HostCallRunRequests,
	)
}

// RecordSpawn records a plugin spawn attempt's outcome ("ok" or "error").
func RecordSpawn(role, outcome string) {
	PluginsSpawned.WithLabelValues(role, outcome).Inc()
}

// RecordArb records a host arb dispatch's outcome ("ok" or "error").
func RecordArb(target, outcome string) {
	HostArbCalls.WithLabelValues(target, outcome).Inc()
}

// RecordGatestreamSent records one downstream request of the given kind
// ("allocate", "free", "gate", "advance", "arb") and bumps the pending
// gauge.
func RecordGatestreamSent(kind string) {
	GatestreamRequestsSent.WithLabelValues(kind).Inc()
	GatestreamPending.Inc()
}

// RecordGatestreamAcked records n requests retired by a cumulative ack.
func RecordGatestreamAcked(n int) {
	if n <= 0 {
		return
	}
	GatestreamRequestsAcked.Add(float64(n))
	GatestreamPending.Sub(float64(n))
}

// RecordHostCallRunRequest records one RunRequest/RunResponse round trip.
func RecordHostCallRunRequest() {
	HostCallRunRequests.Inc()
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OptionsCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grix_options_cache_lookups_total", Help: "Options cache lookups by result (hit|miss)"},
		[]string{"result"},
	)
	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grix_upstream_requests_total", Help: "Upstream API calls by operation and outcome"},
		[]string{"operation", "outcome"},
	)
	UpstreamLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "grix_upstream_request_seconds", Help: "Upstream API call latency", Buckets: prometheus.DefBuckets},
		[]string{"operation"},
	)
	SignalPollAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "grix_signal_poll_attempts_total", Help: "Agent state polls issued by signal workflows"},
	)
	SignalWorkflows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grix_signal_workflows_total", Help: "Finished signal workflows by terminal state"},
		[]string{"state"},
	)
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "grix_mcp_tool_calls_total", Help: "MCP tool calls by tool and outcome"},
		[]string{"tool", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		OptionsCacheLookups,
		UpstreamRequests,
		UpstreamLatency,
		SignalPollAttempts,
		SignalWorkflows,
		ToolCalls,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome maps an error to the "ok"/"error" label used across collectors.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

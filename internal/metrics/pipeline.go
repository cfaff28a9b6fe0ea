package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval and chat pipeline Prometheus metrics.
var (
	CacheProbeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumine",
			Name:      "cache_probe_total",
			Help:      "Semantic cache probe outcomes",
		},
		[]string{"result"}, // "hit" / "backfill"
	)

	LiveFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumine",
			Name:      "live_fetch_total",
			Help:      "Live search provider calls",
		},
		[]string{"provider", "status"},
	)

	LiveFetchDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumine",
			Name:      "live_fetch_documents_total",
			Help:      "Documents returned by live search providers",
		},
		[]string{"provider"},
	)

	ExpansionQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lumine",
			Name:      "expansion_queries_total",
			Help:      "Search query candidates produced by query expansion",
		},
	)

	CompletionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lumine",
			Name:      "completion_requests_total",
			Help:      "Chat completion requests by mode",
		},
		[]string{"mode", "status"}, // mode: "answer" / "stream"
	)

	StreamedFramesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lumine",
			Name:      "streamed_frames_total",
			Help:      "SSE frames relayed to clients",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers retrieval and chat metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheProbeTotal)
	prometheus.MustRegister(LiveFetchTotal)
	prometheus.MustRegister(LiveFetchDocuments)
	prometheus.MustRegister(ExpansionQueriesTotal)
	prometheus.MustRegister(CompletionRequestsTotal)
	prometheus.MustRegister(StreamedFramesTotal)
	pipelineMetricsRegistered = true
}

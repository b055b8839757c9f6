package dispatch

import "github.com/prometheus/client_golang/prometheus"

// Result labels for encodeTotal.
const (
	resultOK          = "ok"
	resultNoContexts  = "no_contexts"
	resultUnavailable = "unavailable"
	resultTimeout     = "timeout"
	resultBusy        = "busy"
	resultError       = "error"
)

var (
	encodeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "embedd",
		Subsystem: "encode",
		Name:      "requests_total",
		Help:      "Encode calls by model and result.",
	}, []string{"model", "result"})
	encodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "embedd",
		Subsystem: "encode",
		Name:      "duration_seconds",
		Help:      "Encode latency including admission wait.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"model"})
	encodeTexts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "embedd",
		Subsystem: "encode",
		Name:      "texts_total",
		Help:      "Texts embedded, split by cache outcome.",
	}, []string{"model", "source"})
)

func init() {
	prometheus.MustRegister(encodeTotal, encodeDuration, encodeTexts)
}

package registry

import "github.com/prometheus/client_golang/prometheus"

var (
	modelsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "embedd",
		Subsystem: "registry",
		Name:      "models_loaded",
		Help:      "Models loaded by the last load pass.",
	})
	modelsFailed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "embedd",
		Subsystem: "registry",
		Name:      "models_failed",
		Help:      "Models that failed to load in the last load pass.",
	})
	loadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "embedd",
		Subsystem: "registry",
		Name:      "load_duration_seconds",
		Help:      "Time spent loading a single model.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"backend", "result"})
	admissionRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "embedd",
		Subsystem: "registry",
		Name:      "admission_rejections_total",
		Help:      "Encode calls rejected because the model queue was full.",
	}, []string{"model"})
)

func init() {
	prometheus.MustRegister(modelsLoaded, modelsFailed, loadDuration, admissionRejections)
}

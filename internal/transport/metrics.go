package transport

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the request counters of a Client. A nil *Metrics records
// nothing.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "todosync_api_requests_total",
			Help: "API requests by method, resource and outcome.",
		}, []string{"method", "resource", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todosync_api_request_duration_seconds",
			Help:    "API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "resource"}),
	}
}

func (m *Metrics) observe(method, path string, err error, took time.Duration) {
	if m == nil {
		return
	}
	res := resource(path)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if te, ok := err.(*Error); ok {
			outcome = string(te.Kind)
		}
	}
	m.Requests.WithLabelValues(method, res, outcome).Inc()
	m.Duration.WithLabelValues(method, res).Observe(took.Seconds())
}

// resource keeps label cardinality low: "/todos/17" -> "todos".
func resource(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}

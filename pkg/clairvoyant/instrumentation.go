package clairvoyant

import (
	"time"

	"github.com/chagen/clairvoyant/internal/model"
	"github.com/chagen/clairvoyant/internal/segment"
	"github.com/prometheus/client_golang/prometheus"
)

// instrumentation exposes the engine's own operational counters as a
// prometheus.Collector (§4.8). It is grounded in the teacher's use of
// github.com/prometheus/client_golang, repurposed here: the teacher treats
// Prometheus as a metric *data source* to ingest, while this engine treats
// it as the *observability surface* a host application registers with its
// own registry. No HTTP endpoint is started; the host decides how (or
// whether) to expose Storage.Collector().
type instrumentation struct {
	writesTotal      *prometheus.CounterVec
	segmentsTotal    *prometheus.GaugeVec
	listenerDispatch prometheus.Histogram
}

func newInstrumentation() *instrumentation {
	return &instrumentation{
		writesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clairvoyant",
			Name:      "writes_total",
			Help:      "Number of store() calls, partitioned by whether the sample was persisted.",
		}, []string{"metric", "result"}),
		segmentsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clairvoyant",
			Name:      "segments_total",
			Help:      "Number of segment files currently on disk for a metric.",
		}, []string{"metric"}),
		listenerDispatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clairvoyant",
			Name:      "listener_dispatch_seconds",
			Help:      "Time spent running a metric's change listeners after a persisted store.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *instrumentation) Describe(ch chan<- *prometheus.Desc) {
	m.writesTotal.Describe(ch)
	m.segmentsTotal.Describe(ch)
	m.listenerDispatch.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *instrumentation) Collect(ch chan<- prometheus.Metric) {
	m.writesTotal.Collect(ch)
	m.segmentsTotal.Collect(ch)
	m.listenerDispatch.Collect(ch)
}

func (m *instrumentation) observeWrite(id model.MetricId, accepted bool) {
	m.writesTotal.WithLabelValues(id.Path(), writeResult(accepted)).Inc()
}

func (m *instrumentation) observeWriteN(id model.MetricId, accepted, rejected int) {
	m.writesTotal.WithLabelValues(id.Path(), "accepted").Add(float64(accepted))
	if rejected > 0 {
		m.writesTotal.WithLabelValues(id.Path(), "rejected").Add(float64(rejected))
	}
}

func writeResult(accepted bool) string {
	if accepted {
		return "accepted"
	}
	return "rejected"
}

func (m *instrumentation) observeSegments(id model.MetricId, w *segment.Writer) {
	n, err := w.SegmentCount()
	if err != nil {
		return
	}
	m.segmentsTotal.WithLabelValues(id.Path()).Set(float64(n))
}

func (m *instrumentation) observeDispatch(d time.Duration) {
	m.listenerDispatch.Observe(d.Seconds())
}

var _ prometheus.Collector = (*instrumentation)(nil)

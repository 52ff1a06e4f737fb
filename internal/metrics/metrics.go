// Package metrics exposes Prometheus collectors for printing activity.
// All methods are safe on a nil *Collectors so components can run unobserved.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ticket_bridge"

// Print paths.
const (
	PathDirect  = "direct"
	PathBackend = "backend"
	PathAuto    = "auto"
)

// Collectors groups every metric the bridge exports.
type Collectors struct {
	Prints        *prometheus.CounterVec
	PrintFailures *prometheus.CounterVec
	Chunks        prometheus.Counter
	Bytes         prometheus.Counter
	AutoPrint     *prometheus.CounterVec
	PushEvents    *prometheus.CounterVec
	LocalJobs     *prometheus.CounterVec
	LinkConnected prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Prints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prints_total",
			Help:      "Receipts dispatched, by path (direct or backend).",
		}, []string{"path"}),
		PrintFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "print_failures_total",
			Help:      "Failed print attempts, by stage.",
		}, []string{"stage"}),
		Chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_written_total",
			Help:      "Chunks written to the printer link.",
		}),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes written to the printer link.",
		}),
		AutoPrint: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autoprint_decisions_total",
			Help:      "Auto-print decisions taken on job-created events, by outcome.",
		}, []string{"outcome"}),
		PushEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_events_total",
			Help:      "Push events received, by type.",
		}, []string{"type"}),
		LocalJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "local_jobs_total",
			Help:      "Jobs received over the local WebSocket, by result.",
		}, []string{"result"}),
		LinkConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "printer_link_connected",
			Help:      "1 while a printer link is connected.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.Prints, c.PrintFailures, c.Chunks, c.Bytes,
			c.AutoPrint, c.PushEvents, c.LocalJobs, c.LinkConnected)
	}
	return c
}

// ObservePrint counts a dispatched receipt.
func (c *Collectors) ObservePrint(path string) {
	if c == nil {
		return
	}
	c.Prints.WithLabelValues(path).Inc()
}

// ObserveFailure counts a failure at stage.
func (c *Collectors) ObserveFailure(stage string) {
	if c == nil {
		return
	}
	c.PrintFailures.WithLabelValues(stage).Inc()
}

// ObserveChunk counts one written chunk of n bytes.
func (c *Collectors) ObserveChunk(n int) {
	if c == nil {
		return
	}
	c.Chunks.Inc()
	c.Bytes.Add(float64(n))
}

// ObserveAutoPrint counts an auto-print decision.
func (c *Collectors) ObserveAutoPrint(outcome string) {
	if c == nil {
		return
	}
	c.AutoPrint.WithLabelValues(outcome).Inc()
}

// ObservePushEvent counts a received push event.
func (c *Collectors) ObservePushEvent(eventType string) {
	if c == nil {
		return
	}
	c.PushEvents.WithLabelValues(eventType).Inc()
}

// ObserveLocalJob counts a local job result.
func (c *Collectors) ObserveLocalJob(result string) {
	if c == nil {
		return
	}
	c.LocalJobs.WithLabelValues(result).Inc()
}

// SetLinkConnected sets the link gauge.
func (c *Collectors) SetLinkConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.LinkConnected.Set(1)
		return
	}
	c.LinkConnected.Set(0)
}

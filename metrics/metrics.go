// Package metrics records memory tool activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"slices"
	"time"

	"github.com/deepnoodle-ai/memfs"
	"github.com/deepnoodle-ai/memfs/toolkit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ toolkit.Observer = &Recorder{}

// OutcomeSuccess is the outcome label of a successful command. Failed
// commands are labelled with their error kind.
const OutcomeSuccess = "success"

const unknownCommand = "unknown"

// Recorder is a toolkit.Observer that exports command counts, failures and
// latency.
type Recorder struct {
	registry *prometheus.Registry

	commandsTotal   *prometheus.CounterVec
	escapesTotal    prometheus.Counter
	commandDuration *prometheus.HistogramVec
}

// NewRecorder creates the metrics and registers them with registry.
func NewRecorder(registry *prometheus.Registry) (*Recorder, error) {
	r := &Recorder{registry: registry}
	r.commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memfs_commands_total",
			Help: "Total number of memory commands by command and outcome",
		},
		[]string{"command", "outcome"},
	)
	r.escapesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "memfs_path_escapes_total",
		Help: "Total number of commands rejected for addressing a path outside the memory directory",
	})
	r.commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memfs_command_duration_seconds",
			Help:    "Time taken to run memory commands",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 100µs to ~1.6s
		},
		[]string{"command"},
	)
	if err := registry.Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Describe implements prometheus.Collector.
func (r *Recorder) Describe(ch chan<- *prometheus.Desc) {
	r.commandsTotal.Describe(ch)
	r.escapesTotal.Describe(ch)
	r.commandDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (r *Recorder) Collect(ch chan<- prometheus.Metric) {
	r.commandsTotal.Collect(ch)
	r.escapesTotal.Collect(ch)
	r.commandDuration.Collect(ch)
}

// ObserveCommand implements toolkit.Observer. Names outside toolkit.Commands
// are recorded as "unknown" to keep label cardinality bounded.
func (r *Recorder) ObserveCommand(command string, kind memfs.ErrorKind, elapsed time.Duration) {
	if !slices.Contains(toolkit.Commands, toolkit.MemoryCommand(command)) {
		command = unknownCommand
	}
	outcome := OutcomeSuccess
	if kind != "" {
		outcome = string(kind)
	}
	r.commandsTotal.WithLabelValues(command, outcome).Inc()
	r.commandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
	if kind == memfs.KindPathEscape {
		r.escapesTotal.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

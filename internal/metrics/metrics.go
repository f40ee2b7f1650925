// Package metrics exposes runtime counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/blogsol/internal/engine"
	"github.com/roach88/blogsol/internal/ir"
)

const namespace = "blogsol"

// Recorder counts processed instructions, created slots and airdrops.
// It implements engine.Observer.
type Recorder struct {
	registry     *prometheus.Registry
	instructions *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	slots        *prometheus.CounterVec
	airdropped   prometheus.Counter
	lastSeq      prometheus.Gauge
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder registers the collectors on a private registry, together with
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		instructions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "instructions_total",
			Help:      "Instructions processed, by instruction and outcome.",
		}, []string{"instruction", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "instruction_duration_seconds",
			Help:      "Wall time to execute an instruction.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"instruction"}),
		slots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_created_total",
			Help:      "Slots created, by record kind.",
		}, []string{"kind"}),
		airdropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "airdrop_lamports_total",
			Help:      "Lamports credited by airdrops.",
		}),
		lastSeq: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_last_seq",
			Help:      "Seq of the most recent ledger entry.",
		}),
	}
}

// ObserveInstruction records one processed instruction.
func (r *Recorder) ObserveInstruction(receipt ir.Receipt, elapsed time.Duration) {
	name := string(receipt.Instruction)
	r.instructions.WithLabelValues(name, receipt.Outcome).Inc()
	r.duration.WithLabelValues(name).Observe(elapsed.Seconds())
	if receipt.Seq > 0 {
		r.lastSeq.Set(float64(receipt.Seq))
	}
	if !receipt.Succeeded() {
		return
	}
	switch receipt.Instruction {
	case ir.InitUser:
		r.slots.WithLabelValues("user").Inc()
	case ir.CreatePost:
		r.slots.WithLabelValues("post").Inc()
	}
}

// ObserveAirdrop records one airdrop.
func (r *Recorder) ObserveAirdrop(receipt engine.AirdropReceipt) {
	r.airdropped.Add(float64(receipt.Lamports))
	r.lastSeq.Set(float64(receipt.Seq))
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"time"

	"github.com/Dots-Uzbekistan/Lexora/pkg/research/stage"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	StageOperations *prometheus.CounterVec
	StageLatency    *prometheus.HistogramVec
	Interrupts      *prometheus.CounterVec
	TurnLatency     *prometheus.HistogramVec
	TurnFailures    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StageOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexora_stage_operations_total",
				Help: "Research stage operations by outcome",
			},
			[]string{"operation", "outcome"}, // outcome: completed, noop, prerequisite_not_met, suspended, rejected, error
		),
		StageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexora_stage_operation_seconds",
				Help:    "Research stage operation latency in seconds",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"operation"},
		),
		Interrupts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexora_interrupts_total",
				Help: "Interrupts returned to clients",
			},
			[]string{"type"},
		),
		TurnLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lexora_turn_seconds",
				Help:    "Chat turn latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"service"},
		),
		TurnFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lexora_turn_failures_total",
				Help: "Chat turns that returned an error to the client",
			},
			[]string{"service"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.StageOperations,
		m.StageLatency,
		m.Interrupts,
		m.TurnLatency,
		m.TurnFailures,
	)
	return m
}

// ObserveOperation records one stage operation run by the step executor.
func (m *Metrics) ObserveOperation(op stage.Operation, outcome stage.Outcome, elapsed time.Duration) {
	m.StageOperations.WithLabelValues(string(op), string(outcome)).Inc()
	m.StageLatency.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveTurn(service string, elapsed time.Duration, err error) {
	m.TurnLatency.WithLabelValues(service).Observe(elapsed.Seconds())
	if err != nil {
		m.TurnFailures.WithLabelValues(service).Inc()
	}
}

func (m *Metrics) ObserveInterrupt(interruptType string) {
	m.Interrupts.WithLabelValues(interruptType).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

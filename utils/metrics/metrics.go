package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "arbbot"

// NewRegistry returns a registry carrying the Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

type EngineMetrics struct {
	Iterations       prometheus.Counter
	Decisions        *prometheus.CounterVec
	EstimateFailures prometheus.Counter
	EstimateLatency  prometheus.Histogram
	Executions       *prometheus.CounterVec
	NoRoutes         prometheus.Counter
	DiscoveredRoutes prometheus.Counter
}

func NewEngineMetrics(reg prometheus.Registerer, namespace string) *EngineMetrics {
	factory := promauto.With(reg)
	return &EngineMetrics{
		Iterations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "iterations_total",
			Help:      "Total number of engine loop iterations",
		}),
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "decisions_total",
			Help:      "Threshold decisions by outcome",
		}, []string{"outcome"}),
		EstimateFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "estimate_failures_total",
			Help:      "Total number of failed trade simulations",
		}),
		EstimateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "estimate_latency_seconds",
			Help:      "Latency of trade simulations",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}),
		Executions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "executions_total",
			Help:      "Trade executions by outcome",
		}, []string{"outcome"}),
		NoRoutes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "no_routes_total",
			Help:      "Iterations where no route was available",
		}),
		DiscoveredRoutes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "discovered_routes_total",
			Help:      "Routes found in discovery mode",
		}),
	}
}

type ReporterMetrics struct {
	BasisPoints   *prometheus.GaugeVec
	Reports       prometheus.Counter
	RefreshErrors *prometheus.CounterVec
	ComputeErrors *prometheus.CounterVec
}

func NewReporterMetrics(reg prometheus.Registerer, namespace string) *ReporterMetrics {
	factory := promauto.With(reg)
	return &ReporterMetrics{
		BasisPoints: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reporter",
			Name:      "asset_basis_points",
			Help:      "Basis-point change of each asset since start",
		}, []string{"symbol"}),
		Reports: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporter",
			Name:      "reports_total",
			Help:      "Total number of reports emitted",
		}),
		RefreshErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporter",
			Name:      "refresh_errors_total",
			Help:      "Balance refresh failures by asset",
		}, []string{"symbol"}),
		ComputeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reporter",
			Name:      "compute_errors_total",
			Help:      "Basis-point computation failures by asset",
		}, []string{"symbol"}),
	}
}

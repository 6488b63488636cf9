package metrics

import (
	"net/http"
	"time"

	"github.com/compose-network/checkpoint-monitor/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	Namespace = "checkpoint_monitor"

	RPCClientSubsystem = "rpc_client"
	StatusSubsystem    = "status"
)

// Metrics tracks remote reads and the last observed anchoring status per chain direction.
type Metrics struct {
	registry *prometheus.Registry

	rpcRequestsTotal          *prometheus.CounterVec
	rpcRequestDurationSeconds *prometheus.HistogramVec

	blocksBehind     *prometheus.GaugeVec
	latestCheckpoint *prometheus.GaugeVec
	connected        *prometheus.GaugeVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	statusLabels := []string{"network", "chain", "direction"}
	m := &Metrics{
		registry: registry,
		rpcRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RPCClientSubsystem,
			Name:      "requests_total",
			Help:      "Total RPC requests issued to chain endpoints",
		}, []string{"endpoint", "method", "outcome"}),
		rpcRequestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: RPCClientSubsystem,
			Name:      "request_duration_seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			Help:      "Histogram of RPC request durations",
		}, []string{"endpoint", "method"}),
		blocksBehind: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: StatusSubsystem,
			Name:      "blocks_behind",
			Help:      "Source head minus the latest anchored block",
		}, statusLabels),
		latestCheckpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: StatusSubsystem,
			Name:      "latest_checkpoint",
			Help:      "Source block number of the latest anchored checkpoint",
		}, statusLabels),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: StatusSubsystem,
			Name:      "connected",
			Help:      "1 if the last status query reached both layers, 0 otherwise",
		}, statusLabels),
	}

	registry.MustRegister(
		m.rpcRequestsTotal,
		m.rpcRequestDurationSeconds,
		m.blocksBehind,
		m.latestCheckpoint,
		m.connected,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRPCRequest(endpoint, method string, err error, duration time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.rpcRequestsTotal.WithLabelValues(endpoint, method, outcome).Inc()
	m.rpcRequestDurationSeconds.WithLabelValues(endpoint, method).Observe(duration.Seconds())
}

func (m *Metrics) RecordStatus(network domain.Network, chain string, status domain.ChainStatus) {
	labels := []string{string(network), chain, string(status.Direction)}

	if !status.IsConnected {
		m.connected.WithLabelValues(labels...).Set(0)
		return
	}
	m.connected.WithLabelValues(labels...).Set(1)

	if status.LatestCheckpoint == nil {
		// No data is not the same as fully synced.
		m.latestCheckpoint.DeleteLabelValues(labels...)
		m.blocksBehind.DeleteLabelValues(labels...)
		return
	}
	m.latestCheckpoint.WithLabelValues(labels...).Set(float64(status.LatestCheckpoint.BlockNumber))
	if status.BlocksBehind != nil {
		m.blocksBehind.WithLabelValues(labels...).Set(float64(*status.BlocksBehind))
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordRPCRequest(string, string, error, time.Duration) {}

func (noopMetrics) RecordStatus(domain.Network, string, domain.ChainStatus) {}

var NoopMetrics noopMetrics

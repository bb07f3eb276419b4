package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// RebalancerMetrics tracks the outcome of periodic rebalancing runs.
type RebalancerMetrics struct {
	runs     *prometheus.CounterVec
	trades   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

var (
	rebalancerOnce     sync.Once
	rebalancerRegistry *RebalancerMetrics
)

// Rebalancer returns the process-wide rebalancer metrics, registering the
// collectors on first use.
func Rebalancer() *RebalancerMetrics {
	rebalancerOnce.Do(func() {
		rebalancerRegistry = &RebalancerMetrics{
			runs: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rebalancer_runs_total",
				Help: "Count of rebalancing checks per collateral symbol.",
			}, []string{"symbol"}),
			trades: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rebalancer_trades_total",
				Help: "Count of corrective trades triggered, by symbol and direction.",
			}, []string{"symbol", "direction"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "rebalancer_failures_total",
				Help: "Count of failed rebalancing runs per collateral symbol.",
			}, []string{"symbol"}),
		}
		prometheus.MustRegister(
			rebalancerRegistry.runs,
			rebalancerRegistry.trades,
			rebalancerRegistry.failures,
		)
	})
	return rebalancerRegistry
}

// ObserveRun records a completed rebalancing check.
func (m *RebalancerMetrics) ObserveRun(symbol string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(symbol).Inc()
}

// ObserveTrade records a corrective trade in the given direction ("raise" or
// "lower").
func (m *RebalancerMetrics) ObserveTrade(symbol, direction string) {
	if m == nil {
		return
	}
	m.trades.WithLabelValues(symbol, direction).Inc()
}

// ObserveFailure records a failed run.
func (m *RebalancerMetrics) ObserveFailure(symbol string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(symbol).Inc()
}

// Package rebalanced runs the keeper loop that periodically checks each
// configured collateral market and triggers an on-chain rebalance when the
// pool price drifts beyond the governance threshold.
package rebalanced

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"balanced/native/rebalancer"
	"balanced/observability/metrics"
	"balanced/state"
)

// Symbols resolves the ticker symbol of a token contract, used only for
// logging and metric labels.
type Symbols interface {
	Symbol(addr common.Address) (string, error)
}

// StatusView is the JSON shape served for each tracked collateral.
type StatusView struct {
	Forward      bool      `json:"forward"`
	TokensToSell string    `json:"tokensToSell"`
	Reverse      bool      `json:"reverse"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Daemon ties the rebalancing engine to a ticker loop and an HTTP surface for
// health, status, and metrics.
type Daemon struct {
	engine      *rebalancer.Engine
	manager     *state.Manager
	symbols     Symbols
	logger      *slog.Logger
	metrics     *metrics.RebalancerMetrics
	interval    time.Duration
	collaterals []common.Address

	mu       sync.RWMutex
	statuses map[string]StatusView
}

// New constructs a daemon. An empty collateral list checks the protocol
// default staked collateral once per tick.
func New(engine *rebalancer.Engine, manager *state.Manager, symbols Symbols, logger *slog.Logger, interval time.Duration, collaterals []common.Address) *Daemon {
	if len(collaterals) == 0 {
		collaterals = []common.Address{{}}
	}
	return &Daemon{
		engine:      engine,
		manager:     manager,
		symbols:     symbols,
		logger:      logger,
		metrics:     metrics.Rebalancer(),
		interval:    interval,
		collaterals: collaterals,
		statuses:    make(map[string]StatusView),
	}
}

// Run ticks until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, collateral := range d.collaterals {
				d.runOnce(collateral)
			}
		}
	}
}

func (d *Daemon) label(collateral common.Address) string {
	if collateral == (common.Address{}) {
		return "default"
	}
	symbol, err := d.symbols.Symbol(collateral)
	if err != nil || symbol == "" {
		return collateral.Hex()
	}
	return symbol
}

func (d *Daemon) runOnce(collateral common.Address) {
	label := d.label(collateral)
	d.metrics.ObserveRun(label)

	var status rebalancer.Status
	var err error
	if collateral != (common.Address{}) {
		status, err = d.engine.StatusFor(collateral)
		if err != nil {
			d.metrics.ObserveFailure(label)
			d.logger.Error("status check failed", "collateral", label, "error", err)
			return
		}
	}

	if err := d.engine.Rebalance(collateral); err != nil {
		d.metrics.ObserveFailure(label)
		d.logger.Error("rebalance failed", "collateral", label, "error", err)
		return
	}
	if err := d.manager.Commit(); err != nil {
		d.metrics.ObserveFailure(label)
		d.logger.Error("state commit failed", "collateral", label, "error", err)
		return
	}

	switch {
	case status.Forward && status.TokensToSell.Sign() > 0:
		d.metrics.ObserveTrade(label, "raise")
		d.logger.Info("triggered forward rebalance", "collateral", label, "tokensToSell", status.TokensToSell.String())
	case status.Reverse && status.TokensToSell.Sign() > 0:
		d.metrics.ObserveTrade(label, "lower")
		d.logger.Info("triggered reverse rebalance", "collateral", label, "tokensToSell", status.TokensToSell.String())
	}

	if collateral != (common.Address{}) {
		view := StatusView{
			Forward:      status.Forward,
			TokensToSell: status.TokensToSell.String(),
			Reverse:      status.Reverse,
			UpdatedAt:    time.Now().UTC(),
		}
		d.mu.Lock()
		d.statuses[label] = view
		d.mu.Unlock()
	}
}

// Handler serves health, per-collateral status, and prometheus metrics.
func (d *Daemon) Handler() http.Handler {
	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		d.mu.RLock()
		snapshot := make(map[string]StatusView, len(d.statuses))
		for symbol, view := range d.statuses {
			snapshot[symbol] = view
		}
		d.mu.RUnlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshot)
	})
	router.Handle("/metrics", promhttp.Handler())
	return router
}

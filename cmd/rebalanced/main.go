package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"balanced/adapters"
	"balanced/config"
	"balanced/native/params"
	"balanced/native/rebalancer"
	"balanced/native/registry"
	"balanced/observability/logging"
	"balanced/services/rebalanced"
	"balanced/state"
	"balanced/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "rebalanced.toml", "path to daemon configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup("rebalanced", cfg.Environment)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	manager := state.NewManager(db)
	store := params.NewStore(manager)
	reg := registry.New(manager)

	if err := bootstrap(cfg, store, reg); err != nil {
		logger.Error("bootstrap", "error", err)
		os.Exit(1)
	}
	if err := manager.Commit(); err != nil {
		logger.Error("persist bootstrap", "error", err)
		os.Exit(1)
	}

	gateway := adapters.NewGateway(nil, cfg.GatewayURL)
	engine := rebalancer.NewEngine(store, reg)
	engine.SetOracle(gateway)
	engine.SetDex(gateway)
	engine.SetLoans(gateway)
	engine.SetSymbols(gateway)
	engine.SetState(manager)

	pauses, err := store.Pauses()
	if err != nil {
		logger.Error("load pauses", "error", err)
		os.Exit(1)
	}
	engine.SetPauses(pauses)

	collaterals, err := parseCollaterals(cfg.Collaterals)
	if err != nil {
		logger.Error("parse collaterals", "error", err)
		os.Exit(1)
	}

	daemon := rebalanced.New(engine, manager, gateway, logger,
		time.Duration(cfg.IntervalSeconds)*time.Second, collaterals)

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           daemon.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "address", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "error", err)
			stop()
		}
	}()

	logger.Info("rebalancing loop started", "interval", cfg.IntervalSeconds, "collaterals", len(collaterals))
	if err := daemon.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}

// bootstrap seeds governance parameters and registry entries that have never
// been set. Parameters already in state always win; the file cannot overwrite
// them.
func bootstrap(cfg *config.Config, store *params.Store, reg *registry.Registry) error {
	if addr := strings.TrimSpace(cfg.Bootstrap.Governance); addr != "" {
		if _, ok, err := store.Governance(); err != nil {
			return err
		} else if !ok {
			if !common.IsHexAddress(addr) {
				return fmt.Errorf("invalid governance address %q", addr)
			}
			if err := store.SetGovernance(common.HexToAddress(addr)); err != nil {
				return err
			}
		}
	}
	if addr := strings.TrimSpace(cfg.Bootstrap.Admin); addr != "" {
		if _, ok, err := store.Admin(); err != nil {
			return err
		} else if !ok {
			if !common.IsHexAddress(addr) {
				return fmt.Errorf("invalid admin address %q", addr)
			}
			if err := store.SetAdmin(common.HexToAddress(addr)); err != nil {
				return err
			}
		}
	}
	if raw := strings.TrimSpace(cfg.Bootstrap.PriceThreshold); raw != "" {
		if _, ok, err := store.PriceThreshold(); err != nil {
			return err
		} else if !ok {
			threshold, valid := new(big.Int).SetString(raw, 10)
			if !valid {
				return fmt.Errorf("invalid price threshold %q", raw)
			}
			if err := store.SetPriceThreshold(threshold); err != nil {
				return err
			}
		}
	}
	for name, raw := range cfg.Registry {
		if !common.IsHexAddress(raw) {
			return fmt.Errorf("invalid registry address %q for %s", raw, name)
		}
		if err := reg.SetAddress(name, common.HexToAddress(raw)); err != nil {
			return err
		}
	}
	return nil
}

func parseCollaterals(raw []string) ([]common.Address, error) {
	collaterals := make([]common.Address, 0, len(raw))
	for _, entry := range raw {
		trimmed := strings.TrimSpace(entry)
		if !common.IsHexAddress(trimmed) {
			return nil, fmt.Errorf("invalid collateral address %q", entry)
		}
		collaterals = append(collaterals, common.HexToAddress(trimmed))
	}
	return collaterals, nil
}

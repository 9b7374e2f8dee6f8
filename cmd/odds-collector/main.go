package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radieske/racing-odds-monitor/internal/betfair"
	"github.com/radieske/racing-odds-monitor/internal/racing/cycle"
	"github.com/radieske/racing-odds-monitor/internal/racing/ingest"
	"github.com/radieske/racing-odds-monitor/internal/racing/snapshot"
	"github.com/radieske/racing-odds-monitor/internal/shared/config"
	"github.com/radieske/racing-odds-monitor/internal/shared/db"
	"github.com/radieske/racing-odds-monitor/internal/shared/logger"
	"github.com/radieske/racing-odds-monitor/internal/shared/metrics"
)

// odds-collector roda o modo basic: grava o snapshot do dia que serve de
// baseline para o odds-comparator-worker.
func main() {
	cfg := config.LoadFor("odds-collector")
	flags, err := config.ParseFlags("odds-collector", os.Args[1:], &cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogFile)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checks := map[string]metrics.HealthFunc{}

	// Snapshot: Postgres em produção, memória só para dev
	var store snapshot.Store
	switch cfg.SnapshotBackend {
	case "memory":
		store = snapshot.NewMemory()
	default:
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		repo := snapshot.NewPostgres(pg)
		if err := repo.Migrate(ctx); err != nil {
			log.Fatal("snapshot migrate", zap.Error(err))
		}
		store = repo
		checks["postgres"] = pg.PingContext
	}

	source := betfair.New(cfg.BetfairURL, cfg.BetfairAppKey, cfg.BetfairSessionToken, cfg.BetfairCountries, log,
		betfair.WithRateLimit(cfg.BetfairRatePerSec, 1),
	)

	// Métricas Prometheus dos ciclos
	reg := metrics.NewRegistry()
	m := metrics.NewCycle(reg)
	srv := metrics.StartMetricsServer(cfg.MetricsPort, reg, checks)
	defer srv.Close()
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	runner := &cycle.Runner{
		Log:        log,
		Source:     source,
		Normalizer: ingest.NewNormalizer(log, cfg.Location),
		Store:      store,
		Ceiling:    cfg.PriceCeiling,
		Location:   cfg.Location,

		OnCycle:    func(mode cycle.Mode, outcome string) { m.Cycles.WithLabelValues(string(mode), outcome).Inc() },
		OnIngested: func(n int) { m.Ingested.Add(float64(n)) },
		OnStored:   func(n int) { m.Stored.Add(float64(n)) },
		OnFault:    func(kind string) { m.Faults.WithLabelValues(kind).Inc() },
	}

	if flags.Once {
		if _, err := runner.RunBasic(ctx); err != nil {
			log.Fatal("basic cycle failed", zap.Error(err))
		}
		return
	}

	log.Info("odds-collector started",
		zap.Duration("interval", cfg.PollInterval),
		zap.Float64("ceiling", cfg.PriceCeiling),
		zap.String("snapshot_backend", cfg.SnapshotBackend),
	)
	if err := runner.Loop(ctx, cycle.ModeBasic, cfg.PollInterval); err != nil && ctx.Err() == nil {
		log.Fatal("collector stopped with error", zap.Error(err))
	}
	log.Info("odds-collector stopped")
}

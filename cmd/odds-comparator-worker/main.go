package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radieske/racing-odds-monitor/internal/betfair"
	"github.com/radieske/racing-odds-monitor/internal/racing/alert"
	"github.com/radieske/racing-odds-monitor/internal/racing/compare"
	"github.com/radieske/racing-odds-monitor/internal/racing/cycle"
	"github.com/radieske/racing-odds-monitor/internal/racing/ingest"
	"github.com/radieske/racing-odds-monitor/internal/racing/snapshot"
	sharedcache "github.com/radieske/racing-odds-monitor/internal/shared/cache"
	"github.com/radieske/racing-odds-monitor/internal/shared/config"
	"github.com/radieske/racing-odds-monitor/internal/shared/db"
	"github.com/radieske/racing-odds-monitor/internal/shared/logger"
	"github.com/radieske/racing-odds-monitor/internal/shared/metrics"
	"github.com/radieske/racing-odds-monitor/pkg/contracts/topics"
)

// odds-comparator-worker roda o modo compare: compara com o baseline do dia,
// publica a tabela ranqueada no Redis e os alertas novos no Kafka.
func main() {
	cfg := config.LoadFor("odds-comparator-worker")
	flags, err := config.ParseFlags("odds-comparator-worker", os.Args[1:], &cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogFile)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checks := map[string]metrics.HealthFunc{}

	var store snapshot.Store
	switch cfg.SnapshotBackend {
	case "memory":
		// sem baseline compartilhado; o primeiro ciclo basic roda aqui mesmo
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

	// Redis: última comparação + pub/sub (e ledger, se configurado)
	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()
	checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

	var ledger alert.Ledger
	switch cfg.LedgerBackend {
	case "file":
		ledger = alert.NewFileLedger(cfg.LedgerDir)
	default:
		ledger = alert.NewRedisLedger(redisClient, topics.LedgerKeyPrefix, 0)
	}

	alerts, err := alert.NewKafkaPublisher(cfg.Brokers(), cfg.TopicAlerts, cfg.Env, log)
	if err != nil {
		log.Fatal("kafka publisher", zap.Error(err))
	}
	defer alerts.Close()

	source := betfair.New(cfg.BetfairURL, cfg.BetfairAppKey, cfg.BetfairSessionToken, cfg.BetfairCountries, log,
		betfair.WithRateLimit(cfg.BetfairRatePerSec, 1),
	)

	reg := metrics.NewRegistry()
	m := metrics.NewCycle(reg)
	srv := metrics.StartMetricsServer(cfg.MetricsPort, reg, checks)
	defer srv.Close()
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	runner := &cycle.Runner{
		Log:         log,
		Source:      source,
		Normalizer:  ingest.NewNormalizer(log, cfg.Location),
		Store:       store,
		Ledger:      ledger,
		Alerts:      alerts,
		Comparisons: compare.NewRedisPublisher(redisClient, cfg.RedisPubSubChannel, cfg.ComparisonTTL),
		Ceiling:     cfg.PriceCeiling,
		RowCap:      cfg.RowCap,
		Threshold:   cfg.AlertThreshold,
		Exclusive:   cfg.LedgerExclusive,
		Location:    cfg.Location,

		OnCycle:    func(mode cycle.Mode, outcome string) { m.Cycles.WithLabelValues(string(mode), outcome).Inc() },
		OnIngested: func(n int) { m.Ingested.Add(float64(n)) },
		OnStored:   func(n int) { m.Stored.Add(float64(n)) },
		OnFault:    func(kind string) { m.Faults.WithLabelValues(kind).Inc() },
		OnDiffRows: func(n int) { m.DiffRows.Observe(float64(n)) },
		OnAlerted:  func(n int) { m.Alerted.Add(float64(n)) },
	}

	if cfg.SnapshotBackend == "memory" {
		if _, err := runner.RunBasic(ctx); err != nil {
			log.Fatal("baseline cycle failed", zap.Error(err))
		}
	}

	if flags.Once {
		if _, err := runner.RunCompare(ctx); err != nil {
			log.Fatal("compare cycle failed", zap.Error(err))
		}
		return
	}

	log.Info("odds-comparator-worker started",
		zap.Duration("interval", cfg.PollInterval),
		zap.Float64("ceiling", cfg.PriceCeiling),
		zap.Int("row_cap", cfg.RowCap),
		zap.Float64("threshold", cfg.AlertThreshold),
		zap.String("ledger_backend", cfg.LedgerBackend),
		zap.Bool("exclusive", cfg.LedgerExclusive),
	)
	if err := runner.Loop(ctx, cycle.ModeCompare, cfg.PollInterval); err != nil && ctx.Err() == nil {
		log.Fatal("comparator stopped with error", zap.Error(err))
	}
	log.Info("odds-comparator-worker stopped")
}

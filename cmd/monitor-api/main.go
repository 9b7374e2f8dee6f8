package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/racing-odds-monitor/internal/monitor-api/feed"
	httpapi "github.com/radieske/racing-odds-monitor/internal/monitor-api/http"
	"github.com/radieske/racing-odds-monitor/internal/monitor-api/ws"
	"github.com/radieske/racing-odds-monitor/internal/racing/snapshot"
	sharedcache "github.com/radieske/racing-odds-monitor/internal/shared/cache"
	"github.com/radieske/racing-odds-monitor/internal/shared/config"
	"github.com/radieske/racing-odds-monitor/internal/shared/db"
	"github.com/radieske/racing-odds-monitor/internal/shared/kafka"
	"github.com/radieske/racing-odds-monitor/internal/shared/logger"
	"github.com/radieske/racing-odds-monitor/internal/shared/metrics"
	"github.com/radieske/racing-odds-monitor/pkg/contracts/events"
)

// monitor-api serve a última comparação, a contagem de corridas e os alertas
// recentes, via REST e WebSocket. Só leitura: os ciclos rodam nos workers.
func main() {
	cfg := config.LoadFor("monitor-api")
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
		store = snapshot.NewMemory()
	default:
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		store = snapshot.NewPostgres(pg)
		checks["postgres"] = pg.PingContext
	}

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()
	checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }

	reg := metrics.NewRegistry()
	feedErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitor_alert_feed_errors_total", Help: "erros do consumer de alertas por estágio",
	}, []string{"stage"})
	alertsSeen := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monitor_alerts_received_total", Help: "alertas recebidos do Kafka",
	})
	reg.MustRegister(feedErrors, alertsSeen)

	// WebSocket: comparações via Redis Pub/Sub, alertas via Kafka
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	// Sem consumer group: cada réplica lê o tópico inteiro e refaz os
	// últimos alertas ao subir
	const alertBacklog = 100
	recent := feed.NewRecent(alertBacklog)
	reader, err := kafka.NewTailReader(ctx, cfg.Brokers(), cfg.TopicAlerts, alertBacklog)
	if err != nil {
		log.Fatal("kafka alert reader", zap.Error(err))
	}
	defer reader.Close()
	consumer := &feed.Consumer{
		Log:    log,
		Reader: reader,
		Recent: recent,
		OnAlert: func(a events.AlertRaised) {
			alertsSeen.Inc()
			hub.Broadcast(ws.Update{Topic: ws.TopicAlerts, Payload: a})
		},
		OnError: func(stage string) { feedErrors.WithLabelValues(stage).Inc() },
	}
	go func() {
		if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("alert feed stopped", zap.Error(err))
		}
	}()

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, checks)
	defer msrv.Close()

	api := &httpapi.API{
		Comparisons: httpapi.RedisComparisons{Client: redisClient},
		Store:       store,
		Alerts:      recent,
		Hub:         hub,
		Location:    cfg.Location,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpapi.WithCORS(api.Router()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("monitor-api listening",
		zap.String("addr", srv.Addr),
		zap.String("metrics_port", cfg.MetricsPort),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("monitor-api failed", zap.Error(err))
	}
	log.Info("monitor-api stopped")
}

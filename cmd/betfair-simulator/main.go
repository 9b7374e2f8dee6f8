package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/racing-odds-monitor/internal/betfair-simulator/exchange"
	"github.com/radieske/racing-odds-monitor/internal/shared/config"
	"github.com/radieske/racing-odds-monitor/internal/shared/logger"
	"github.com/radieske/racing-odds-monitor/internal/shared/metrics"
)

// betfair-simulator expõe uma Betting API fake para rodar o pipeline local
// sem credenciais. Aponte BETFAIR_URL para http://localhost:8081/json-rpc/v1.
func main() {
	cfg := config.LoadFor("betfair-simulator")
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := metrics.NewRegistry()
	rpcCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "betfair_sim_rpc_calls_total",
		Help: "Chamadas JSON-RPC atendidas por método",
	}, []string{"method"})
	ticks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "betfair_sim_ticks_total",
		Help: "Atualizações de preço aplicadas",
	})
	reg.MustRegister(rpcCalls, ticks)

	x := exchange.New(time.Now().In(cfg.Location), time.Now().UnixNano(), log)
	x.OnCall = func(method string) { rpcCalls.WithLabelValues(method).Inc() }

	// Deriva preços a cada 3 segundos
	go func() {
		ticker := time.NewTicker(3 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				x.Tick()
				ticks.Inc()
			}
		}
	}()

	msrv := metrics.StartMetricsServer(cfg.MetricsPort, reg, nil)
	defer msrv.Close()

	r := chi.NewRouter()
	r.Post("/json-rpc/v1", x.ServeHTTP)
	r.Post("/exchange/betting/json-rpc/v1", x.ServeHTTP)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	log.Info("betfair simulator running",
		zap.String("addr", srv.Addr),
		zap.String("metrics_port", cfg.MetricsPort),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("simulator server error", zap.Error(err))
	}
}

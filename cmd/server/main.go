package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vanshika/ownergraph/backend/internal/bootstrap"
	"github.com/vanshika/ownergraph/backend/internal/config"
	"github.com/vanshika/ownergraph/backend/internal/logging"
	"github.com/vanshika/ownergraph/backend/internal/metrics"
	"github.com/vanshika/ownergraph/backend/internal/ownership"
	"github.com/vanshika/ownergraph/backend/internal/server"
	"github.com/vanshika/ownergraph/backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	policies, err := bootstrap.Policies(cfg.Policy)
	if err != nil {
		logger.Error("failed to load UBO policies", "error", err)
		os.Exit(1)
	}

	store, err := bootstrap.OpenStore(ctx, logger, cfg.Graph)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	svc := service.NewComplianceService(store, policies)
	svc.WithDashboardConcurrency(cfg.DashboardConcurrency)
	svc.WithRiskWeights(ownership.RiskWeights{
		Nationality: cfg.Risk.NationalityWeight,
		Industry:    cfg.Risk.IndustryWeight,
		Complexity:  cfg.Risk.ComplexityWeight,
	})

	deps := server.RouterDependencies{
		Health:           server.StoreHealth{Client: store.Client},
		API:              server.NewAPIHandlers(logger, svc, cfg.DefaultOrgID),
		AllowedOrigins:   cfg.HTTP.AllowedOrigins(),
		AllowCredentials: true,
	}
	if cfg.HTTP.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m := metrics.New(reg)
		svc.WithMetrics(m)
		deps.Metrics = m
		deps.Gatherer = reg
	}

	srv := server.New(logger, cfg.HTTP, server.NewRouter(logger, deps))
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

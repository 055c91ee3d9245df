package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/oms-labs/lotpilot/internal/config"
	"github.com/oms-labs/lotpilot/internal/repository/mongodb"
	"github.com/oms-labs/lotpilot/internal/scheduler"
	"github.com/oms-labs/lotpilot/internal/server/handlers"
	"github.com/oms-labs/lotpilot/internal/server/router"
	allocationsvc "github.com/oms-labs/lotpilot/internal/service/allocation"
	extractionsvc "github.com/oms-labs/lotpilot/internal/service/extraction"
	orderssvc "github.com/oms-labs/lotpilot/internal/service/orders"
	"github.com/oms-labs/lotpilot/pkg/clients/anthropic"
	"github.com/oms-labs/lotpilot/pkg/clients/businesscentral"
	"github.com/oms-labs/lotpilot/pkg/clients/graph"
	"github.com/oms-labs/lotpilot/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoRepo, err := mongodb.NewMongoRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	bcClient := businesscentral.New(cfg.BusinessCentral, baseLogger.Named("clients.bc"))

	engine := allocationsvc.NewEngine(baseLogger.Named("svc.allocation"))
	allocationSvc := allocationsvc.NewService(engine, bcClient, bcClient, bcClient, bcClient, mongoRepo, baseLogger.Named("svc.allocation"))
	orderSvc := orderssvc.NewService(bcClient, allocationSvc, baseLogger.Named("svc.orders"))

	// The document intake pipeline only runs when Graph and Anthropic
	// credentials are configured.
	var extractionSvc *extractionsvc.Service
	if cfg.IntakeEnabled() {
		aiClient := anthropic.NewClient(cfg.AI.AnthropicKey)
		graphClient := graph.New(cfg.Graph, baseLogger.Named("clients.graph"))
		extractionSvc = extractionsvc.NewService(graphClient, aiClient, bcClient, cfg.Graph.InboxFolder, baseLogger.Named("svc.extraction"))
		baseLogger.Info("document intake enabled", zap.String("inbox", cfg.Graph.InboxFolder))
	} else {
		baseLogger.Warn("graph or anthropic credentials missing, document intake disabled")
	}

	var extractor handlers.DocumentExtractor
	if extractionSvc != nil {
		extractor = extractionSvc
	}
	orderHandler := handlers.NewOrderHandler(allocationSvc, orderSvc, extractor, mongoRepo, baseLogger.Named("handlers.orders"))
	ginEngine := router.New(orderHandler, baseLogger.Named("router"))

	if extractionSvc != nil {
		sched := scheduler.NewScheduler(extractionSvc, orderSvc, baseLogger.Named("scheduler"))
		if err := sched.Start(cfg.Intake.CronSchedule); err != nil {
			baseLogger.Fatal("failed to start intake scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      ginEngine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	activationhandler "cdcvoucher/internal/activation/handler"
	activationservice "cdcvoucher/internal/activation/service"
	activationstore "cdcvoucher/internal/activation/store"
	householdhandler "cdcvoucher/internal/household/handler"
	householdmetrics "cdcvoucher/internal/household/metrics"
	hhmodels "cdcvoucher/internal/household/models"
	householdservice "cdcvoucher/internal/household/service"
	householdstore "cdcvoucher/internal/household/store"
	ledgerstore "cdcvoucher/internal/ledger/store"
	merchanthandler "cdcvoucher/internal/merchant/handler"
	merchantservice "cdcvoucher/internal/merchant/service"
	merchantstore "cdcvoucher/internal/merchant/store"
	"cdcvoucher/internal/platform/config"
	"cdcvoucher/internal/platform/httpserver"
	"cdcvoucher/internal/platform/logger"
	platformredis "cdcvoucher/internal/platform/redis"
	redemptionhandler "cdcvoucher/internal/redemption/handler"
	redemptionmetrics "cdcvoucher/internal/redemption/metrics"
	redemptionservice "cdcvoucher/internal/redemption/service"
	reporthandler "cdcvoucher/internal/report/handler"
	reportservice "cdcvoucher/internal/report/service"
	httptransport "cdcvoucher/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx := context.Background()

	if err := hhmodels.ValidateCounts(cfg.VoucherCounts); err != nil {
		log.Error("invalid voucher count table", "error", err)
		os.Exit(1)
	}

	households := householdstore.NewFile(cfg.DataDir, cfg.VoucherCounts, log)
	if err := households.Load(ctx); err != nil {
		log.Error("load household state", "error", err)
		os.Exit(1)
	}
	if repaired, err := households.EnsureAllInitialized(ctx); err != nil {
		log.Error("initialize voucher pools", "error", err)
		os.Exit(1)
	} else if repaired > 0 {
		log.Warn("initialized missing voucher pools", "households", repaired)
	}

	var activations activationstore.Store
	var redisClient *platformredis.Client
	if cfg.RedisURL != "" {
		var err error
		redisClient, err = platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		activations = activationstore.NewRedis(redisClient.Client)
		log.Info("activation store: redis")
	} else {
		activations = activationstore.NewFile(cfg.DataDir, log)
	}

	var ledger ledgerstore.Store
	if cfg.PostgresURL != "" {
		db, err := ledgerstore.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		pg := ledgerstore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Error("ensure ledger schema", "error", err)
			os.Exit(1)
		}
		ledger = pg
		log.Info("ledger store: postgres")
	} else {
		ledger = ledgerstore.NewFile(cfg.DataDir)
	}

	merchants := merchantstore.NewFile(cfg.DataDir)

	patternOpt, err := householdservice.WithNationalIDPattern(cfg.NationalIDPattern)
	if err != nil {
		log.Error("invalid national id pattern", "error", err)
		os.Exit(1)
	}
	householdSvc := householdservice.New(households,
		householdservice.WithLogger(log),
		householdservice.WithMetrics(householdmetrics.New()),
		patternOpt,
	)
	activationSvc := activationservice.New(activations, households,
		activationservice.WithLogger(log))
	merchantSvc := merchantservice.New(merchants,
		merchantservice.WithLogger(log),
		merchantservice.WithMatchPolicy(cfg.MerchantMatch))
	redemptionSvc := redemptionservice.New(activations, households, ledger,
		redemptionservice.WithLogger(log),
		redemptionservice.WithMetrics(redemptionmetrics.New()))
	reportSvc := reportservice.New(ledger, merchants,
		reportservice.WithLogger(log))

	router := httptransport.NewRouter(log,
		householdhandler.New(householdSvc, log),
		activationhandler.New(activationSvc, log),
		merchanthandler.New(merchantSvc, log),
		redemptionhandler.New(redemptionSvc, merchantSvc, log),
		reporthandler.New(reportSvc, log),
	)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting voucher service", "addr", cfg.Addr, "data_dir", cfg.DataDir)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

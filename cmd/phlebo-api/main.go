// README: Entry point; loads config, runs migrations, wires services, serves HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phlebo/internal/config"
	httptransport "phlebo/internal/http"
	"phlebo/internal/infra"
	"phlebo/internal/logger"
	"phlebo/internal/maps"
	"phlebo/internal/modules/assignment"
	"phlebo/internal/modules/capacity"
	"phlebo/internal/modules/collector"
	"phlebo/internal/modules/dispatch"
	"phlebo/internal/modules/location"
	"phlebo/internal/modules/matching"
	"phlebo/internal/modules/order"
	"phlebo/internal/modules/pricing"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := infra.Migrate(cfg.DB.DSN, cfg.DB.MigrationsDir); err != nil {
		log.Error("migrate", logger.Error(err))
		os.Exit(1)
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Error("database connect", logger.Error(err))
		os.Exit(1)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr, cfg.Redis.Password)
	defer redisClient.Close()

	collectorStore := collector.NewStore(dbPool)
	collectorSvc := collector.NewService(collectorStore)

	ledger := capacity.NewStore(dbPool)

	locationStore := location.NewStore(redisClient, dbPool)
	locationSvc := location.NewService(locationStore, collectorStore, cfg.Dispatch.SnapshotEveryN)

	pricingStore := pricing.NewStore(dbPool)
	pricingSvc := pricing.NewService(pricingStore)

	orderStore := order.NewStore(dbPool)
	orderSvc := order.NewService(orderStore, ledger)

	var geocoder httptransport.Geocoder
	if cfg.Maps.APIKey != "" {
		geocoder, err = maps.NewGeocoder(cfg.Maps.APIKey)
		if err != nil {
			log.Error("maps client", logger.Error(err))
			os.Exit(1)
		}
	}

	matchingEngine := matching.NewEngine(collectorSvc, ledger, locationSvc, pricingSvc, cfg.Dispatch.MaxCandidates)
	assignmentSvc := assignment.NewService(orderStore, collectorStore, ledger, locationSvc, pricingSvc, log)
	view := dispatch.NewView(orderStore, locationSvc)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Orders:     orderSvc,
		Collectors: collectorSvc,
		Locations:  locationSvc,
		Matching:   matchingEngine,
		Assignment: assignmentSvc,
		View:       view,
		Geocoder:   geocoder,
		Log:        log,
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: handler,
	}

	go func() {
		log.Info("listening", logger.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", logger.Error(err))
	}
}

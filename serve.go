package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/amirphl/telecall/app/handlers"
	"github.com/amirphl/telecall/app/middleware"
	"github.com/amirphl/telecall/app/router"
	businessflow "github.com/amirphl/telecall/business_flow"
	"github.com/amirphl/telecall/migrations"
	"github.com/amirphl/telecall/repository"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime()
			if err != nil {
				return err
			}
			defer rt.close()
			return serve(rt)
		},
	}
}

func serve(rt *runtime) error {
	cfg := rt.cfg
	logger := rt.logger

	db, rc, stores, err := rt.openStores()
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	var stopFuncs []func()
	if rc != nil {
		defer rc.Close()
		stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, cfg.Cache.HealthCheckInterval, logger))
	}

	if cfg.Database.AutoMigrate {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		if err := migrations.Up(sqlDB, logger); err != nil {
			return err
		}
	}

	recordRepo := repository.NewTelecallingRecordRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	tokenService, err := newTokenService(cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	allocator := businessflow.NewAppointmentAllocator(stores.counters, stores.pool, logger)
	reclaimer := businessflow.NewAppointmentReclaimer(stores.pool, logger)
	telecallingFlow := businessflow.NewTelecallingFlow(db, recordRepo, auditRepo, allocator, reclaimer, cfg.Appointment.Timezone, logger)
	adminFlow := businessflow.NewAdminAppointmentFlow(stores.counters, stores.pool, stores.resetter, auditRepo, stores.name, cfg.Appointment.Timezone, logger)

	r := router.NewFiberRouter(
		router.Options{
			AllowedOrigins:   cfg.Security.AllowedOrigins,
			RateLimit:        cfg.Security.GlobalRateLimit,
			MetricsEnabled:   cfg.Metrics.Enabled,
			MetricsPath:      cfg.Metrics.Path,
			AccessLogEnabled: cfg.Logging.EnableAccessLog,
			BodyLimit:        cfg.Server.BodyLimit,
			ReadTimeout:      cfg.Server.ReadTimeout,
			WriteTimeout:     cfg.Server.WriteTimeout,
			IdleTimeout:      cfg.Server.IdleTimeout,
		},
		logger,
		middleware.NewAuthMiddleware(tokenService),
		handlers.NewAdminAuthHandler(tokenService),
		handlers.NewTelecallingHandler(telecallingFlow, logger),
		handlers.NewAppointmentAdminHandler(adminFlow, logger),
	)
	r.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info("Server starting", "address", address, "appointment_store", stores.name)
		errChan <- r.Start(address)
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server stopped: %w", err)
	case <-sigChan:
	}

	logger.Info("Shutting down gracefully...")
	for _, fn := range stopFuncs {
		fn()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := r.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}

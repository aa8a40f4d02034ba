package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/amirphl/telecall/app/services"
	"github.com/amirphl/telecall/config"
	"github.com/amirphl/telecall/logging"
	"github.com/amirphl/telecall/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// runtime holds what every command needs once configuration is loaded
type runtime struct {
	cfg       *config.ProductionConfig
	logger    *slog.Logger
	logCloser io.Closer
}

func loadRuntime() (*runtime, error) {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	return &runtime{cfg: cfg, logger: logger, logCloser: closer}, nil
}

func (rt *runtime) close() {
	_ = rt.logCloser.Close()
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(
			slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
			gormlogger.Config{
				SlowThreshold:             cfg.SlowQueryTime,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns,
	)
	return db, nil
}

// initializeCache connects to Redis when it is enabled
func initializeCache(cfg config.CacheConfig, logger *slog.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", "db", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings Redis to surface connectivity
// problems. The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *slog.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", "error", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// appointmentStores is the backend chosen by APPOINTMENT_STORE
type appointmentStores struct {
	name     string
	counters repository.YearCounterRepository
	pool     repository.RecycledAppointmentIDRepository
	resetter repository.AppointmentAllocatorResetter
}

func newAppointmentStores(cfg config.AppointmentConfig, db *gorm.DB, rc *redis.Client) (*appointmentStores, error) {
	switch cfg.Store {
	case config.AppointmentStoreRedis:
		if rc == nil {
			return nil, fmt.Errorf("redis appointment store requires an enabled cache")
		}
		return &appointmentStores{
			name:     config.AppointmentStoreRedis,
			counters: repository.NewRedisYearCounterRepository(rc, cfg.RedisKeyPrefix),
			pool:     repository.NewRedisRecycledAppointmentIDRepository(rc, cfg.RedisKeyPrefix),
			resetter: repository.NewRedisAppointmentAllocatorResetter(rc, cfg.RedisKeyPrefix),
		}, nil
	case config.AppointmentStoreSQL, "":
		counters := repository.NewYearCounterRepository(db, cfg.CounterPrefix)
		pool := repository.NewRecycledAppointmentIDRepository(db)
		return &appointmentStores{
			name:     config.AppointmentStoreSQL,
			counters: counters,
			pool:     pool,
			resetter: repository.NewSQLAppointmentAllocatorResetter(db, counters, pool),
		}, nil
	default:
		return nil, fmt.Errorf("unknown appointment store %q", cfg.Store)
	}
}

// openStores connects the database and, when configured, Redis
func (rt *runtime) openStores() (*gorm.DB, *redis.Client, *appointmentStores, error) {
	db, err := initializeDatabase(rt.cfg.Database, rt.logger)
	if err != nil {
		return nil, nil, nil, err
	}

	rc, err := initializeCache(rt.cfg.Cache, rt.logger)
	if err != nil {
		closeDatabase(db)
		return nil, nil, nil, err
	}

	stores, err := newAppointmentStores(rt.cfg.Appointment, db, rc)
	if err != nil {
		closeDatabase(db)
		if rc != nil {
			_ = rc.Close()
		}
		return nil, nil, nil, err
	}
	return db, rc, stores, nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newTokenService(cfg config.JWTConfig) (services.TokenService, error) {
	return services.NewTokenService(
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
		cfg.Issuer,
		cfg.Audience,
		cfg.UseRSAKeys,
		cfg.PrivateKey,
		cfg.PublicKey,
		cfg.SecretKey,
	)
}

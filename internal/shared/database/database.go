package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"courtly/internal/shared/config"
	"courtly/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the booking store and the catalog cache.
type DB struct {
	PostgreSQL *gorm.DB
	Redis      *redis.Client
}

// InitDB opens PostgreSQL, migrates the courtly schema and opens Redis.
func InitDB(cfg *config.Config) (*DB, error) {
	pg, err := openBookingStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open booking store: %w", err)
	}
	if err := Migrate(pg); err != nil {
		return nil, fmt.Errorf("failed to migrate courtly schema: %w", err)
	}
	logger.GetDefault().Info("Courtly schema migrated", slog.Int("tables", len(tables)))

	rdb, err := openCatalogCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog cache: %w", err)
	}

	return &DB{
		PostgreSQL: pg,
		Redis:      rdb,
	}, nil
}

func openBookingStore(cfg *config.Config) (*gorm.DB, error) {
	// every query in development, errors and slow queries otherwise
	level := gormlogger.Warn
	if cfg.IsDevelopment() {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: newQueryLogger(logger.GetDefault(), level, cfg.Database.SlowQueryThreshold),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s on %s: %w", cfg.Database.Name, cfg.Database.Host, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping %s on %s: %w", cfg.Database.Name, cfg.Database.Host, err)
	}

	logger.GetDefault().Info("Booking store connected",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Name),
		slog.Int("max_open_conns", cfg.Database.MaxOpenConns),
	)
	return db, nil
}

func openCatalogCache(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.PoolSize / 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to reach Redis at %s: %w", cfg.Redis.Addr, err)
	}

	logger.GetDefault().Info("Catalog cache connected", slog.String("addr", cfg.Redis.Addr), slog.Int("db", cfg.Redis.DB))
	return rdb, nil
}

// Close closes both connections and reports every failure.
func (db *DB) Close() error {
	var errs []string
	if db.PostgreSQL != nil {
		if sqlDB, err := db.PostgreSQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, "booking store: "+err.Error())
			}
		}
	}
	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			errs = append(errs, "catalog cache: "+err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close connections: %s", strings.Join(errs, "; "))
	}

	logger.GetDefault().Info("Booking store and catalog cache closed")
	return nil
}

// HealthCheck pings both connections and verifies the courtly tables exist.
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.PostgreSQL != nil {
		sqlDB, err := db.PostgreSQL.DB()
		if err != nil {
			return fmt.Errorf("booking store unavailable: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("booking store ping failed: %w", err)
		}
		if err := checkTables(db.PostgreSQL.WithContext(ctx).Migrator()); err != nil {
			return err
		}
	}
	if db.Redis != nil {
		if err := db.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("catalog cache ping failed: %w", err)
		}
	}
	return nil
}

// tableChecker is the part of gorm.Migrator the health check needs.
type tableChecker interface {
	HasTable(dst interface{}) bool
}

func checkTables(m tableChecker) error {
	var missing []string
	for _, t := range tables {
		if !m.HasTable(t.model) {
			missing = append(missing, t.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("courtly schema incomplete, missing tables: %s", strings.Join(missing, ", "))
	}
	return nil
}

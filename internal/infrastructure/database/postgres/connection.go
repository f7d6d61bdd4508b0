// internal/infrastructure/database/postgres/connection.go
package postgres

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hoodskool/hoodskool-backend/internal/config"
)

// Connection wraps the gorm database handle
type Connection struct {
	DB     *gorm.DB
	logger logrus.FieldLogger
}

// NewConnection opens a PostgreSQL connection pool
func NewConnection(cfg *config.Config, logger logrus.FieldLogger) (*Connection, error) {
	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() && cfg.App.Debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Postgres.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Postgres.ConnectTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"host":     cfg.Postgres.Host,
		"database": cfg.Postgres.Name,
	}).Info("Connected to PostgreSQL")

	return &Connection{DB: db, logger: logger}, nil
}

// Close closes the underlying pool
func (c *Connection) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the gorm handle
func (c *Connection) GetDB() *gorm.DB {
	return c.DB
}

// Health checks the database connection
func (c *Connection) Health(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

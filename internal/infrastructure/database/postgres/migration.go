// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger logrus.FieldLogger) *Migration {
	return &Migration{
		db:     db,
		logger: logger.WithField("component", "migration"),
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("Running database auto-migrations")

	models := []interface{}{
		&CartItemRecord{},
	}

	for _, model := range models {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates the composite indexes AutoMigrate does not declare
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_cart_items_user_product ON cart_items(user_id, product_id)",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_user_created ON cart_items(user_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_updated_at ON cart_items(updated_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).WithField("sql", indexSQL).Warn("Failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": successCount,
		"failed":  failCount,
	}).Info("Index creation completed")

	return nil
}

// PruneStaleCarts deletes cart lines untouched since before the cutoff
// expressed in days, returning the number of removed rows.
func (m *Migration) PruneStaleCarts(days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}

	result := m.db.Exec(
		"DELETE FROM cart_items WHERE updated_at < NOW() - make_interval(days => ?)", days,
	)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune stale carts: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		m.logger.WithField("rows", result.RowsAffected).Info("Pruned stale cart items")
	}
	return result.RowsAffected, nil
}

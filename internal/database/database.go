package database

import (
	"fmt"
	"time"

	"github.com/winefeed/winefeed-api/internal/config"
	"github.com/winefeed/winefeed-api/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := cfg.ConnectionString()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// HealthCheck pings the database connection
func HealthCheck(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Ping()
}

// AutoMigrate runs automatic migrations (for development only; production
// schemas are managed with goose, see cmd/migrate)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Tenant{},
		&domain.Restaurant{},
		&domain.Supplier{},
		&domain.Importer{},
		&domain.RestaurantMember{},
		&domain.SupplierMember{},
		&domain.AdminMember{},
		&domain.Offer{},
		&domain.OfferLine{},
		&domain.OfferEvent{},
		&domain.Order{},
		&domain.OrderLine{},
		&domain.OrderEvent{},
		&domain.ImportCase{},
		&domain.ProductIdentifier{},
		&domain.WineMaster{},
		&domain.WineSku{},
		&domain.MatchResult{},
	)
}

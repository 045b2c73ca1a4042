package service

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/winefeed/winefeed-api/internal/database"
	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func newOfferService(t *testing.T, db *gorm.DB) *OfferService {
	t.Helper()
	return NewOfferService(repository.NewOfferRepository(db), zap.NewNop(), db)
}

func sellerActor(tenantID uuid.UUID, supplierID uuid.UUID) *domain.Actor {
	return &domain.Actor{
		UserID:     uuid.New(),
		TenantID:   tenantID,
		Roles:      []domain.Role{domain.RoleSeller},
		SupplierID: &supplierID,
	}
}

func restaurantActor(tenantID uuid.UUID, restaurantID uuid.UUID) *domain.Actor {
	return &domain.Actor{
		UserID:       uuid.New(),
		TenantID:     tenantID,
		Roles:        []domain.Role{domain.RoleRestaurant},
		RestaurantID: &restaurantID,
	}
}

func seedSupplier(t *testing.T, db *gorm.DB, tenantID uuid.UUID, supplierType domain.SupplierType, defaultImporterID *uuid.UUID) *domain.Supplier {
	t.Helper()
	supplier := &domain.Supplier{
		TenantID:          tenantID,
		Name:              "Test Supplier",
		Type:              supplierType,
		OrgNumber:         "990011223",
		DefaultImporterID: defaultImporterID,
	}
	require.NoError(t, db.Create(supplier).Error)
	return supplier
}

func offerRequest(supplierID uuid.UUID) *domain.CreateOfferRequest {
	return &domain.CreateOfferRequest{
		PurchaseRequestID: uuid.New(),
		RestaurantID:      uuid.New(),
		SupplierID:        supplierID,
		CurrencyCode:      "EUR",
		Lines: []domain.OfferLineRequest{
			{WineName: "Barolo Riserva", Vintage: 2018, Quantity: 12, UnitPrice: 42.50},
			{WineName: "Chablis Premier Cru", Vintage: 2021, Quantity: 6, UnitPrice: 28.00},
		},
	}
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/domain"
	"gorm.io/gorm"
)

// SupplierRepository provides tenant-scoped access to suppliers
type SupplierRepository struct {
	db *gorm.DB
}

func NewSupplierRepository(db *gorm.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

func (r *SupplierRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Supplier, error) {
	var supplier domain.Supplier
	query := scopeTenant(r.db.WithContext(ctx), tenantID).Where("id = ?", id)
	if err := query.First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *SupplierRepository) Create(ctx context.Context, supplier *domain.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

// ImporterRepository provides tenant-scoped access to importers
type ImporterRepository struct {
	db *gorm.DB
}

func NewImporterRepository(db *gorm.DB) *ImporterRepository {
	return &ImporterRepository{db: db}
}

func (r *ImporterRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Importer, error) {
	var importer domain.Importer
	query := scopeTenant(r.db.WithContext(ctx), tenantID).Where("id = ?", id)
	if err := query.First(&importer).Error; err != nil {
		return nil, err
	}
	return &importer, nil
}

// FindByOrgNumber returns the importer registered under the organization
// number within the tenant, or nil when there is none. Used for the SELLER
// to IOR role inheritance check.
func (r *ImporterRepository) FindByOrgNumber(ctx context.Context, tenantID uuid.UUID, orgNumber string) (*domain.Importer, error) {
	if orgNumber == "" {
		return nil, nil
	}
	var importer domain.Importer
	query := scopeTenant(r.db.WithContext(ctx), tenantID).Where("org_number = ?", orgNumber)
	if err := query.First(&importer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &importer, nil
}

func (r *ImporterRepository) Create(ctx context.Context, importer *domain.Importer) error {
	return r.db.WithContext(ctx).Create(importer).Error
}

// RestaurantRepository provides tenant-scoped access to restaurants
type RestaurantRepository struct {
	db *gorm.DB
}

func NewRestaurantRepository(db *gorm.DB) *RestaurantRepository {
	return &RestaurantRepository{db: db}
}

func (r *RestaurantRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Restaurant, error) {
	var restaurant domain.Restaurant
	query := scopeTenant(r.db.WithContext(ctx), tenantID).Where("id = ?", id)
	if err := query.First(&restaurant).Error; err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *RestaurantRepository) Create(ctx context.Context, restaurant *domain.Restaurant) error {
	return r.db.WithContext(ctx).Create(restaurant).Error
}

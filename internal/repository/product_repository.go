package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/domain"
	"gorm.io/gorm"
)

// ProductRepository provides tenant-scoped access to the canonical product
// registry: identifiers, wine masters and wine skus. Registry rows are
// insert-only; deduplication works by registering more identifiers against
// existing entities, never by rewriting them.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindIdentifier looks up a (type, value) mapping within the tenant.
// ownerID narrows SKU-scoped identifier types to one producer or importer;
// pass nil for globally scoped types (GTIN, LWIN). Returns nil when absent.
func (r *ProductRepository) FindIdentifier(ctx context.Context, tenantID uuid.UUID, idType domain.IdentifierType, value string, ownerID *uuid.UUID) (*domain.ProductIdentifier, error) {
	var identifier domain.ProductIdentifier
	query := scopeTenant(r.db.WithContext(ctx), tenantID).
		Where("type = ?", idType).
		Where("value = ?", value)
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	} else {
		query = query.Where("owner_id IS NULL")
	}
	if err := query.First(&identifier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &identifier, nil
}

// RegisterIdentifier records a new (type, value) mapping onto an entity
func (r *ProductRepository) RegisterIdentifier(ctx context.Context, identifier *domain.ProductIdentifier) error {
	return r.db.WithContext(ctx).Create(identifier).Error
}

// CreateWineMaster inserts a new canonical wine record
func (r *ProductRepository) CreateWineMaster(ctx context.Context, master *domain.WineMaster) error {
	return r.db.WithContext(ctx).Create(master).Error
}

// CreateWineSku inserts a new sellable variant of a wine master
func (r *ProductRepository) CreateWineSku(ctx context.Context, sku *domain.WineSku) error {
	return r.db.WithContext(ctx).Create(sku).Error
}

// GetWineSku loads a wine sku by id within the tenant
func (r *ProductRepository) GetWineSku(ctx context.Context, tenantID, id uuid.UUID) (*domain.WineSku, error) {
	var sku domain.WineSku
	query := scopeTenant(r.db.WithContext(ctx), tenantID).Where("id = ?", id)
	if err := query.First(&sku).Error; err != nil {
		return nil, err
	}
	return &sku, nil
}

// GetWineMaster loads a wine master by id within the tenant
func (r *ProductRepository) GetWineMaster(ctx context.Context, tenantID, id uuid.UUID) (*domain.WineMaster, error) {
	var master domain.WineMaster
	query := scopeTenant(r.db.WithContext(ctx), tenantID).Where("id = ?", id)
	if err := query.First(&master).Error; err != nil {
		return nil, err
	}
	return &master, nil
}

// MatchResultRepository writes the immutable audit rows of the resolver.
// There are no update or delete methods on purpose.
type MatchResultRepository struct {
	db *gorm.DB
}

func NewMatchResultRepository(db *gorm.DB) *MatchResultRepository {
	return &MatchResultRepository{db: db}
}

// Create appends one match attempt row
func (r *MatchResultRepository) Create(ctx context.Context, result *domain.MatchResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

// ListBySourceRef returns the attempt history for a source reference,
// newest first
func (r *MatchResultRepository) ListBySourceRef(ctx context.Context, tenantID uuid.UUID, sourceRef string, limit int) ([]domain.MatchResult, error) {
	var results []domain.MatchResult
	query := scopeTenant(r.db.WithContext(ctx), tenantID).
		Where("source_ref = ?", sourceRef).
		Order("created_at DESC").
		Limit(ClampLimit(limit))
	err := query.Find(&results).Error
	return results, err
}

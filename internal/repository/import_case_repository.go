package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/domain"
	"gorm.io/gorm"
)

// ImportCaseRepository provides tenant-scoped access to compliance cases
type ImportCaseRepository struct {
	db *gorm.DB
}

func NewImportCaseRepository(db *gorm.DB) *ImportCaseRepository {
	return &ImportCaseRepository{db: db}
}

// WithTx returns a copy bound to the given transaction
func (r *ImportCaseRepository) WithTx(tx *gorm.DB) *ImportCaseRepository {
	return &ImportCaseRepository{db: tx}
}

func (r *ImportCaseRepository) Create(ctx context.Context, importCase *domain.ImportCase) error {
	return r.db.WithContext(ctx).Create(importCase).Error
}

// GetByID loads an import case. Returns gorm.ErrRecordNotFound when absent.
func (r *ImportCaseRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.ImportCase, error) {
	var importCase domain.ImportCase
	query := scopeTenant(r.db.WithContext(ctx), tenantID).Where("id = ?", id)
	if err := query.First(&importCase).Error; err != nil {
		return nil, err
	}
	return &importCase, nil
}

// LinkOrder records the order an import case is attached to
func (r *ImportCaseRepository) LinkOrder(ctx context.Context, tenantID, caseID, orderID uuid.UUID) error {
	query := scopeTenant(r.db.WithContext(ctx).Model(&domain.ImportCase{}), tenantID).Where("id = ?", caseID)
	return query.Update("order_id", orderID).Error
}

package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/domain"
	"gorm.io/gorm"
)

// MembershipRepository answers the existence probes behind actor resolution:
// restaurant membership, supplier membership and the tenant admin registry.
type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// FindRestaurantMember returns the restaurant membership for a user in a
// tenant, or nil when none exists
func (r *MembershipRepository) FindRestaurantMember(ctx context.Context, tenantID, userID uuid.UUID) (*domain.RestaurantMember, error) {
	var member domain.RestaurantMember
	query := scopeTenant(r.db.WithContext(ctx), tenantID).Where("user_id = ?", userID)
	if err := query.First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// FindSupplierMember returns the supplier membership for a user in a tenant,
// or nil when none exists
func (r *MembershipRepository) FindSupplierMember(ctx context.Context, tenantID, userID uuid.UUID) (*domain.SupplierMember, error) {
	var member domain.SupplierMember
	query := scopeTenant(r.db.WithContext(ctx), tenantID).Where("user_id = ?", userID)
	if err := query.First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// IsAdmin reports whether the user is registered as tenant administrator
func (r *MembershipRepository) IsAdmin(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	var count int64
	query := scopeTenant(r.db.WithContext(ctx).Model(&domain.AdminMember{}), tenantID).
		Where("user_id = ?", userID)
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

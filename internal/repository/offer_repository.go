package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/domain"
	"gorm.io/gorm"
)

// OfferRepository provides tenant-scoped access to offers, their lines and
// their append-only event log
type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *OfferRepository) WithTx(tx *gorm.DB) *OfferRepository {
	return &OfferRepository{db: tx}
}

// Create inserts the offer row together with its lines
func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

// GetByID loads an offer with its lines in position order.
// Returns gorm.ErrRecordNotFound when absent.
func (r *OfferRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Offer, error) {
	var offer domain.Offer
	query := scopeTenant(r.db.WithContext(ctx), tenantID).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id)
	if err := query.First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// UpdateFields applies a partial update to the offer row
func (r *OfferRepository) UpdateFields(ctx context.Context, tenantID, id uuid.UUID, updates map[string]interface{}) error {
	query := scopeTenant(r.db.WithContext(ctx).Model(&domain.Offer{}), tenantID).Where("id = ?", id)
	return query.Updates(updates).Error
}

// TransitionStatus performs the conditional check-and-mutate for a status
// change: the update only applies when the current status is one of `from`
// and the offer is not locked. Returns false when the guard did not hold, so
// a racing caller gets the same state-conflict answer a sequential one would.
func (r *OfferRepository) TransitionStatus(ctx context.Context, tenantID, id uuid.UUID, from []domain.OfferStatus, to domain.OfferStatus, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	updates["updated_at"] = time.Now().UTC()

	query := scopeTenant(r.db.WithContext(ctx).Model(&domain.Offer{}), tenantID).
		Where("id = ?", id).
		Where("status IN ?", from).
		Where("locked_at IS NULL")
	result := query.Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReplaceLines deletes and re-inserts the line set of an offer
func (r *OfferRepository) ReplaceLines(ctx context.Context, tenantID, offerID uuid.UUID, lines []domain.OfferLine) error {
	query := scopeTenant(r.db.WithContext(ctx), tenantID).Where("offer_id = ?", offerID)
	if err := query.Delete(&domain.OfferLine{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

// FindAcceptedForRequest returns the offer that already won the purchase
// request, or nil when no offer has been accepted yet
func (r *OfferRepository) FindAcceptedForRequest(ctx context.Context, tenantID, purchaseRequestID uuid.UUID) (*domain.Offer, error) {
	var offer domain.Offer
	query := scopeTenant(r.db.WithContext(ctx), tenantID).
		Where("purchase_request_id = ?", purchaseRequestID).
		Where("status = ?", domain.OfferStatusAccepted)
	if err := query.First(&offer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

// CreateEvent appends one entry to the offer audit log
func (r *OfferRepository) CreateEvent(ctx context.Context, event *domain.OfferEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListEvents returns the offer's audit log in chronological order
func (r *OfferRepository) ListEvents(ctx context.Context, tenantID, offerID uuid.UUID) ([]domain.OfferEvent, error) {
	var events []domain.OfferEvent
	query := scopeTenant(r.db.WithContext(ctx), tenantID).
		Where("offer_id = ?", offerID).
		Order("created_at ASC")
	err := query.Find(&events).Error
	return events, err
}

// ListSentPastExpiry returns sent offers whose expiry date has passed.
// Used by the expiry sweep job; scans across tenants by design, each row
// still carries its tenant id for the per-offer transition.
func (r *OfferRepository) ListSentPastExpiry(ctx context.Context, now time.Time, limit int) ([]domain.Offer, error) {
	var offers []domain.Offer
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.OfferStatusSent).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Limit(ClampLimit(limit)).
		Find(&offers).Error
	return offers, err
}

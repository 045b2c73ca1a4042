package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/domain"
	"gorm.io/gorm"
)

// OrderRepository provides tenant-scoped access to orders, their lines and
// their append-only event log
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Create inserts the order row together with its lines
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID loads an order with its lines in position order.
// Returns gorm.ErrRecordNotFound when absent.
func (r *OrderRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	query := scopeTenant(r.db.WithContext(ctx), tenantID).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id)
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionStatus performs the conditional check-and-mutate for a status
// change, keyed on the expected current status. Returns false when the row
// was not in `from` anymore, which is how a losing concurrent writer learns
// it lost the race.
func (r *OrderRepository) TransitionStatus(ctx context.Context, tenantID, id uuid.UUID, from, to domain.OrderStatus) (bool, error) {
	query := scopeTenant(r.db.WithContext(ctx).Model(&domain.Order{}), tenantID).
		Where("id = ?", id).
		Where("status = ?", from)
	result := query.Updates(map[string]interface{}{
		"status":     to,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetImportCase records the linked compliance case id on the order
func (r *OrderRepository) SetImportCase(ctx context.Context, tenantID, orderID, caseID uuid.UUID) error {
	query := scopeTenant(r.db.WithContext(ctx).Model(&domain.Order{}), tenantID).Where("id = ?", orderID)
	return query.Update("import_case_id", caseID).Error
}

// CreateEvent appends one entry to the order audit log
func (r *OrderRepository) CreateEvent(ctx context.Context, event *domain.OrderEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListEvents returns the order's audit log in chronological order
func (r *OrderRepository) ListEvents(ctx context.Context, tenantID, orderID uuid.UUID) ([]domain.OrderEvent, error) {
	var events []domain.OrderEvent
	query := scopeTenant(r.db.WithContext(ctx), tenantID).
		Where("order_id = ?", orderID).
		Order("created_at ASC")
	err := query.Find(&events).Error
	return events, err
}

// ListForImporter returns the orders assigned to an importer of record,
// newest first, with an optional status filter
func (r *OrderRepository) ListForImporter(ctx context.Context, tenantID, importerID uuid.UUID, status *domain.OrderStatus, offset, limit int) ([]domain.Order, int64, error) {
	var orders []domain.Order
	var total int64

	query := scopeTenant(r.db.WithContext(ctx).Model(&domain.Order{}), tenantID).
		Where("importer_of_record_id = ?", importerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(ClampLimit(limit)).
		Find(&orders).Error

	return orders, total, err
}

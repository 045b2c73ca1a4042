package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/compliance"
	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/mapper"
	"github.com/winefeed/winefeed-api/internal/metrics"
	"github.com/winefeed/winefeed-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// orderTransitions is the complete transition table. Every (from, to) pair
// not present here is rejected before any mutation; DELIVERED and CANCELLED
// have no outgoing edges.
var orderTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPendingSupplierConfirmation: {
		domain.OrderStatusConfirmed,
		domain.OrderStatusCancelled,
	},
	domain.OrderStatusConfirmed: {
		domain.OrderStatusInFulfillment,
		domain.OrderStatusCancelled,
	},
	domain.OrderStatusInFulfillment: {
		domain.OrderStatusShipped,
		domain.OrderStatusCancelled,
	},
	domain.OrderStatusShipped: {
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	},
	domain.OrderStatusDelivered: nil,
	domain.OrderStatusCancelled: nil,
}

// CanTransition reports whether (from, to) is in the transition table
func CanTransition(from, to domain.OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ComplianceCaseCreator is the single capability the core consumes from the
// compliance subsystem. The core stores the returned case id and nothing else.
type ComplianceCaseCreator interface {
	CreateCase(ctx context.Context, req *compliance.CreateCaseRequest) (*compliance.CreateCaseResponse, error)
}

// OrderService governs the forward-only order status machine, supplier
// confirmation, importer-of-record linkage and order creation from accepted
// offers.
type OrderService struct {
	orders      *repository.OrderRepository
	suppliers   *repository.SupplierRepository
	importCases *repository.ImportCaseRepository
	offerSvc    *OfferService
	compliance  ComplianceCaseCreator
	logger      *zap.Logger
	db          *gorm.DB
}

func NewOrderService(
	orders *repository.OrderRepository,
	suppliers *repository.SupplierRepository,
	importCases *repository.ImportCaseRepository,
	offerSvc *OfferService,
	complianceClient ComplianceCaseCreator,
	logger *zap.Logger,
	db *gorm.DB,
) *OrderService {
	return &OrderService{
		orders:      orders,
		suppliers:   suppliers,
		importCases: importCases,
		offerSvc:    offerSvc,
		compliance:  complianceClient,
		logger:      logger,
		db:          db,
	}
}

// SetOrderStatus validates the requested transition against the table and
// applies it together with exactly one STATUS_CHANGED event. The transition
// is a conditional update keyed on the expected current status, so a losing
// concurrent writer gets the same invalid-transition error a sequential
// caller would.
func (s *OrderService) SetOrderStatus(ctx context.Context, actor *domain.Actor, orderID uuid.UUID, req *domain.SetOrderStatusRequest) (*domain.OrderDTO, error) {
	order, err := s.orders.GetByID(ctx, actor.TenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "order", Err: err}
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	from := order.Status
	to := req.Status
	if !CanTransition(from, to) {
		return nil, &InvalidTransitionError{From: from, To: to}
	}

	err = s.applyTransition(ctx, actor, orderID, from, to, req.Note)
	if err != nil {
		return nil, err
	}

	return s.reloadDTO(ctx, actor.TenantID, orderID)
}

// applyTransition runs the conditional update and event append as one unit
func (s *OrderService) applyTransition(ctx context.Context, actor *domain.Actor, orderID uuid.UUID, from, to domain.OrderStatus, note string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		ok, err := orders.TransitionStatus(ctx, actor.TenantID, orderID, from, to)
		if err != nil {
			return fmt.Errorf("failed to transition order: %w", err)
		}
		if !ok {
			current, err := orders.GetByID(ctx, actor.TenantID, orderID)
			if err != nil {
				return fmt.Errorf("failed to reload order: %w", err)
			}
			return &InvalidTransitionError{From: current.Status, To: to}
		}
		return orders.CreateEvent(ctx, &domain.OrderEvent{
			TenantID:   actor.TenantID,
			OrderID:    orderID,
			Type:       domain.OrderEventStatusChanged,
			FromStatus: from,
			ToStatus:   to,
			ActorID:    actor.UserID,
			Note:       note,
		})
	})
	if err != nil {
		return err
	}

	metrics.OrderTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.logger.Info("order status changed",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return nil
}

// ConfirmOrderBySupplier confirms a pending order on behalf of its supplier.
// The wrong supplier gets an authorization error, not a state conflict.
func (s *OrderService) ConfirmOrderBySupplier(ctx context.Context, actor *domain.Actor, orderID uuid.UUID) (*domain.OrderDTO, error) {
	order, err := s.requireSupplierOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if err := s.applyTransition(ctx, actor, orderID, order.Status, domain.OrderStatusConfirmed, "confirmed by supplier"); err != nil {
		return nil, err
	}
	return s.reloadDTO(ctx, actor.TenantID, orderID)
}

// DeclineOrderBySupplier cancels a pending order on behalf of its supplier,
// recording the reason in the audit note
func (s *OrderService) DeclineOrderBySupplier(ctx context.Context, actor *domain.Actor, orderID uuid.UUID, req *domain.DeclineOrderRequest) (*domain.OrderDTO, error) {
	order, err := s.requireSupplierOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	note := "declined by supplier"
	if req != nil && req.Reason != "" {
		note = fmt.Sprintf("declined by supplier: %s", req.Reason)
	}
	if err := s.applyTransition(ctx, actor, orderID, order.Status, domain.OrderStatusCancelled, note); err != nil {
		return nil, err
	}
	return s.reloadDTO(ctx, actor.TenantID, orderID)
}

// requireSupplierOrder loads a pending order and verifies the calling
// supplier owns it. Ownership is checked before state so "not yours" never
// masquerades as "wrong time".
func (s *OrderService) requireSupplierOrder(ctx context.Context, actor *domain.Actor, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, actor.TenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "order", Err: err}
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if actor.SupplierID == nil || *actor.SupplierID != order.SellerSupplierID {
		return nil, &AuthorizationError{Detail: "order belongs to a different supplier"}
	}
	if order.Status != domain.OrderStatusPendingSupplierConfirmation {
		return nil, &StateConflictError{Entity: "order", Current: string(order.Status), Detail: "supplier confirmation is only possible while pending"}
	}
	return order, nil
}

// CreateOrderFromAcceptedOffer produces the single order an accepted offer
// gives rise to: header, renumbered lines copied from the acceptance
// snapshot, and an initial audit event, all in one transaction. The importer
// of record is resolved first and fail-closed: an EU-type supplier without a
// default importer aborts the call before any write.
func (s *OrderService) CreateOrderFromAcceptedOffer(ctx context.Context, actor *domain.Actor, offerID uuid.UUID) (*domain.OrderDTO, error) {
	snapshot, err := s.offerSvc.GetSnapshot(ctx, actor.TenantID, offerID)
	if err != nil {
		return nil, err
	}

	supplier, err := s.suppliers.GetByID(ctx, actor.TenantID, snapshot.SupplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "supplier", Err: err}
		}
		return nil, fmt.Errorf("failed to resolve supplier: %w", err)
	}

	importerID, err := resolveImporterOfRecord(supplier)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		TenantID:           actor.TenantID,
		OfferID:            snapshot.OfferID,
		PurchaseRequestID:  snapshot.PurchaseRequestID,
		RestaurantID:       snapshot.RestaurantID,
		SellerSupplierID:   snapshot.SupplierID,
		ImporterOfRecordID: importerID,
		Status:             domain.OrderStatusPendingSupplierConfirmation,
		CurrencyCode:       snapshot.CurrencyCode,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		orders := s.orders.WithTx(tx)
		if err := orders.Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		lines := make([]domain.OrderLine, len(snapshot.Lines))
		for i, line := range snapshot.Lines {
			lines[i] = domain.OrderLine{
				TenantID:  actor.TenantID,
				OrderID:   order.ID,
				Position:  i + 1,
				WineName:  line.WineName,
				Vintage:   line.Vintage,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				WineSkuID: line.WineSkuID,
			}
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("failed to create order lines: %w", err)
		}
		order.Lines = lines
		return orders.CreateEvent(ctx, &domain.OrderEvent{
			TenantID: actor.TenantID,
			OrderID:  order.ID,
			Type:     domain.OrderEventCreated,
			ToStatus: domain.OrderStatusPendingSupplierConfirmation,
			ActorID:  actor.UserID,
			Note:     fmt.Sprintf("created from offer %s", snapshot.OfferID),
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created from accepted offer",
		zap.String("order_id", order.ID.String()),
		zap.String("offer_id", snapshot.OfferID.String()))

	// EU shipments get a compliance case opened with the importer of record.
	// Best-effort: the case can be attached later via LinkImportCase, so a
	// compliance outage does not block order creation.
	if supplier.Type.IsEUSourced() && importerID != nil && s.compliance != nil {
		s.openImportCase(ctx, actor, order, *importerID)
	}

	return s.reloadDTO(ctx, actor.TenantID, order.ID)
}

// resolveImporterOfRecord computes the importer responsible for an order.
// Domestic suppliers use their configured default mapping when present;
// EU-type suppliers must have one or creation fails outright.
func resolveImporterOfRecord(supplier *domain.Supplier) (*uuid.UUID, error) {
	if supplier.DefaultImporterID != nil {
		return supplier.DefaultImporterID, nil
	}
	if supplier.Type.IsEUSourced() {
		return nil, ErrImporterOfRecordRequired
	}
	return nil, nil
}

func (s *OrderService) openImportCase(ctx context.Context, actor *domain.Actor, order *domain.Order, importerID uuid.UUID) {
	resp, err := s.compliance.CreateCase(ctx, &compliance.CreateCaseRequest{
		TenantID:   actor.TenantID,
		OrderID:    order.ID,
		ImporterID: importerID,
	})
	if err != nil {
		s.logger.Warn("failed to open import case",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		return
	}

	orderID := order.ID
	importCase := &domain.ImportCase{
		TenantID:   actor.TenantID,
		ImporterID: importerID,
		OrderID:    &orderID,
		Reference:  resp.Reference,
		Status:     domain.ImportCaseStatusOpen,
	}
	importCase.ID = resp.CaseID
	if err := s.importCases.Create(ctx, importCase); err != nil {
		s.logger.Warn("failed to record import case",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		return
	}
	if err := s.orders.SetImportCase(ctx, actor.TenantID, order.ID, importCase.ID); err != nil {
		s.logger.Warn("failed to link import case to order",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
	}
}

// LinkImportCase attaches a compliance case to an order. Only the assigned
// importer of record may administer compliance documents for an order, so the
// case's importer must exactly equal the order's.
func (s *OrderService) LinkImportCase(ctx context.Context, actor *domain.Actor, orderID uuid.UUID, caseID uuid.UUID) (*domain.OrderDTO, error) {
	order, err := s.orders.GetByID(ctx, actor.TenantID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "order", Err: err}
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	importCase, err := s.importCases.GetByID(ctx, actor.TenantID, caseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "import case", Err: err}
		}
		return nil, fmt.Errorf("failed to get import case: %w", err)
	}

	if order.ImporterOfRecordID == nil || importCase.ImporterID != *order.ImporterOfRecordID {
		return nil, ErrIORMismatch
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.importCases.WithTx(tx).LinkOrder(ctx, actor.TenantID, caseID, orderID); err != nil {
			return fmt.Errorf("failed to link import case: %w", err)
		}
		return s.orders.WithTx(tx).SetImportCase(ctx, actor.TenantID, orderID, caseID)
	})
	if err != nil {
		return nil, err
	}

	return s.reloadDTO(ctx, actor.TenantID, orderID)
}

// ListOrdersForIOR returns the orders assigned to an importer of record,
// paginated with a zero-based offset and optional status filter. Requires
// full IOR access (role and importer id both present) for the importer asked
// about, unless the actor is a tenant admin.
func (s *OrderService) ListOrdersForIOR(ctx context.Context, actor *domain.Actor, importerID uuid.UUID, status *domain.OrderStatus, offset, limit int) (*domain.OrderListResult, error) {
	isAssignedIOR := actor.HasRole(domain.RoleIOR) && actor.ImporterID != nil && *actor.ImporterID == importerID
	if !isAssignedIOR && !actor.HasRole(domain.RoleAdmin) {
		return nil, &AuthorizationError{Detail: "importer order listing requires IOR access for that importer"}
	}

	if offset < 0 {
		offset = 0
	}
	limit = repository.ClampLimit(limit)

	orders, total, err := s.orders.ListForImporter(ctx, actor.TenantID, importerID, status, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	dtos := make([]domain.OrderDTO, len(orders))
	for i, order := range orders {
		dtos[i] = mapper.ToOrderDTO(&order, nil)
	}
	return &domain.OrderListResult{
		Orders: dtos,
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}, nil
}

// GetOrder assembles order, ordered lines and ordered events. Absence returns
// (nil, nil), not an error.
func (s *OrderService) GetOrder(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.OrderDTO, error) {
	order, err := s.orders.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	events, err := s.orders.ListEvents(ctx, actor.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list order events: %w", err)
	}
	dto := mapper.ToOrderDTO(order, events)
	return &dto, nil
}

func (s *OrderService) reloadDTO(ctx context.Context, tenantID, id uuid.UUID) (*domain.OrderDTO, error) {
	order, err := s.orders.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	dto := mapper.ToOrderDTO(order, nil)
	return &dto, nil
}

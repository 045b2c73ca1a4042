package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/winefeed/winefeed-api/internal/compliance"
	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newOrderService(t *testing.T, db *gorm.DB, caseCreator ComplianceCaseCreator) (*OrderService, *OfferService) {
	t.Helper()
	offerSvc := newOfferService(t, db)
	orderSvc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewSupplierRepository(db),
		repository.NewImportCaseRepository(db),
		offerSvc,
		caseCreator,
		zap.NewNop(),
		db,
	)
	return orderSvc, offerSvc
}

// acceptedOffer drives an offer through create and accept for the supplier
// and returns the offer id and the buyer actor
func acceptedOffer(t *testing.T, offerSvc *OfferService, tenantID, supplierID uuid.UUID) (uuid.UUID, *domain.Actor) {
	t.Helper()
	seller := sellerActor(tenantID, supplierID)
	req := offerRequest(supplierID)
	offer, err := offerSvc.CreateOffer(context.Background(), seller, req)
	require.NoError(t, err)
	buyer := restaurantActor(tenantID, req.RestaurantID)
	_, err = offerSvc.AcceptOffer(context.Background(), buyer, offer.ID)
	require.NoError(t, err)
	return offer.ID, buyer
}

func TestTransitionTable(t *testing.T) {
	all := []domain.OrderStatus{
		domain.OrderStatusPendingSupplierConfirmation,
		domain.OrderStatusConfirmed,
		domain.OrderStatusInFulfillment,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
		domain.OrderStatusCancelled,
	}

	allowed := map[domain.OrderStatus]map[domain.OrderStatus]bool{
		domain.OrderStatusPendingSupplierConfirmation: {domain.OrderStatusConfirmed: true, domain.OrderStatusCancelled: true},
		domain.OrderStatusConfirmed:                   {domain.OrderStatusInFulfillment: true, domain.OrderStatusCancelled: true},
		domain.OrderStatusInFulfillment:               {domain.OrderStatusShipped: true, domain.OrderStatusCancelled: true},
		domain.OrderStatusShipped:                     {domain.OrderStatusDelivered: true, domain.OrderStatusCancelled: true},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			assert.Equal(t, want, CanTransition(from, to), "transition %s -> %s", from, to)
		}
	}

	// Terminal statuses admit nothing, including self-transitions
	for _, to := range all {
		assert.False(t, CanTransition(domain.OrderStatusDelivered, to))
		assert.False(t, CanTransition(domain.OrderStatusCancelled, to))
	}
}

func TestCreateOrderFromAcceptedOffer(t *testing.T) {
	db := newTestDB(t)
	orderSvc, offerSvc := newOrderService(t, db, nil)
	tenantID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeDomestic, nil)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)

	order, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPendingSupplierConfirmation, order.Status)
	assert.Equal(t, offerID, order.OfferID)
	assert.Equal(t, supplier.ID, order.SellerSupplierID)
	assert.Nil(t, order.ImporterOfRecordID)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, 1, order.Lines[0].Position)
	assert.Equal(t, "Barolo Riserva", order.Lines[0].WineName)

	events, err := repository.NewOrderRepository(db).ListEvents(context.Background(), tenantID, order.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.OrderEventCreated, events[0].Type)
}

func TestCreateOrderRequiresAcceptedOffer(t *testing.T) {
	db := newTestDB(t)
	orderSvc, offerSvc := newOrderService(t, db, nil)
	tenantID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeDomestic, nil)

	seller := sellerActor(tenantID, supplier.ID)
	req := offerRequest(supplier.ID)
	offer, err := offerSvc.CreateOffer(context.Background(), seller, req)
	require.NoError(t, err)

	buyer := restaurantActor(tenantID, req.RestaurantID)
	_, err = orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offer.ID)
	var conflict *StateConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCreateOrderEUSupplierRequiresImporter(t *testing.T) {
	db := newTestDB(t)
	orderSvc, offerSvc := newOrderService(t, db, nil)
	tenantID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeProducer, nil)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)

	_, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.ErrorIs(t, err, ErrImporterOfRecordRequired)

	// Nothing was written
	var count int64
	require.NoError(t, db.Model(&domain.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

type fakeCaseCreator struct {
	resp *compliance.CreateCaseResponse
	err  error
}

func (f *fakeCaseCreator) CreateCase(ctx context.Context, req *compliance.CreateCaseRequest) (*compliance.CreateCaseResponse, error) {
	return f.resp, f.err
}

func TestCreateOrderEUSupplierAssignsImporter(t *testing.T) {
	db := newTestDB(t)
	caseID := uuid.New()
	creator := &fakeCaseCreator{resp: &compliance.CreateCaseResponse{CaseID: caseID, Reference: "IC-2026-001"}}
	orderSvc, offerSvc := newOrderService(t, db, creator)
	tenantID := uuid.New()
	importerID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeImporter, &importerID)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)

	order, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.NoError(t, err)
	require.NotNil(t, order.ImporterOfRecordID)
	assert.Equal(t, importerID, *order.ImporterOfRecordID)
	require.NotNil(t, order.ImportCaseID)
	assert.Equal(t, caseID, *order.ImportCaseID)
}

func TestCreateOrderComplianceOutageDoesNotBlock(t *testing.T) {
	db := newTestDB(t)
	creator := &fakeCaseCreator{err: assert.AnError}
	orderSvc, offerSvc := newOrderService(t, db, creator)
	tenantID := uuid.New()
	importerID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeProducer, &importerID)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)

	order, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.NoError(t, err)
	require.NotNil(t, order.ImporterOfRecordID)
	assert.Nil(t, order.ImportCaseID)
}

func TestCreateOrderDuplicateOffer(t *testing.T) {
	db := newTestDB(t)
	orderSvc, offerSvc := newOrderService(t, db, nil)
	tenantID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeDomestic, nil)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)

	_, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.NoError(t, err)

	// One offer gives rise to exactly one order
	_, err = orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.Error(t, err)
}

func TestSetOrderStatus(t *testing.T) {
	db := newTestDB(t)
	orderSvc, offerSvc := newOrderService(t, db, nil)
	tenantID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeDomestic, nil)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)
	order, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.NoError(t, err)

	// Jumping the chain is rejected before any write
	_, err = orderSvc.SetOrderStatus(context.Background(), buyer, order.ID, &domain.SetOrderStatusRequest{Status: domain.OrderStatusShipped})
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, domain.OrderStatusPendingSupplierConfirmation, invalid.From)
	assert.Equal(t, domain.OrderStatusShipped, invalid.To)

	// Walking the chain step by step succeeds
	for _, to := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusInFulfillment,
		domain.OrderStatusShipped,
		domain.OrderStatusDelivered,
	} {
		updated, err := orderSvc.SetOrderStatus(context.Background(), buyer, order.ID, &domain.SetOrderStatusRequest{Status: to})
		require.NoError(t, err)
		assert.Equal(t, to, updated.Status)
	}

	// Delivered is terminal
	_, err = orderSvc.SetOrderStatus(context.Background(), buyer, order.ID, &domain.SetOrderStatusRequest{Status: domain.OrderStatusCancelled})
	require.ErrorAs(t, err, &invalid)

	// One STATUS_CHANGED event per applied transition plus the creation event
	events, err := repository.NewOrderRepository(db).ListEvents(context.Background(), tenantID, order.ID)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestConfirmOrderBySupplier(t *testing.T) {
	db := newTestDB(t)
	orderSvc, offerSvc := newOrderService(t, db, nil)
	tenantID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeDomestic, nil)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)
	order, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.NoError(t, err)

	seller := sellerActor(tenantID, supplier.ID)
	confirmed, err := orderSvc.ConfirmOrderBySupplier(context.Background(), seller, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, confirmed.Status)

	// Confirming again is a state conflict, not an authorization error
	_, err = orderSvc.ConfirmOrderBySupplier(context.Background(), seller, order.ID)
	var conflict *StateConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestConfirmOrderWrongSupplier(t *testing.T) {
	db := newTestDB(t)
	orderSvc, offerSvc := newOrderService(t, db, nil)
	tenantID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeDomestic, nil)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)
	order, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.NoError(t, err)

	// The wrong supplier gets "not yours", never "wrong time"
	intruder := sellerActor(tenantID, uuid.New())
	_, err = orderSvc.ConfirmOrderBySupplier(context.Background(), intruder, order.ID)
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestDeclineOrderBySupplier(t *testing.T) {
	db := newTestDB(t)
	orderSvc, offerSvc := newOrderService(t, db, nil)
	tenantID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeDomestic, nil)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)
	order, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.NoError(t, err)

	seller := sellerActor(tenantID, supplier.ID)
	declined, err := orderSvc.DeclineOrderBySupplier(context.Background(), seller, order.ID, &domain.DeclineOrderRequest{Reason: "out of stock"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, declined.Status)

	events, err := repository.NewOrderRepository(db).ListEvents(context.Background(), tenantID, order.ID)
	require.NoError(t, err)
	last := events[len(events)-1]
	assert.Contains(t, last.Note, "out of stock")
}

func TestLinkImportCase(t *testing.T) {
	db := newTestDB(t)
	orderSvc, offerSvc := newOrderService(t, db, nil)
	tenantID := uuid.New()
	importerID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeProducer, &importerID)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)
	order, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.NoError(t, err)

	cases := repository.NewImportCaseRepository(db)
	matching := &domain.ImportCase{TenantID: tenantID, ImporterID: importerID, Reference: "IC-1"}
	require.NoError(t, cases.Create(context.Background(), matching))
	foreign := &domain.ImportCase{TenantID: tenantID, ImporterID: uuid.New(), Reference: "IC-2"}
	require.NoError(t, cases.Create(context.Background(), foreign))

	// A case owned by a different importer is rejected outright
	_, err = orderSvc.LinkImportCase(context.Background(), buyer, order.ID, foreign.ID)
	require.ErrorIs(t, err, ErrIORMismatch)

	linked, err := orderSvc.LinkImportCase(context.Background(), buyer, order.ID, matching.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.ImportCaseID)
	assert.Equal(t, matching.ID, *linked.ImportCaseID)
}

func TestListOrdersForIOR(t *testing.T) {
	db := newTestDB(t)
	orderSvc, offerSvc := newOrderService(t, db, nil)
	tenantID := uuid.New()
	importerID := uuid.New()
	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeImporter, &importerID)

	offerID, buyer := acceptedOffer(t, offerSvc, tenantID, supplier.ID)
	_, err := orderSvc.CreateOrderFromAcceptedOffer(context.Background(), buyer, offerID)
	require.NoError(t, err)

	ior := &domain.Actor{
		UserID:     uuid.New(),
		TenantID:   tenantID,
		Roles:      []domain.Role{domain.RoleIOR},
		ImporterID: &importerID,
	}
	result, err := orderSvc.ListOrdersForIOR(context.Background(), ior, importerID, nil, 0, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Total)
	require.Len(t, result.Orders, 1)

	// Status filter
	pending := domain.OrderStatusPendingSupplierConfirmation
	result, err = orderSvc.ListOrdersForIOR(context.Background(), ior, importerID, &pending, 0, 50)
	require.NoError(t, err)
	assert.Len(t, result.Orders, 1)
	shipped := domain.OrderStatusShipped
	result, err = orderSvc.ListOrdersForIOR(context.Background(), ior, importerID, &shipped, 0, 50)
	require.NoError(t, err)
	assert.Empty(t, result.Orders)

	// Role without importer binding is not enough
	roleOnly := &domain.Actor{UserID: uuid.New(), TenantID: tenantID, Roles: []domain.Role{domain.RoleIOR}}
	_, err = orderSvc.ListOrdersForIOR(context.Background(), roleOnly, importerID, nil, 0, 50)
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)

	// Another importer's list is off limits
	otherImporter := uuid.New()
	_, err = orderSvc.ListOrdersForIOR(context.Background(), ior, otherImporter, nil, 0, 50)
	require.ErrorAs(t, err, &authErr)

	// Admins may inspect any importer's queue
	admin := &domain.Actor{UserID: uuid.New(), TenantID: tenantID, Roles: []domain.Role{domain.RoleAdmin}}
	result, err = orderSvc.ListOrdersForIOR(context.Background(), admin, importerID, nil, 0, 50)
	require.NoError(t, err)
	assert.Len(t, result.Orders, 1)
}

func TestGetOrderAbsent(t *testing.T) {
	db := newTestDB(t)
	orderSvc, _ := newOrderService(t, db, nil)
	buyer := restaurantActor(uuid.New(), uuid.New())

	order, err := orderSvc.GetOrder(context.Background(), buyer, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, order)
}

package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newActorService(t *testing.T, db *gorm.DB) *ActorService {
	t.Helper()
	members := repository.NewMembershipRepository(db)
	return NewActorService(
		members,
		repository.NewSupplierRepository(db),
		repository.NewImporterRepository(db),
		members,
		zap.NewNop(),
	)
}

func TestResolveActorNoMemberships(t *testing.T) {
	db := newTestDB(t)
	svc := newActorService(t, db)

	actor, err := svc.ResolveActor(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, actor.Roles)
	assert.Nil(t, actor.RestaurantID)
	assert.Nil(t, actor.SupplierID)
	assert.Nil(t, actor.ImporterID)
}

func TestResolveActorRestaurantMember(t *testing.T) {
	db := newTestDB(t)
	svc := newActorService(t, db)
	tenantID := uuid.New()
	userID := uuid.New()
	restaurantID := uuid.New()

	require.NoError(t, db.Create(&domain.RestaurantMember{
		TenantID: tenantID, UserID: userID, RestaurantID: restaurantID,
	}).Error)

	actor, err := svc.ResolveActor(context.Background(), userID, tenantID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleRestaurant}, actor.Roles)
	require.NotNil(t, actor.RestaurantID)
	assert.Equal(t, restaurantID, *actor.RestaurantID)
}

func TestResolveActorSellerWithIORInheritance(t *testing.T) {
	db := newTestDB(t)
	svc := newActorService(t, db)
	tenantID := uuid.New()
	userID := uuid.New()

	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeImporter, nil)
	importer := &domain.Importer{TenantID: tenantID, Name: "Nordic Wine Imports", OrgNumber: supplier.OrgNumber}
	require.NoError(t, db.Create(importer).Error)
	require.NoError(t, db.Create(&domain.SupplierMember{
		TenantID: tenantID, UserID: userID, SupplierID: supplier.ID,
	}).Error)

	actor, err := svc.ResolveActor(context.Background(), userID, tenantID)
	require.NoError(t, err)
	assert.True(t, actor.HasRole(domain.RoleSeller))
	assert.True(t, actor.HasRole(domain.RoleIOR))
	require.NotNil(t, actor.ImporterID)
	assert.Equal(t, importer.ID, *actor.ImporterID)
}

func TestResolveActorSellerWithoutMatchingImporter(t *testing.T) {
	db := newTestDB(t)
	svc := newActorService(t, db)
	tenantID := uuid.New()
	userID := uuid.New()

	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeDomestic, nil)
	require.NoError(t, db.Create(&domain.SupplierMember{
		TenantID: tenantID, UserID: userID, SupplierID: supplier.ID,
	}).Error)

	actor, err := svc.ResolveActor(context.Background(), userID, tenantID)
	require.NoError(t, err)
	assert.True(t, actor.HasRole(domain.RoleSeller))
	assert.False(t, actor.HasRole(domain.RoleIOR))
	assert.Nil(t, actor.ImporterID)
}

func TestResolveActorDualRoleAndAdmin(t *testing.T) {
	db := newTestDB(t)
	svc := newActorService(t, db)
	tenantID := uuid.New()
	userID := uuid.New()

	supplier := seedSupplier(t, db, tenantID, domain.SupplierTypeDomestic, nil)
	require.NoError(t, db.Create(&domain.RestaurantMember{
		TenantID: tenantID, UserID: userID, RestaurantID: uuid.New(),
	}).Error)
	require.NoError(t, db.Create(&domain.SupplierMember{
		TenantID: tenantID, UserID: userID, SupplierID: supplier.ID,
	}).Error)
	require.NoError(t, db.Create(&domain.AdminMember{
		TenantID: tenantID, UserID: userID,
	}).Error)

	actor, err := svc.ResolveActor(context.Background(), userID, tenantID)
	require.NoError(t, err)
	assert.True(t, actor.HasRole(domain.RoleRestaurant))
	assert.True(t, actor.HasRole(domain.RoleSeller))
	assert.True(t, actor.HasRole(domain.RoleAdmin))
	assert.NotNil(t, actor.RestaurantID)
	assert.NotNil(t, actor.SupplierID)
}

func TestResolveActorIsTenantScoped(t *testing.T) {
	db := newTestDB(t)
	svc := newActorService(t, db)
	tenantA := uuid.New()
	tenantB := uuid.New()
	userID := uuid.New()

	require.NoError(t, db.Create(&domain.RestaurantMember{
		TenantID: tenantA, UserID: userID, RestaurantID: uuid.New(),
	}).Error)

	actor, err := svc.ResolveActor(context.Background(), userID, tenantB)
	require.NoError(t, err)
	assert.Empty(t, actor.Roles)
}

func TestHasIORAccess(t *testing.T) {
	svc := newActorService(t, newTestDB(t))
	importerID := uuid.New()

	tests := []struct {
		name  string
		actor *domain.Actor
		want  bool
	}{
		{"role and importer id", &domain.Actor{Roles: []domain.Role{domain.RoleIOR}, ImporterID: &importerID}, true},
		{"role without importer id", &domain.Actor{Roles: []domain.Role{domain.RoleIOR}}, false},
		{"importer id without role", &domain.Actor{Roles: []domain.Role{domain.RoleSeller}, ImporterID: &importerID}, false},
		{"neither", &domain.Actor{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.HasIORAccess(tt.actor))
		})
	}
}

func TestGetEntityID(t *testing.T) {
	svc := newActorService(t, newTestDB(t))
	restaurantID := uuid.New()
	supplierID := uuid.New()
	importerID := uuid.New()

	actor := &domain.Actor{
		Roles:        []domain.Role{domain.RoleRestaurant, domain.RoleSeller, domain.RoleIOR, domain.RoleAdmin},
		RestaurantID: &restaurantID,
		SupplierID:   &supplierID,
		ImporterID:   &importerID,
	}

	assert.Equal(t, &restaurantID, svc.GetEntityID(actor, domain.RoleRestaurant))
	assert.Equal(t, &supplierID, svc.GetEntityID(actor, domain.RoleSeller))
	assert.Equal(t, &importerID, svc.GetEntityID(actor, domain.RoleIOR))
	assert.Nil(t, svc.GetEntityID(actor, domain.RoleAdmin))

	// Lacking the role means no entity id, even if the field is set
	limited := &domain.Actor{Roles: []domain.Role{domain.RoleSeller}, RestaurantID: &restaurantID, SupplierID: &supplierID}
	assert.Nil(t, svc.GetEntityID(limited, domain.RoleRestaurant))
}

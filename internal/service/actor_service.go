package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AdminRegistry answers the single question the resolver asks the admin
// subsystem: is this user a tenant administrator.
type AdminRegistry interface {
	IsAdmin(ctx context.Context, tenantID, userID uuid.UUID) (bool, error)
}

// ActorService resolves (user, tenant) pairs into role sets and owned entity
// ids. Resolution is always recomputed so revoked access shows up on the very
// next call; nothing here is cached.
type ActorService struct {
	members   *repository.MembershipRepository
	suppliers *repository.SupplierRepository
	importers *repository.ImporterRepository
	admins    AdminRegistry
	logger    *zap.Logger
}

func NewActorService(
	members *repository.MembershipRepository,
	suppliers *repository.SupplierRepository,
	importers *repository.ImporterRepository,
	admins AdminRegistry,
	logger *zap.Logger,
) *ActorService {
	return &ActorService{
		members:   members,
		suppliers: suppliers,
		importers: importers,
		admins:    admins,
		logger:    logger,
	}
}

// ResolveActor probes restaurant membership, supplier membership and the
// admin registry for the user within the tenant. The probes run concurrently;
// aggregation waits for all of them. A SELLER additionally inherits the IOR
// role when their supplier's organization number matches a registered
// importer's within the same tenant.
func (s *ActorService) ResolveActor(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Actor, error) {
	var (
		restaurantMember *domain.RestaurantMember
		supplierMember   *domain.SupplierMember
		isAdmin          bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		restaurantMember, err = s.members.FindRestaurantMember(gctx, tenantID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		supplierMember, err = s.members.FindSupplierMember(gctx, tenantID, userID)
		return err
	})
	g.Go(func() error {
		var err error
		isAdmin, err = s.admins.IsAdmin(gctx, tenantID, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to resolve actor: %w", err)
	}

	actor := &domain.Actor{
		UserID:   userID,
		TenantID: tenantID,
	}

	if restaurantMember != nil {
		actor.Roles = append(actor.Roles, domain.RoleRestaurant)
		restaurantID := restaurantMember.RestaurantID
		actor.RestaurantID = &restaurantID
	}

	if supplierMember != nil {
		actor.Roles = append(actor.Roles, domain.RoleSeller)
		supplierID := supplierMember.SupplierID
		actor.SupplierID = &supplierID

		// IOR inheritance: a seller whose supplier is registered under the
		// same organization number as a known importer acts as that importer.
		supplier, err := s.suppliers.GetByID(ctx, tenantID, supplierID)
		if err != nil {
			return nil, fmt.Errorf("failed to load supplier for actor: %w", err)
		}
		importer, err := s.importers.FindByOrgNumber(ctx, tenantID, supplier.OrgNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to probe importer registry: %w", err)
		}
		if importer != nil {
			actor.Roles = append(actor.Roles, domain.RoleIOR)
			importerID := importer.ID
			actor.ImporterID = &importerID
		}
	}

	if isAdmin {
		actor.Roles = append(actor.Roles, domain.RoleAdmin)
	}

	s.logger.Debug("resolved actor",
		zap.String("user_id", userID.String()),
		zap.String("tenant_id", tenantID.String()),
		zap.Int("roles", len(actor.Roles)))

	return actor, nil
}

// HasRole is a pure membership test on a resolved actor
func (s *ActorService) HasRole(actor *domain.Actor, role domain.Role) bool {
	return actor.HasRole(role)
}

// HasIORAccess is true only when the actor both carries the IOR role and has
// an importer id attached. Either alone is insufficient.
func (s *ActorService) HasIORAccess(actor *domain.Actor) bool {
	return actor.HasRole(domain.RoleIOR) && actor.ImporterID != nil
}

// GetEntityID returns the entity id the actor owns for the given role, or nil
// when the role grants no entity (ADMIN) or the actor lacks the role
func (s *ActorService) GetEntityID(actor *domain.Actor, role domain.Role) *uuid.UUID {
	if !actor.HasRole(role) {
		return nil
	}
	switch role {
	case domain.RoleRestaurant:
		return actor.RestaurantID
	case domain.RoleSeller:
		return actor.SupplierID
	case domain.RoleIOR:
		return actor.ImporterID
	default:
		return nil
	}
}

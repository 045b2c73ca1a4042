package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

// BeforeCreate assigns an id when the caller did not set one
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Tenant is the isolation boundary. Every other table carries tenant_id and
// every repository method takes it as a required parameter.
type Tenant struct {
	BaseModel
	Name     string `gorm:"type:varchar(200);not null"`
	IsActive bool   `gorm:"not null;default:true;column:is_active"`
}

// Role represents a marketplace role within a tenant
type Role string

const (
	RoleRestaurant Role = "RESTAURANT"
	RoleSeller     Role = "SELLER"
	RoleIOR        Role = "IOR"
	RoleAdmin      Role = "ADMIN"
)

// Actor is the resolved projection of (user, tenant) onto roles and owned
// entity ids. It is derived on every call and never persisted.
type Actor struct {
	UserID       uuid.UUID
	TenantID     uuid.UUID
	Roles        []Role
	RestaurantID *uuid.UUID
	SupplierID   *uuid.UUID
	ImporterID   *uuid.UUID
}

// HasRole reports whether the actor carries the given role
func (a *Actor) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Restaurant represents a buying venue
type Restaurant struct {
	BaseModel
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(200);not null"`
	OrgNumber string    `gorm:"type:varchar(20);column:org_number"`
}

// SupplierType classifies where a supplier's goods are sourced.
// Producer and importer suppliers ship EU-sourced goods and therefore
// require an importer of record on every order.
type SupplierType string

const (
	SupplierTypeDomestic SupplierType = "domestic"
	SupplierTypeProducer SupplierType = "producer"
	SupplierTypeImporter SupplierType = "importer"
)

// IsEUSourced reports whether orders from this supplier type carry EU goods
func (t SupplierType) IsEUSourced() bool {
	return t == SupplierTypeProducer || t == SupplierTypeImporter
}

// Supplier represents a selling party (winery, importer or domestic wholesaler)
type Supplier struct {
	BaseModel
	TenantID          uuid.UUID    `gorm:"type:uuid;not null;index"`
	Name              string       `gorm:"type:varchar(200);not null"`
	Type              SupplierType `gorm:"type:varchar(20);not null;default:'domestic'"`
	OrgNumber         string       `gorm:"type:varchar(20);column:org_number;index"`
	DefaultImporterID *uuid.UUID   `gorm:"type:uuid;column:default_importer_id"`
}

// Importer is a compliance-responsible legal entity (importer of record)
type Importer struct {
	BaseModel
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Name      string    `gorm:"type:varchar(200);not null"`
	OrgNumber string    `gorm:"type:varchar(20);column:org_number;index"`
}

// RestaurantMember links a user to a restaurant within a tenant
type RestaurantMember struct {
	BaseModel
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index:idx_restaurant_members_user"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index:idx_restaurant_members_user"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null"`
}

// SupplierMember links a user to a supplier within a tenant
type SupplierMember struct {
	BaseModel
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index:idx_supplier_members_user"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index:idx_supplier_members_user"`
	SupplierID uuid.UUID `gorm:"type:uuid;not null"`
}

// AdminMember marks a user as tenant administrator
type AdminMember struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index:idx_admin_members_user"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index:idx_admin_members_user"`
}

// OfferStatus represents the lifecycle state of a commercial offer
type OfferStatus string

const (
	OfferStatusDraft    OfferStatus = "DRAFT"
	OfferStatusSent     OfferStatus = "SENT"
	OfferStatusAccepted OfferStatus = "ACCEPTED"
	OfferStatusRejected OfferStatus = "REJECTED"
	OfferStatusExpired  OfferStatus = "EXPIRED"
)

// IsTerminal reports whether no further transition may leave this status
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusAccepted || s == OfferStatusRejected || s == OfferStatusExpired
}

// Offer is a supplier's commercial response to a restaurant purchase request.
// Once locked_at is set (on acceptance) the offer and its lines are immutable.
type Offer struct {
	BaseModel
	TenantID          uuid.UUID   `gorm:"type:uuid;not null;index;uniqueIndex:uq_offers_request_accepted,where:status = 'ACCEPTED'"`
	PurchaseRequestID uuid.UUID   `gorm:"type:uuid;not null;index;column:purchase_request_id;uniqueIndex:uq_offers_request_accepted,where:status = 'ACCEPTED'"`
	RestaurantID      uuid.UUID   `gorm:"type:uuid;not null"`
	SupplierID        uuid.UUID   `gorm:"type:uuid;not null"`
	Status            OfferStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	CurrencyCode      string      `gorm:"type:varchar(3);not null;default:'EUR';column:currency_code"`
	Note              string      `gorm:"type:text"`
	SentAt            *time.Time  `gorm:"column:sent_at"`
	ExpiresAt         *time.Time  `gorm:"column:expires_at"`
	LockedAt          *time.Time  `gorm:"column:locked_at"`
	AcceptedSnapshot  string      `gorm:"type:text;column:accepted_snapshot"`
	CreatedByID       uuid.UUID   `gorm:"type:uuid;column:created_by_id"`
	Lines             []OfferLine `gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE"`
}

// OfferLine is one priced position on an offer.
// Enrichment holds supplier-provided descriptive metadata as JSON; commercial
// fields are forbidden there and rejected before any write.
type OfferLine struct {
	BaseModel
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	OfferID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Position   int        `gorm:"not null"`
	WineName   string     `gorm:"type:varchar(300);not null;column:wine_name"`
	Vintage    int        `gorm:""`
	Quantity   int        `gorm:"not null"`
	UnitPrice  float64    `gorm:"not null;column:unit_price"`
	Enrichment string     `gorm:"type:text"`
	WineSkuID  *uuid.UUID `gorm:"type:uuid;column:wine_sku_id"`
}

// OfferEventType classifies entries in the offer audit log
type OfferEventType string

const (
	OfferEventCreated       OfferEventType = "CREATED"
	OfferEventStatusChanged OfferEventType = "STATUS_CHANGED"
	OfferEventAccepted      OfferEventType = "ACCEPTED"
)

// OfferEvent is one append-only audit entry on an offer
type OfferEvent struct {
	BaseModel
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	OfferID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Type       OfferEventType `gorm:"type:varchar(30);not null"`
	FromStatus OfferStatus    `gorm:"type:varchar(20);column:from_status"`
	ToStatus   OfferStatus    `gorm:"type:varchar(20);column:to_status"`
	ActorID    uuid.UUID      `gorm:"type:uuid;column:actor_id"`
	Note       string         `gorm:"type:text"`
}

// OrderStatus represents the forward-only state of an order
type OrderStatus string

const (
	OrderStatusPendingSupplierConfirmation OrderStatus = "PENDING_SUPPLIER_CONFIRMATION"
	OrderStatusConfirmed                   OrderStatus = "CONFIRMED"
	OrderStatusInFulfillment               OrderStatus = "IN_FULFILLMENT"
	OrderStatusShipped                     OrderStatus = "SHIPPED"
	OrderStatusDelivered                   OrderStatus = "DELIVERED"
	OrderStatusCancelled                   OrderStatus = "CANCELLED"
)

// IsTerminal reports whether the status admits no further transitions
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Order is produced from exactly one accepted offer
type Order struct {
	BaseModel
	TenantID           uuid.UUID   `gorm:"type:uuid;not null;index"`
	OfferID            uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex"`
	PurchaseRequestID  uuid.UUID   `gorm:"type:uuid;not null;column:purchase_request_id"`
	RestaurantID       uuid.UUID   `gorm:"type:uuid;not null"`
	SellerSupplierID   uuid.UUID   `gorm:"type:uuid;not null;column:seller_supplier_id"`
	ImporterOfRecordID *uuid.UUID  `gorm:"type:uuid;column:importer_of_record_id;index"`
	ImportCaseID       *uuid.UUID  `gorm:"type:uuid;column:import_case_id"`
	Status             OrderStatus `gorm:"type:varchar(40);not null;index"`
	CurrencyCode       string      `gorm:"type:varchar(3);not null;column:currency_code"`
	Lines              []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderLine is a position copied from the accepted offer, renumbered from 1
type OrderLine struct {
	BaseModel
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	OrderID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Position  int        `gorm:"not null"`
	WineName  string     `gorm:"type:varchar(300);not null;column:wine_name"`
	Vintage   int        `gorm:""`
	Quantity  int        `gorm:"not null"`
	UnitPrice float64    `gorm:"not null;column:unit_price"`
	WineSkuID *uuid.UUID `gorm:"type:uuid;column:wine_sku_id"`
}

// OrderEventType classifies entries in the order audit log
type OrderEventType string

const (
	OrderEventCreated       OrderEventType = "ORDER_CREATED"
	OrderEventStatusChanged OrderEventType = "STATUS_CHANGED"
)

// OrderEvent is one append-only audit entry on an order
type OrderEvent struct {
	BaseModel
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	OrderID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	Type       OrderEventType `gorm:"type:varchar(30);not null"`
	FromStatus OrderStatus    `gorm:"type:varchar(40);column:from_status"`
	ToStatus   OrderStatus    `gorm:"type:varchar(40);column:to_status"`
	ActorID    uuid.UUID      `gorm:"type:uuid;column:actor_id"`
	Note       string         `gorm:"type:text"`
}

// ImportCaseStatus is owned by the compliance subsystem; the core only
// records the id and the importer that owns the case.
type ImportCaseStatus string

const (
	ImportCaseStatusOpen   ImportCaseStatus = "OPEN"
	ImportCaseStatusClosed ImportCaseStatus = "CLOSED"
)

// ImportCase is the local record of a compliance case. It may only be linked
// to an order whose importer of record equals ImporterID.
type ImportCase struct {
	BaseModel
	TenantID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	ImporterID uuid.UUID        `gorm:"type:uuid;not null;index"`
	OrderID    *uuid.UUID       `gorm:"type:uuid;index"`
	Reference  string           `gorm:"type:varchar(100)"`
	Status     ImportCaseStatus `gorm:"type:varchar(20);not null;default:'OPEN'"`
}

// IdentifierType is the priority-ordered identifier hierarchy used by the
// product identity resolver
type IdentifierType string

const (
	IdentifierTypeGTIN        IdentifierType = "GTIN"
	IdentifierTypeLWIN        IdentifierType = "LWIN"
	IdentifierTypeProducerSKU IdentifierType = "PRODUCER_SKU"
	IdentifierTypeImporterSKU IdentifierType = "IMPORTER_SKU"
)

// IdentifiedEntityType is what a product identifier points at
type IdentifiedEntityType string

const (
	EntityTypeWineMaster IdentifiedEntityType = "WINE_MASTER"
	EntityTypeWineSku    IdentifiedEntityType = "WINE_SKU"
)

// ProductIdentifier maps (type, value) onto a canonical entity within a
// tenant. Rows are insert-only; identifiers are registered, never rewritten.
type ProductIdentifier struct {
	BaseModel
	TenantID   uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_product_identifiers_key"`
	Type       IdentifierType       `gorm:"type:varchar(20);not null;uniqueIndex:idx_product_identifiers_key"`
	Value      string               `gorm:"type:varchar(200);not null;uniqueIndex:idx_product_identifiers_key"`
	OwnerID    *uuid.UUID           `gorm:"type:uuid;column:owner_id;uniqueIndex:idx_product_identifiers_key"`
	EntityType IdentifiedEntityType `gorm:"type:varchar(20);not null;column:entity_type"`
	EntityID   uuid.UUID            `gorm:"type:uuid;not null;column:entity_id"`
}

// WineMaster is the canonical deduplicated representation of a physical wine
type WineMaster struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"type:varchar(300);not null"`
	Producer string    `gorm:"type:varchar(200)"`
	Region   string    `gorm:"type:varchar(200)"`
	Country  string    `gorm:"type:varchar(100)"`
}

// WineSku is one sellable variant (vintage/volume) of a wine master
type WineSku struct {
	BaseModel
	TenantID     uuid.UUID `gorm:"type:uuid;not null;index"`
	WineMasterID uuid.UUID `gorm:"type:uuid;not null;index"`
	Vintage      int       `gorm:""`
	VolumeML     int       `gorm:"column:volume_ml"`
	PackSize     int       `gorm:"column:pack_size"`
}

// MatchMethod records which resolver stage produced a match attempt's outcome
type MatchMethod string

const (
	MatchMethodGTIN        MatchMethod = "GTIN"
	MatchMethodLWIN        MatchMethod = "LWIN"
	MatchMethodProducerSKU MatchMethod = "PRODUCER_SKU"
	MatchMethodImporterSKU MatchMethod = "IMPORTER_SKU"
	MatchMethodCanonical   MatchMethod = "CANONICAL"
	MatchMethodNone        MatchMethod = "NONE"
)

// MatchStatus classifies the outcome of a resolution attempt
type MatchStatus string

const (
	MatchStatusAutoMatch           MatchStatus = "AUTO_MATCH"
	MatchStatusAutoMatchWithGuards MatchStatus = "AUTO_MATCH_WITH_GUARDS"
	MatchStatusSuggested           MatchStatus = "SUGGESTED"
	MatchStatusPendingReview       MatchStatus = "PENDING_REVIEW"
	MatchStatusNoMatch             MatchStatus = "NO_MATCH"
)

// MatchResult is the immutable audit row written once per resolution attempt
type MatchResult struct {
	BaseModel
	TenantID     uuid.UUID   `gorm:"type:uuid;not null;index"`
	SourceRef    string      `gorm:"type:varchar(300);not null;column:source_ref"`
	Method       MatchMethod `gorm:"type:varchar(20);not null"`
	Status       MatchStatus `gorm:"type:varchar(30);not null;index"`
	WineMasterID *uuid.UUID  `gorm:"type:uuid;column:wine_master_id"`
	WineSkuID    *uuid.UUID  `gorm:"type:uuid;column:wine_sku_id"`
	Confidence   float64     `gorm:"not null"`
	Explanation  string      `gorm:"type:text"`
	Candidates   string      `gorm:"type:text"`
}

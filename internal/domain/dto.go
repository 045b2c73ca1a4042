package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreateOfferRequest is the input for creating a draft offer with its lines
type CreateOfferRequest struct {
	PurchaseRequestID uuid.UUID          `json:"purchaseRequestId" validate:"required"`
	RestaurantID      uuid.UUID          `json:"restaurantId" validate:"required"`
	SupplierID        uuid.UUID          `json:"supplierId" validate:"required"`
	CurrencyCode      string             `json:"currencyCode" validate:"omitempty,len=3"`
	Note              string             `json:"note"`
	Lines             []OfferLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// OfferLineRequest is one line position on a create/update call.
// Enrichment carries descriptive metadata only; commercial fields in it are
// rejected before any write.
type OfferLineRequest struct {
	WineName   string                 `json:"wineName" validate:"required,max=300"`
	Vintage    int                    `json:"vintage" validate:"omitempty,gte=1900"`
	Quantity   int                    `json:"quantity" validate:"required,gt=0"`
	UnitPrice  float64                `json:"unitPrice" validate:"gte=0"`
	Enrichment map[string]interface{} `json:"enrichment"`
	WineSkuID  *uuid.UUID             `json:"wineSkuId"`
}

// UpdateOfferRequest updates header fields of a draft offer
type UpdateOfferRequest struct {
	CurrencyCode *string    `json:"currencyCode" validate:"omitempty,len=3"`
	Note         *string    `json:"note"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

// UpdateOfferLinesRequest replaces the line set of a draft offer
type UpdateOfferLinesRequest struct {
	Lines []OfferLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// RejectOfferRequest carries the optional rejection reason
type RejectOfferRequest struct {
	Reason string `json:"reason"`
}

// OfferDTO is the API representation of an offer with lines and events
type OfferDTO struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenantId"`
	PurchaseRequestID uuid.UUID       `json:"purchaseRequestId"`
	RestaurantID      uuid.UUID       `json:"restaurantId"`
	SupplierID        uuid.UUID       `json:"supplierId"`
	Status            OfferStatus     `json:"status"`
	CurrencyCode      string          `json:"currencyCode"`
	Note              string          `json:"note,omitempty"`
	SentAt            *time.Time      `json:"sentAt,omitempty"`
	ExpiresAt         *time.Time      `json:"expiresAt,omitempty"`
	LockedAt          *time.Time      `json:"lockedAt,omitempty"`
	Lines             []OfferLineDTO  `json:"lines"`
	Events            []OfferEventDTO `json:"events,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// OfferLineDTO is the API representation of one offer line
type OfferLineDTO struct {
	ID         uuid.UUID  `json:"id"`
	Position   int        `json:"position"`
	WineName   string     `json:"wineName"`
	Vintage    int        `json:"vintage,omitempty"`
	Quantity   int        `json:"quantity"`
	UnitPrice  float64    `json:"unitPrice"`
	Enrichment string     `json:"enrichment,omitempty"`
	WineSkuID  *uuid.UUID `json:"wineSkuId,omitempty"`
}

// OfferEventDTO is the API representation of one offer audit entry
type OfferEventDTO struct {
	ID         uuid.UUID      `json:"id"`
	Type       OfferEventType `json:"type"`
	FromStatus OfferStatus    `json:"fromStatus,omitempty"`
	ToStatus   OfferStatus    `json:"toStatus,omitempty"`
	ActorID    uuid.UUID      `json:"actorId"`
	Note       string         `json:"note,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// OfferSnapshot is the immutable capture taken at acceptance time. It is what
// order creation consumes; the offer row itself is locked from that instant.
type OfferSnapshot struct {
	OfferID           uuid.UUID      `json:"offerId"`
	TenantID          uuid.UUID      `json:"tenantId"`
	PurchaseRequestID uuid.UUID      `json:"purchaseRequestId"`
	RestaurantID      uuid.UUID      `json:"restaurantId"`
	SupplierID        uuid.UUID      `json:"supplierId"`
	CurrencyCode      string         `json:"currencyCode"`
	AcceptedAt        time.Time      `json:"acceptedAt"`
	Lines             []OfferLineDTO `json:"lines"`
}

// SetOrderStatusRequest is the input for a direct status transition
type SetOrderStatusRequest struct {
	Status OrderStatus `json:"status" validate:"required"`
	Note   string      `json:"note"`
}

// DeclineOrderRequest carries the supplier's decline reason
type DeclineOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderDTO is the API representation of an order with lines and events
type OrderDTO struct {
	ID                 uuid.UUID       `json:"id"`
	TenantID           uuid.UUID       `json:"tenantId"`
	OfferID            uuid.UUID       `json:"offerId"`
	PurchaseRequestID  uuid.UUID       `json:"purchaseRequestId"`
	RestaurantID       uuid.UUID       `json:"restaurantId"`
	SellerSupplierID   uuid.UUID       `json:"sellerSupplierId"`
	ImporterOfRecordID *uuid.UUID      `json:"importerOfRecordId,omitempty"`
	ImportCaseID       *uuid.UUID      `json:"importCaseId,omitempty"`
	Status             OrderStatus     `json:"status"`
	CurrencyCode       string          `json:"currencyCode"`
	Lines              []OrderLineDTO  `json:"lines"`
	Events             []OrderEventDTO `json:"events,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// OrderLineDTO is the API representation of one order line
type OrderLineDTO struct {
	ID        uuid.UUID  `json:"id"`
	Position  int        `json:"position"`
	WineName  string     `json:"wineName"`
	Vintage   int        `json:"vintage,omitempty"`
	Quantity  int        `json:"quantity"`
	UnitPrice float64    `json:"unitPrice"`
	WineSkuID *uuid.UUID `json:"wineSkuId,omitempty"`
}

// OrderEventDTO is the API representation of one order audit entry
type OrderEventDTO struct {
	ID         uuid.UUID      `json:"id"`
	Type       OrderEventType `json:"type"`
	FromStatus OrderStatus    `json:"fromStatus,omitempty"`
	ToStatus   OrderStatus    `json:"toStatus,omitempty"`
	ActorID    uuid.UUID      `json:"actorId"`
	Note       string         `json:"note,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// OrderListResult is a paginated page of orders
type OrderListResult struct {
	Orders []OrderDTO `json:"orders"`
	Total  int64      `json:"total"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
}

// MatchProductRequest is the input to the product identity resolver: a source
// reference plus whatever structured identifiers the supplier catalog carried.
type MatchProductRequest struct {
	SourceRef   string     `json:"sourceRef" validate:"required,max=300"`
	GTIN        string     `json:"gtin"`
	LWIN        string     `json:"lwin"`
	ProducerSKU string     `json:"producerSku"`
	ProducerID  *uuid.UUID `json:"producerId"`
	ImporterSKU string     `json:"importerSku"`
	ImporterID  *uuid.UUID `json:"importerId"`
	Name        string     `json:"name"`
	Vintage     int        `json:"vintage"`
}

// MatchResultDTO is the API representation of one resolution outcome
type MatchResultDTO struct {
	ID           uuid.UUID   `json:"id"`
	SourceRef    string      `json:"sourceRef"`
	Method       MatchMethod `json:"method"`
	Status       MatchStatus `json:"status"`
	WineMasterID *uuid.UUID  `json:"wineMasterId,omitempty"`
	WineSkuID    *uuid.UUID  `json:"wineSkuId,omitempty"`
	Confidence   float64     `json:"confidence"`
	Explanation  string      `json:"explanation,omitempty"`
	Candidates   string      `json:"candidates,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// ActorDTO is the API representation of a resolved actor
type ActorDTO struct {
	UserID       uuid.UUID  `json:"userId"`
	TenantID     uuid.UUID  `json:"tenantId"`
	Roles        []Role     `json:"roles"`
	RestaurantID *uuid.UUID `json:"restaurantId,omitempty"`
	SupplierID   *uuid.UUID `json:"supplierId,omitempty"`
	ImporterID   *uuid.UUID `json:"importerId,omitempty"`
}

// LinkImportCaseRequest attaches an existing compliance case to an order
type LinkImportCaseRequest struct {
	ImportCaseID uuid.UUID `json:"importCaseId" validate:"required"`
}

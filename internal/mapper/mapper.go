package mapper

import (
	"github.com/winefeed/winefeed-api/internal/domain"
)

// ToOfferDTO converts an offer model with preloaded lines and optional events
// to its API representation
func ToOfferDTO(offer *domain.Offer, events []domain.OfferEvent) domain.OfferDTO {
	dto := domain.OfferDTO{
		ID:                offer.ID,
		TenantID:          offer.TenantID,
		PurchaseRequestID: offer.PurchaseRequestID,
		RestaurantID:      offer.RestaurantID,
		SupplierID:        offer.SupplierID,
		Status:            offer.Status,
		CurrencyCode:      offer.CurrencyCode,
		Note:              offer.Note,
		SentAt:            offer.SentAt,
		ExpiresAt:         offer.ExpiresAt,
		LockedAt:          offer.LockedAt,
		Lines:             make([]domain.OfferLineDTO, len(offer.Lines)),
		CreatedAt:         offer.CreatedAt,
		UpdatedAt:         offer.UpdatedAt,
	}
	for i := range offer.Lines {
		dto.Lines[i] = ToOfferLineDTO(&offer.Lines[i])
	}
	if len(events) > 0 {
		dto.Events = make([]domain.OfferEventDTO, len(events))
		for i := range events {
			dto.Events[i] = ToOfferEventDTO(&events[i])
		}
	}
	return dto
}

func ToOfferLineDTO(line *domain.OfferLine) domain.OfferLineDTO {
	return domain.OfferLineDTO{
		ID:         line.ID,
		Position:   line.Position,
		WineName:   line.WineName,
		Vintage:    line.Vintage,
		Quantity:   line.Quantity,
		UnitPrice:  line.UnitPrice,
		Enrichment: line.Enrichment,
		WineSkuID:  line.WineSkuID,
	}
}

func ToOfferEventDTO(event *domain.OfferEvent) domain.OfferEventDTO {
	return domain.OfferEventDTO{
		ID:         event.ID,
		Type:       event.Type,
		FromStatus: event.FromStatus,
		ToStatus:   event.ToStatus,
		ActorID:    event.ActorID,
		Note:       event.Note,
		CreatedAt:  event.CreatedAt,
	}
}

// ToOrderDTO converts an order model with preloaded lines and optional events
// to its API representation
func ToOrderDTO(order *domain.Order, events []domain.OrderEvent) domain.OrderDTO {
	dto := domain.OrderDTO{
		ID:                 order.ID,
		TenantID:           order.TenantID,
		OfferID:            order.OfferID,
		PurchaseRequestID:  order.PurchaseRequestID,
		RestaurantID:       order.RestaurantID,
		SellerSupplierID:   order.SellerSupplierID,
		ImporterOfRecordID: order.ImporterOfRecordID,
		ImportCaseID:       order.ImportCaseID,
		Status:             order.Status,
		CurrencyCode:       order.CurrencyCode,
		Lines:              make([]domain.OrderLineDTO, len(order.Lines)),
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	for i := range order.Lines {
		dto.Lines[i] = ToOrderLineDTO(&order.Lines[i])
	}
	if len(events) > 0 {
		dto.Events = make([]domain.OrderEventDTO, len(events))
		for i := range events {
			dto.Events[i] = ToOrderEventDTO(&events[i])
		}
	}
	return dto
}

func ToOrderLineDTO(line *domain.OrderLine) domain.OrderLineDTO {
	return domain.OrderLineDTO{
		ID:        line.ID,
		Position:  line.Position,
		WineName:  line.WineName,
		Vintage:   line.Vintage,
		Quantity:  line.Quantity,
		UnitPrice: line.UnitPrice,
		WineSkuID: line.WineSkuID,
	}
}

func ToOrderEventDTO(event *domain.OrderEvent) domain.OrderEventDTO {
	return domain.OrderEventDTO{
		ID:         event.ID,
		Type:       event.Type,
		FromStatus: event.FromStatus,
		ToStatus:   event.ToStatus,
		ActorID:    event.ActorID,
		Note:       event.Note,
		CreatedAt:  event.CreatedAt,
	}
}

func ToMatchResultDTO(result *domain.MatchResult) domain.MatchResultDTO {
	return domain.MatchResultDTO{
		ID:           result.ID,
		SourceRef:    result.SourceRef,
		Method:       result.Method,
		Status:       result.Status,
		WineMasterID: result.WineMasterID,
		WineSkuID:    result.WineSkuID,
		Confidence:   result.Confidence,
		Explanation:  result.Explanation,
		Candidates:   result.Candidates,
		CreatedAt:    result.CreatedAt,
	}
}

func ToActorDTO(actor *domain.Actor) domain.ActorDTO {
	return domain.ActorDTO{
		UserID:       actor.UserID,
		TenantID:     actor.TenantID,
		Roles:        actor.Roles,
		RestaurantID: actor.RestaurantID,
		SupplierID:   actor.SupplierID,
		ImporterID:   actor.ImporterID,
	}
}

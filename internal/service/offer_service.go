package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/mapper"
	"github.com/winefeed/winefeed-api/internal/metrics"
	"github.com/winefeed/winefeed-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// defaultOfferValidity is how long a sent offer stays open when the supplier
// did not set an explicit expiry
const defaultOfferValidity = 30 * 24 * time.Hour

// forbiddenEnrichmentKeys are commercial fields that must never travel inside
// a line's enrichment payload; pricing lives on the line itself
var forbiddenEnrichmentKeys = []string{"price", "currency", "cost", "value"}

// currencySymbolPattern catches embedded currency notation in enrichment values
var currencySymbolPattern = regexp.MustCompile(`[€$£¥]|\b(?:EUR|USD|GBP|SEK|NOK|DKK)\s*\d`)

// OfferService governs the offer lifecycle: draft editing, sending,
// acceptance with locking, and the append-only event log.
type OfferService struct {
	offers *repository.OfferRepository
	logger *zap.Logger
	db     *gorm.DB
}

func NewOfferService(offers *repository.OfferRepository, logger *zap.Logger, db *gorm.DB) *OfferService {
	return &OfferService{offers: offers, logger: logger, db: db}
}

// checkEnrichment validates one enrichment payload against the forbidden
// commercial fields. Runs before any write; the whole call is rejected on the
// first hit.
func checkEnrichment(enrichment map[string]interface{}) error {
	for key, val := range enrichment {
		lower := strings.ToLower(key)
		for _, forbidden := range forbiddenEnrichmentKeys {
			if strings.Contains(lower, forbidden) {
				return &ForbiddenFieldError{Field: key, Pattern: forbidden}
			}
		}
		switch v := val.(type) {
		case string:
			if m := currencySymbolPattern.FindString(v); m != "" {
				return &ForbiddenFieldError{Field: key, Pattern: m}
			}
		case map[string]interface{}:
			if err := checkEnrichment(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkLines runs the enrichment security check across a whole line set
func checkLines(lines []domain.OfferLineRequest) error {
	for _, line := range lines {
		if err := checkEnrichment(line.Enrichment); err != nil {
			return err
		}
	}
	return nil
}

// buildLines converts line requests into models, numbering positions from 1
func buildLines(tenantID, offerID uuid.UUID, lines []domain.OfferLineRequest) ([]domain.OfferLine, error) {
	result := make([]domain.OfferLine, len(lines))
	for i, line := range lines {
		enrichment := ""
		if len(line.Enrichment) > 0 {
			raw, err := json.Marshal(line.Enrichment)
			if err != nil {
				return nil, fmt.Errorf("failed to encode enrichment: %w", err)
			}
			enrichment = string(raw)
		}
		result[i] = domain.OfferLine{
			TenantID:   tenantID,
			OfferID:    offerID,
			Position:   i + 1,
			WineName:   line.WineName,
			Vintage:    line.Vintage,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPrice,
			Enrichment: enrichment,
			WineSkuID:  line.WineSkuID,
		}
	}
	return result, nil
}

// CreateOffer inserts a new draft offer with its lines as one unit. The
// enrichment security check runs first; nothing is written when it fails, and
// a failed line insert rolls the offer row back with it.
func (s *OfferService) CreateOffer(ctx context.Context, actor *domain.Actor, req *domain.CreateOfferRequest) (*domain.OfferDTO, error) {
	if !actor.HasRole(domain.RoleSeller) && !actor.HasRole(domain.RoleRestaurant) {
		return nil, &AuthorizationError{Detail: "offer creation requires a seller or restaurant role"}
	}
	if err := checkLines(req.Lines); err != nil {
		return nil, err
	}

	currency := req.CurrencyCode
	if currency == "" {
		currency = "EUR"
	}

	offer := &domain.Offer{
		TenantID:          actor.TenantID,
		PurchaseRequestID: req.PurchaseRequestID,
		RestaurantID:      req.RestaurantID,
		SupplierID:        req.SupplierID,
		Status:            domain.OfferStatusDraft,
		CurrencyCode:      currency,
		Note:              req.Note,
		CreatedByID:       actor.UserID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offers := s.offers.WithTx(tx)
		if err := offers.Create(ctx, offer); err != nil {
			return fmt.Errorf("failed to create offer: %w", err)
		}
		lines, err := buildLines(actor.TenantID, offer.ID, req.Lines)
		if err != nil {
			return err
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("failed to create offer lines: %w", err)
		}
		offer.Lines = lines
		return offers.CreateEvent(ctx, &domain.OfferEvent{
			TenantID: actor.TenantID,
			OfferID:  offer.ID,
			Type:     domain.OfferEventCreated,
			ToStatus: domain.OfferStatusDraft,
			ActorID:  actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("offer created",
		zap.String("offer_id", offer.ID.String()),
		zap.String("tenant_id", actor.TenantID.String()),
		zap.Int("lines", len(offer.Lines)))

	dto := mapper.ToOfferDTO(offer, nil)
	return &dto, nil
}

// requireDraft loads an offer and verifies it is still editable
func (s *OfferService) requireDraft(ctx context.Context, tenantID, id uuid.UUID) (*domain.Offer, error) {
	offer, err := s.offers.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "offer", Err: err}
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	if offer.LockedAt != nil {
		return nil, ErrOfferLocked
	}
	if offer.Status != domain.OfferStatusDraft {
		return nil, &StateConflictError{Entity: "offer", Current: string(offer.Status), Detail: "only draft offers can be edited"}
	}
	return offer, nil
}

// UpdateOffer updates header fields of a draft offer
func (s *OfferService) UpdateOffer(ctx context.Context, actor *domain.Actor, id uuid.UUID, req *domain.UpdateOfferRequest) (*domain.OfferDTO, error) {
	offer, err := s.requireDraft(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.CurrencyCode != nil {
		updates["currency_code"] = *req.CurrencyCode
	}
	if req.Note != nil {
		updates["note"] = *req.Note
	}
	if req.ExpiresAt != nil {
		updates["expires_at"] = *req.ExpiresAt
	}
	if len(updates) > 0 {
		if err := s.offers.UpdateFields(ctx, actor.TenantID, id, updates); err != nil {
			return nil, fmt.Errorf("failed to update offer: %w", err)
		}
	}

	offer, err = s.offers.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload offer: %w", err)
	}
	dto := mapper.ToOfferDTO(offer, nil)
	return &dto, nil
}

// UpdateOfferLines replaces the line set of a draft offer. The enrichment
// security check is re-run on every update.
func (s *OfferService) UpdateOfferLines(ctx context.Context, actor *domain.Actor, id uuid.UUID, req *domain.UpdateOfferLinesRequest) (*domain.OfferDTO, error) {
	if err := checkLines(req.Lines); err != nil {
		return nil, err
	}
	offer, err := s.requireDraft(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	lines, err := buildLines(actor.TenantID, offer.ID, req.Lines)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offers := s.offers.WithTx(tx)

		// Re-assert editability while holding the offer row, so a racing
		// accept and a line replace cannot interleave
		ok, err := offers.TransitionStatus(ctx, actor.TenantID, offer.ID,
			[]domain.OfferStatus{domain.OfferStatusDraft}, domain.OfferStatusDraft, nil)
		if err != nil {
			return fmt.Errorf("failed to update offer: %w", err)
		}
		if !ok {
			current, err := offers.GetByID(ctx, actor.TenantID, offer.ID)
			if err != nil {
				return fmt.Errorf("failed to reload offer: %w", err)
			}
			if current.LockedAt != nil {
				return ErrOfferLocked
			}
			return &StateConflictError{Entity: "offer", Current: string(current.Status), Detail: "only draft offers can be edited"}
		}

		if err := offers.ReplaceLines(ctx, actor.TenantID, offer.ID, lines); err != nil {
			return fmt.Errorf("failed to replace offer lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	offer, err = s.offers.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload offer: %w", err)
	}
	dto := mapper.ToOfferDTO(offer, nil)
	return &dto, nil
}

// SendOffer transitions a draft offer to sent and stamps the validity window
func (s *OfferService) SendOffer(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.OfferDTO, error) {
	offer, err := s.offers.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "offer", Err: err}
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(defaultOfferValidity)
	if offer.ExpiresAt != nil {
		expiresAt = *offer.ExpiresAt
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offers := s.offers.WithTx(tx)
		ok, err := offers.TransitionStatus(ctx, actor.TenantID, id,
			[]domain.OfferStatus{domain.OfferStatusDraft}, domain.OfferStatusSent,
			map[string]interface{}{"sent_at": now, "expires_at": expiresAt})
		if err != nil {
			return fmt.Errorf("failed to send offer: %w", err)
		}
		if !ok {
			return s.statusConflict(ctx, actor.TenantID, id)
		}
		return offers.CreateEvent(ctx, &domain.OfferEvent{
			TenantID:   actor.TenantID,
			OfferID:    id,
			Type:       domain.OfferEventStatusChanged,
			FromStatus: domain.OfferStatusDraft,
			ToStatus:   domain.OfferStatusSent,
			ActorID:    actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.reloadDTO(ctx, actor.TenantID, id)
}

// AcceptOffer accepts an offer on behalf of the restaurant. Exactly one offer
// may win per purchase request; on success the offer is locked forever, an
// immutable snapshot of offer and lines is captured, one audit event is
// appended, and the snapshot is returned for downstream order creation.
func (s *OfferService) AcceptOffer(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.OfferSnapshot, error) {
	offer, err := s.offers.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "offer", Err: err}
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}

	if offer.Status == domain.OfferStatusAccepted {
		return nil, ErrOfferAlreadyAccepted
	}
	if offer.LockedAt != nil {
		return nil, ErrOfferLocked
	}
	if offer.Status.IsTerminal() {
		return nil, &StateConflictError{Entity: "offer", Current: string(offer.Status), Detail: "terminal offers cannot be accepted"}
	}

	// First-acceptance-wins across the parent request
	winner, err := s.offers.FindAcceptedForRequest(ctx, actor.TenantID, offer.PurchaseRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to check competing offers: %w", err)
	}
	if winner != nil && winner.ID != offer.ID {
		return nil, ErrRequestAlreadyAccepted
	}

	now := time.Now().UTC()
	var snapshot *domain.OfferSnapshot

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offers := s.offers.WithTx(tx)

		// Re-check the race inside the transaction; two concurrent accepts
		// on competing offers must not both pass the pre-check above.
		winner, err := offers.FindAcceptedForRequest(ctx, actor.TenantID, offer.PurchaseRequestID)
		if err != nil {
			return fmt.Errorf("failed to check competing offers: %w", err)
		}
		if winner != nil && winner.ID != offer.ID {
			return ErrRequestAlreadyAccepted
		}

		ok, err := offers.TransitionStatus(ctx, actor.TenantID, id,
			[]domain.OfferStatus{domain.OfferStatusDraft, domain.OfferStatusSent},
			domain.OfferStatusAccepted,
			map[string]interface{}{"locked_at": now})
		if err != nil {
			// The partial unique index on (tenant, purchase_request) for
			// accepted offers is the last line of defense when two accepts on
			// competing offers race past both status re-checks.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrRequestAlreadyAccepted
			}
			return fmt.Errorf("failed to accept offer: %w", err)
		}
		if !ok {
			// The conditional update lost a race; report the same error a
			// sequential caller would have gotten.
			current, err := offers.GetByID(ctx, actor.TenantID, id)
			if err != nil {
				return fmt.Errorf("failed to reload offer: %w", err)
			}
			if current.Status == domain.OfferStatusAccepted {
				return ErrOfferAlreadyAccepted
			}
			if current.LockedAt != nil {
				return ErrOfferLocked
			}
			return &StateConflictError{Entity: "offer", Current: string(current.Status)}
		}

		// Capture the snapshot from lines re-read under the row lock taken by
		// the transition, so a line edit committing mid-flight cannot leave
		// the stored snapshot out of step with the final lines
		current, err := offers.GetByID(ctx, actor.TenantID, id)
		if err != nil {
			return fmt.Errorf("failed to reload offer: %w", err)
		}
		snapshot = buildSnapshot(current, now)
		raw, err := json.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		if err := offers.UpdateFields(ctx, actor.TenantID, id, map[string]interface{}{"accepted_snapshot": string(raw)}); err != nil {
			return fmt.Errorf("failed to store snapshot: %w", err)
		}

		return offers.CreateEvent(ctx, &domain.OfferEvent{
			TenantID:   actor.TenantID,
			OfferID:    id,
			Type:       domain.OfferEventAccepted,
			FromStatus: offer.Status,
			ToStatus:   domain.OfferStatusAccepted,
			ActorID:    actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.OffersAccepted.Inc()
	s.logger.Info("offer accepted and locked",
		zap.String("offer_id", id.String()),
		zap.String("purchase_request_id", offer.PurchaseRequestID.String()))

	return snapshot, nil
}

// RejectOffer transitions an offer to rejected with an optional reason
func (s *OfferService) RejectOffer(ctx context.Context, actor *domain.Actor, id uuid.UUID, req *domain.RejectOfferRequest) (*domain.OfferDTO, error) {
	return s.closeOffer(ctx, actor, id, domain.OfferStatusRejected, req.Reason)
}

// ExpireOffer transitions an offer to expired
func (s *OfferService) ExpireOffer(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.OfferDTO, error) {
	return s.closeOffer(ctx, actor, id, domain.OfferStatusExpired, "")
}

func (s *OfferService) closeOffer(ctx context.Context, actor *domain.Actor, id uuid.UUID, to domain.OfferStatus, note string) (*domain.OfferDTO, error) {
	offer, err := s.offers.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "offer", Err: err}
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	if offer.LockedAt != nil {
		return nil, ErrOfferLocked
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offers := s.offers.WithTx(tx)
		ok, err := offers.TransitionStatus(ctx, actor.TenantID, id,
			[]domain.OfferStatus{domain.OfferStatusDraft, domain.OfferStatusSent}, to, nil)
		if err != nil {
			return fmt.Errorf("failed to close offer: %w", err)
		}
		if !ok {
			return s.statusConflict(ctx, actor.TenantID, id)
		}
		return offers.CreateEvent(ctx, &domain.OfferEvent{
			TenantID:   actor.TenantID,
			OfferID:    id,
			Type:       domain.OfferEventStatusChanged,
			FromStatus: offer.Status,
			ToStatus:   to,
			ActorID:    actor.UserID,
			Note:       note,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.reloadDTO(ctx, actor.TenantID, id)
}

// GetOffer assembles offer, ordered lines and ordered events. Absence is an
// expected outcome on read paths: it returns (nil, nil), not an error.
func (s *OfferService) GetOffer(ctx context.Context, actor *domain.Actor, id uuid.UUID) (*domain.OfferDTO, error) {
	offer, err := s.offers.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	events, err := s.offers.ListEvents(ctx, actor.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list offer events: %w", err)
	}
	dto := mapper.ToOfferDTO(offer, events)
	return &dto, nil
}

// GetSnapshot decodes the immutable acceptance snapshot of a locked offer
func (s *OfferService) GetSnapshot(ctx context.Context, tenantID, id uuid.UUID) (*domain.OfferSnapshot, error) {
	offer, err := s.offers.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Entity: "offer", Err: err}
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	if offer.AcceptedSnapshot == "" {
		return nil, &StateConflictError{Entity: "offer", Current: string(offer.Status), Detail: "offer has no acceptance snapshot"}
	}
	var snapshot domain.OfferSnapshot
	if err := json.Unmarshal([]byte(offer.AcceptedSnapshot), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snapshot, nil
}

// ExpireDueOffers sweeps sent offers whose expiry date has passed. Called by
// the background job; each offer is expired individually so one failure does
// not abort the sweep.
func (s *OfferService) ExpireDueOffers(ctx context.Context) (int, error) {
	due, err := s.offers.ListSentPastExpiry(ctx, time.Now().UTC(), repository.MaxPageSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due offers: %w", err)
	}

	expired := 0
	for _, offer := range due {
		systemActor := &domain.Actor{UserID: uuid.Nil, TenantID: offer.TenantID}
		if _, err := s.ExpireOffer(ctx, systemActor, offer.ID); err != nil {
			s.logger.Warn("failed to expire offer",
				zap.String("offer_id", offer.ID.String()),
				zap.Error(err))
			continue
		}
		expired++
	}
	metrics.OffersExpired.Add(float64(expired))
	return expired, nil
}

// statusConflict builds the state-conflict error for a failed conditional
// transition, naming the offer's current status
func (s *OfferService) statusConflict(ctx context.Context, tenantID, id uuid.UUID) error {
	current, err := s.offers.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Entity: "offer", Err: err}
		}
		return fmt.Errorf("failed to reload offer: %w", err)
	}
	if current.LockedAt != nil {
		return ErrOfferLocked
	}
	return &StateConflictError{Entity: "offer", Current: string(current.Status)}
}

func (s *OfferService) reloadDTO(ctx context.Context, tenantID, id uuid.UUID) (*domain.OfferDTO, error) {
	offer, err := s.offers.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload offer: %w", err)
	}
	dto := mapper.ToOfferDTO(offer, nil)
	return &dto, nil
}

func buildSnapshot(offer *domain.Offer, acceptedAt time.Time) *domain.OfferSnapshot {
	lines := make([]domain.OfferLineDTO, len(offer.Lines))
	for i, line := range offer.Lines {
		lines[i] = mapper.ToOfferLineDTO(&line)
	}
	return &domain.OfferSnapshot{
		OfferID:           offer.ID,
		TenantID:          offer.TenantID,
		PurchaseRequestID: offer.PurchaseRequestID,
		RestaurantID:      offer.RestaurantID,
		SupplierID:        offer.SupplierID,
		CurrencyCode:      offer.CurrencyCode,
		AcceptedAt:        acceptedAt,
		Lines:             lines,
	}
}

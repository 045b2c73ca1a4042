package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/winefeed/winefeed-api/internal/config"
	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/mapper"
	"github.com/winefeed/winefeed-api/internal/metrics"
	"github.com/winefeed/winefeed-api/internal/repository"
	"github.com/winefeed/winefeed-api/internal/wineref"
	"go.uber.org/zap"
)

// Identifier match confidences. Exact identifier hits are certain or
// near-certain; free-text resolution never crosses the auto-accept line.
const (
	confidenceGTIN        = 1.0
	confidenceLWIN        = 1.0
	confidenceProducerSKU = 0.95
	confidenceImporterSKU = 0.90
)

// WineLookup is the capability the resolver consumes from the external
// reference service. Narrowed to an interface so tests can substitute a fake.
type WineLookup interface {
	CheckWine(ctx context.Context, name string, vintage int) (*wineref.CheckResult, error)
}

// MatchService resolves supplier catalog rows onto canonical wine records.
// Identifiers are tried in strict priority order; the first hit wins and the
// remaining stages are skipped. Free-text resolution only ever suggests.
type MatchService struct {
	products *repository.ProductRepository
	results  *repository.MatchResultRepository
	lookup   WineLookup
	cfg      *config.MatchingConfig
	logger   *zap.Logger
}

func NewMatchService(
	products *repository.ProductRepository,
	results *repository.MatchResultRepository,
	lookup WineLookup,
	cfg *config.MatchingConfig,
	logger *zap.Logger,
) *MatchService {
	return &MatchService{
		products: products,
		results:  results,
		lookup:   lookup,
		cfg:      cfg,
		logger:   logger,
	}
}

// identifierStage pairs one identifier type with the request fields it needs.
// Stages with an empty value, or SKU stages missing their owner, are skipped.
// SKU-scoped hits report AUTO_MATCH_WITH_GUARDS because the mapping is owned
// by one party rather than globally registered.
type identifierStage struct {
	idType     domain.IdentifierType
	method     domain.MatchMethod
	value      string
	ownerID    *uuid.UUID
	needsOwner bool
	confidence float64
	hitStatus  domain.MatchStatus
}

func stages(req *domain.MatchProductRequest) []identifierStage {
	return []identifierStage{
		{domain.IdentifierTypeGTIN, domain.MatchMethodGTIN, req.GTIN, nil, false, confidenceGTIN, domain.MatchStatusAutoMatch},
		{domain.IdentifierTypeLWIN, domain.MatchMethodLWIN, req.LWIN, nil, false, confidenceLWIN, domain.MatchStatusAutoMatch},
		{domain.IdentifierTypeProducerSKU, domain.MatchMethodProducerSKU, req.ProducerSKU, req.ProducerID, true, confidenceProducerSKU, domain.MatchStatusAutoMatchWithGuards},
		{domain.IdentifierTypeImporterSKU, domain.MatchMethodImporterSKU, req.ImporterSKU, req.ImporterID, true, confidenceImporterSKU, domain.MatchStatusAutoMatchWithGuards},
	}
}

// MatchProduct runs the resolution chain for one catalog row and writes
// exactly one immutable audit row for the attempt. The audit write is
// best-effort: a failing insert is logged but never masks the outcome.
func (s *MatchService) MatchProduct(ctx context.Context, actor *domain.Actor, req *domain.MatchProductRequest) (*domain.MatchResultDTO, error) {
	result, err := s.resolve(ctx, actor.TenantID, req)
	if err != nil {
		return nil, err
	}
	result.TenantID = actor.TenantID
	result.SourceRef = req.SourceRef

	if err := s.results.Create(ctx, result); err != nil {
		s.logger.Warn("failed to record match result",
			zap.String("source_ref", req.SourceRef),
			zap.Error(err))
	}

	metrics.MatchAttempts.WithLabelValues(string(result.Method), string(result.Status)).Inc()
	s.logger.Info("product match attempt",
		zap.String("source_ref", req.SourceRef),
		zap.String("method", string(result.Method)),
		zap.String("status", string(result.Status)),
		zap.Float64("confidence", result.Confidence))

	dto := mapper.ToMatchResultDTO(result)
	return &dto, nil
}

func (s *MatchService) resolve(ctx context.Context, tenantID uuid.UUID, req *domain.MatchProductRequest) (*domain.MatchResult, error) {
	var firstMiss *identifierStage
	for _, stage := range stages(req) {
		if stage.value == "" {
			continue
		}
		if stage.needsOwner && stage.ownerID == nil {
			continue
		}

		identifier, err := s.products.FindIdentifier(ctx, tenantID, stage.idType, stage.value, stage.ownerID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s identifier: %w", stage.idType, err)
		}
		if identifier != nil {
			return s.resultFromIdentifier(ctx, tenantID, identifier, stage)
		}

		// Provided but unknown in the registry; remember the highest-priority
		// miss and keep going, a lower-priority identifier may still hit
		if firstMiss == nil {
			miss := stage
			firstMiss = &miss
		}
	}

	// Every provided identifier missed. With auto-create on we mint a
	// canonical record under the strongest missed identifier; text results
	// never mint.
	if firstMiss != nil && s.cfg.AutoCreateEnabled {
		return s.autoCreate(ctx, tenantID, req, *firstMiss)
	}

	if req.Name != "" {
		return s.resolveByText(ctx, req)
	}

	if firstMiss != nil {
		return &domain.MatchResult{
			Method:      firstMiss.method,
			Status:      domain.MatchStatusPendingReview,
			Confidence:  0,
			Explanation: fmt.Sprintf("%s %q is not registered", firstMiss.idType, firstMiss.value),
		}, nil
	}

	return &domain.MatchResult{
		Method:      domain.MatchMethodNone,
		Status:      domain.MatchStatusNoMatch,
		Confidence:  0,
		Explanation: "no identifiers or name provided",
	}, nil
}

// resultFromIdentifier builds the outcome for a registry hit, filling in the
// master id when the identifier points at a sku
func (s *MatchService) resultFromIdentifier(ctx context.Context, tenantID uuid.UUID, identifier *domain.ProductIdentifier, stage identifierStage) (*domain.MatchResult, error) {
	result := &domain.MatchResult{
		Method:      stage.method,
		Status:      stage.hitStatus,
		Confidence:  stage.confidence,
		Explanation: fmt.Sprintf("exact %s match", stage.idType),
	}
	switch identifier.EntityType {
	case domain.EntityTypeWineSku:
		skuID := identifier.EntityID
		result.WineSkuID = &skuID
		sku, err := s.products.GetWineSku(ctx, tenantID, skuID)
		if err != nil {
			return nil, fmt.Errorf("failed to load matched sku: %w", err)
		}
		masterID := sku.WineMasterID
		result.WineMasterID = &masterID
	case domain.EntityTypeWineMaster:
		masterID := identifier.EntityID
		result.WineMasterID = &masterID
	}
	return result, nil
}

// autoCreate mints a wine master and sku for an unregistered identifier and
// registers the identifier against the new sku. SKU-scoped identifier types
// register under their owner; master-scoped types register globally.
func (s *MatchService) autoCreate(ctx context.Context, tenantID uuid.UUID, req *domain.MatchProductRequest, stage identifierStage) (*domain.MatchResult, error) {
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Unresolved %s %s", stage.idType, stage.value)
	}

	master := &domain.WineMaster{TenantID: tenantID, Name: name}
	if err := s.products.CreateWineMaster(ctx, master); err != nil {
		return nil, fmt.Errorf("failed to create wine master: %w", err)
	}
	sku := &domain.WineSku{TenantID: tenantID, WineMasterID: master.ID, Vintage: req.Vintage}
	if err := s.products.CreateWineSku(ctx, sku); err != nil {
		return nil, fmt.Errorf("failed to create wine sku: %w", err)
	}

	identifier := &domain.ProductIdentifier{
		TenantID:   tenantID,
		Type:       stage.idType,
		Value:      stage.value,
		OwnerID:    stage.ownerID,
		EntityType: domain.EntityTypeWineSku,
		EntityID:   sku.ID,
	}
	if err := s.products.RegisterIdentifier(ctx, identifier); err != nil {
		return nil, fmt.Errorf("failed to register identifier: %w", err)
	}

	s.logger.Info("auto-created canonical record",
		zap.String("wine_master_id", master.ID.String()),
		zap.String("identifier_type", string(stage.idType)),
		zap.String("identifier_value", stage.value))

	masterID := master.ID
	skuID := sku.ID
	return &domain.MatchResult{
		Method:       stage.method,
		Status:       domain.MatchStatusAutoMatchWithGuards,
		WineMasterID: &masterID,
		WineSkuID:    &skuID,
		Confidence:   stage.confidence,
		Explanation:  fmt.Sprintf("auto-created from unregistered %s", stage.idType),
	}, nil
}

// resolveByText asks the external reference service about a free-text name.
// Text results are never auto-accepted regardless of score; the best outcome
// is a suggestion awaiting human review. Lookup failures and timeouts degrade
// to pending review, never to an error.
func (s *MatchService) resolveByText(ctx context.Context, req *domain.MatchProductRequest) (*domain.MatchResult, error) {
	if s.lookup == nil {
		return &domain.MatchResult{
			Method:      domain.MatchMethodCanonical,
			Status:      domain.MatchStatusPendingReview,
			Confidence:  0,
			Explanation: "canonical lookup is not configured",
		}, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeoutDuration())
	defer cancel()

	check, err := s.lookup.CheckWine(lookupCtx, req.Name, req.Vintage)
	if err != nil {
		s.logger.Warn("canonical lookup failed",
			zap.String("name", req.Name),
			zap.Error(err))
		return &domain.MatchResult{
			Method:      domain.MatchMethodCanonical,
			Status:      domain.MatchStatusPendingReview,
			Confidence:  0,
			Explanation: fmt.Sprintf("canonical lookup unavailable: %v", err),
		}, nil
	}

	if check.Status != wineref.CheckStatusMatched {
		return &domain.MatchResult{
			Method:      domain.MatchMethodCanonical,
			Status:      domain.MatchStatusNoMatch,
			Confidence:  0,
			Explanation: fmt.Sprintf("no canonical wine found for %q", req.Name),
		}, nil
	}

	candidates := ""
	if len(check.Candidates) > 0 {
		if raw, err := json.Marshal(check.Candidates); err == nil {
			candidates = string(raw)
		}
	}

	return &domain.MatchResult{
		Method:      domain.MatchMethodCanonical,
		Status:      domain.MatchStatusSuggested,
		Confidence:  check.Score / 100,
		Explanation: fmt.Sprintf("canonical suggestion %q (score %.0f)", check.CanonicalName, check.Score),
		Candidates:  candidates,
	}, nil
}

// GetMatchHistory returns the attempt history for a source reference
func (s *MatchService) GetMatchHistory(ctx context.Context, actor *domain.Actor, sourceRef string, limit int) ([]domain.MatchResultDTO, error) {
	results, err := s.results.ListBySourceRef(ctx, actor.TenantID, sourceRef, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list match history: %w", err)
	}
	dtos := make([]domain.MatchResultDTO, len(results))
	for i := range results {
		dtos[i] = mapper.ToMatchResultDTO(&results[i])
	}
	return dtos, nil
}

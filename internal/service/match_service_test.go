package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/winefeed/winefeed-api/internal/config"
	"github.com/winefeed/winefeed-api/internal/domain"
	"github.com/winefeed/winefeed-api/internal/repository"
	"github.com/winefeed/winefeed-api/internal/wineref"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeLookup struct {
	result *wineref.CheckResult
	err    error
	calls  int
}

func (f *fakeLookup) CheckWine(ctx context.Context, name string, vintage int) (*wineref.CheckResult, error) {
	f.calls++
	return f.result, f.err
}

func newMatchService(t *testing.T, db *gorm.DB, lookup WineLookup, autoCreate bool) *MatchService {
	t.Helper()
	cfg := &config.MatchingConfig{AutoCreateEnabled: autoCreate, LookupTimeout: 2}
	return NewMatchService(
		repository.NewProductRepository(db),
		repository.NewMatchResultRepository(db),
		lookup,
		cfg,
		zap.NewNop(),
	)
}

// seedSku creates a wine master with one sku and registers the given
// identifier against the sku
func seedSku(t *testing.T, db *gorm.DB, tenantID uuid.UUID, idType domain.IdentifierType, value string, ownerID *uuid.UUID) (*domain.WineMaster, *domain.WineSku) {
	t.Helper()
	master := &domain.WineMaster{TenantID: tenantID, Name: "Chateau Margaux", Producer: "Chateau Margaux", Region: "Bordeaux"}
	require.NoError(t, db.Create(master).Error)
	sku := &domain.WineSku{TenantID: tenantID, WineMasterID: master.ID, Vintage: 2015, VolumeML: 750}
	require.NoError(t, db.Create(sku).Error)
	require.NoError(t, db.Create(&domain.ProductIdentifier{
		TenantID:   tenantID,
		Type:       idType,
		Value:      value,
		OwnerID:    ownerID,
		EntityType: domain.EntityTypeWineSku,
		EntityID:   sku.ID,
	}).Error)
	return master, sku
}

func matchActor(tenantID uuid.UUID) *domain.Actor {
	return &domain.Actor{UserID: uuid.New(), TenantID: tenantID, Roles: []domain.Role{domain.RoleAdmin}}
}

func TestMatchByGTIN(t *testing.T) {
	db := newTestDB(t)
	svc := newMatchService(t, db, nil, false)
	tenantID := uuid.New()
	master, sku := seedSku(t, db, tenantID, domain.IdentifierTypeGTIN, "7312345678901", nil)

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-1",
		GTIN:      "7312345678901",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MatchMethodGTIN, result.Method)
	assert.Equal(t, domain.MatchStatusAutoMatch, result.Status)
	assert.Equal(t, 1.0, result.Confidence)
	require.NotNil(t, result.WineSkuID)
	assert.Equal(t, sku.ID, *result.WineSkuID)
	require.NotNil(t, result.WineMasterID)
	assert.Equal(t, master.ID, *result.WineMasterID)

	// Exactly one audit row per attempt
	history, err := svc.GetMatchHistory(context.Background(), matchActor(tenantID), "catalog-row-1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestMatchByLWIN(t *testing.T) {
	db := newTestDB(t)
	svc := newMatchService(t, db, nil, false)
	tenantID := uuid.New()
	_, sku := seedSku(t, db, tenantID, domain.IdentifierTypeLWIN, "1012345", nil)

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-2",
		LWIN:      "1012345",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchMethodLWIN, result.Method)
	assert.Equal(t, domain.MatchStatusAutoMatch, result.Status)
	require.NotNil(t, result.WineSkuID)
	assert.Equal(t, sku.ID, *result.WineSkuID)
}

func TestMatchMissedIdentifierFallsThrough(t *testing.T) {
	db := newTestDB(t)
	svc := newMatchService(t, db, nil, false)
	tenantID := uuid.New()
	// The supplied GTIN is unknown but the LWIN is registered; the chain
	// falls through to the next stage instead of giving up
	_, sku := seedSku(t, db, tenantID, domain.IdentifierTypeLWIN, "1012345", nil)

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-3",
		GTIN:      "7300000000000",
		LWIN:      "1012345",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchMethodLWIN, result.Method)
	assert.Equal(t, domain.MatchStatusAutoMatch, result.Status)
	require.NotNil(t, result.WineSkuID)
	assert.Equal(t, sku.ID, *result.WineSkuID)
}

func TestMatchUnregisteredIdentifierGoesToReview(t *testing.T) {
	db := newTestDB(t)
	svc := newMatchService(t, db, nil, false)
	tenantID := uuid.New()

	// All identifiers missed, no text fallback, auto-create off: the
	// strongest missed identifier is reported for review
	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-3b",
		GTIN:      "7300000000000",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchMethodGTIN, result.Method)
	assert.Equal(t, domain.MatchStatusPendingReview, result.Status)
	assert.Nil(t, result.WineSkuID)
}

func TestMatchMissedIdentifierFallsToText(t *testing.T) {
	db := newTestDB(t)
	lookup := &fakeLookup{result: &wineref.CheckResult{
		Status:        wineref.CheckStatusMatched,
		CanonicalName: "Barolo DOCG",
		Score:         88,
	}}
	svc := newMatchService(t, db, lookup, false)
	tenantID := uuid.New()

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-3c",
		GTIN:      "7300000000000",
		Name:      "Barolo",
		Vintage:   2018,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchMethodCanonical, result.Method)
	assert.Equal(t, domain.MatchStatusSuggested, result.Status)
	assert.Equal(t, 1, lookup.calls)
}

func TestMatchByProducerSKU(t *testing.T) {
	db := newTestDB(t)
	svc := newMatchService(t, db, nil, false)
	tenantID := uuid.New()
	producerID := uuid.New()
	_, sku := seedSku(t, db, tenantID, domain.IdentifierTypeProducerSKU, "CM-2015-750", &producerID)

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef:   "catalog-row-4",
		ProducerSKU: "CM-2015-750",
		ProducerID:  &producerID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchMethodProducerSKU, result.Method)
	assert.Equal(t, domain.MatchStatusAutoMatchWithGuards, result.Status)
	assert.Equal(t, 0.95, result.Confidence)
	require.NotNil(t, result.WineSkuID)
	assert.Equal(t, sku.ID, *result.WineSkuID)
}

func TestMatchProducerSKUSkippedWithoutOwner(t *testing.T) {
	db := newTestDB(t)
	svc := newMatchService(t, db, nil, false)
	tenantID := uuid.New()
	producerID := uuid.New()
	seedSku(t, db, tenantID, domain.IdentifierTypeProducerSKU, "CM-2015-750", &producerID)

	// A producer SKU without a producer id cannot be scoped, so the stage is
	// skipped entirely and no identifiers remain
	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef:   "catalog-row-5",
		ProducerSKU: "CM-2015-750",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchMethodNone, result.Method)
	assert.Equal(t, domain.MatchStatusNoMatch, result.Status)
}

func TestMatchByImporterSKU(t *testing.T) {
	db := newTestDB(t)
	svc := newMatchService(t, db, nil, false)
	tenantID := uuid.New()
	importerID := uuid.New()
	seedSku(t, db, tenantID, domain.IdentifierTypeImporterSKU, "IMP-889", &importerID)

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef:   "catalog-row-6",
		ImporterSKU: "IMP-889",
		ImporterID:  &importerID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchMethodImporterSKU, result.Method)
	assert.Equal(t, domain.MatchStatusAutoMatchWithGuards, result.Status)
	assert.Equal(t, 0.90, result.Confidence)
}

func TestMatchAutoCreate(t *testing.T) {
	db := newTestDB(t)
	svc := newMatchService(t, db, nil, true)
	tenantID := uuid.New()

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-7",
		GTIN:      "7311111111111",
		Name:      "Amarone della Valpolicella",
		Vintage:   2019,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStatusAutoMatchWithGuards, result.Status)
	require.NotNil(t, result.WineMasterID)
	require.NotNil(t, result.WineSkuID)

	// The minted identifier resolves on the next attempt
	again, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-7",
		GTIN:      "7311111111111",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStatusAutoMatch, again.Status)
	assert.Equal(t, *result.WineSkuID, *again.WineSkuID)
}

func TestMatchByTextIsNeverAutoAccepted(t *testing.T) {
	db := newTestDB(t)
	lookup := &fakeLookup{result: &wineref.CheckResult{
		Status:        wineref.CheckStatusMatched,
		CanonicalName: "Barolo DOCG",
		Score:         97,
	}}
	svc := newMatchService(t, db, lookup, false)
	tenantID := uuid.New()

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-8",
		Name:      "Barolo",
		Vintage:   2018,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchMethodCanonical, result.Method)
	assert.Equal(t, domain.MatchStatusSuggested, result.Status)
	assert.InDelta(t, 0.97, result.Confidence, 0.001)
	assert.Equal(t, 1, lookup.calls)
}

func TestMatchTextLookupFailureGoesToReview(t *testing.T) {
	db := newTestDB(t)
	lookup := &fakeLookup{err: assert.AnError}
	svc := newMatchService(t, db, lookup, false)
	tenantID := uuid.New()

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-9",
		Name:      "Barolo",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchMethodCanonical, result.Method)
	assert.Equal(t, domain.MatchStatusPendingReview, result.Status)
}

func TestMatchTextNotFound(t *testing.T) {
	db := newTestDB(t)
	lookup := &fakeLookup{result: &wineref.CheckResult{Status: wineref.CheckStatusNotFound}}
	svc := newMatchService(t, db, lookup, false)
	tenantID := uuid.New()

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-10",
		Name:      "Unknown Garage Wine",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStatusNoMatch, result.Status)
}

func TestMatchNoInputs(t *testing.T) {
	db := newTestDB(t)
	svc := newMatchService(t, db, nil, false)
	tenantID := uuid.New()

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-11",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchMethodNone, result.Method)
	assert.Equal(t, domain.MatchStatusNoMatch, result.Status)
}

func TestMatchAuditFailureDoesNotMaskResult(t *testing.T) {
	db := newTestDB(t)
	svc := newMatchService(t, db, nil, false)
	tenantID := uuid.New()
	seedSku(t, db, tenantID, domain.IdentifierTypeGTIN, "7312345678901", nil)

	// Break the audit table; the resolution outcome must still be returned
	require.NoError(t, db.Migrator().DropTable(&domain.MatchResult{}))

	result, err := svc.MatchProduct(context.Background(), matchActor(tenantID), &domain.MatchProductRequest{
		SourceRef: "catalog-row-12",
		GTIN:      "7312345678901",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStatusAutoMatch, result.Status)
}

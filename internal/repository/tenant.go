package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// scopeTenant applies the mandatory tenant filter. Every repository method
// takes tenantID as a required parameter and routes its query through here;
// there is no context-derived fallback and no default tenant.
func scopeTenant(query *gorm.DB, tenantID uuid.UUID) *gorm.DB {
	return query.Where("tenant_id = ?", tenantID)
}

// ClampLimit normalizes a requested page size into [1, MaxPageSize]
func ClampLimit(limit int) int {
	if limit <= 0 {
		return MaxPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

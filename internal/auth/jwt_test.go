package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRoundTrip(t *testing.T) {
	v := NewTokenValidator("test-secret")
	userID := uuid.New()
	tenantID := uuid.New()

	token, err := v.IssueToken(userID, tenantID, "buyer@example.com", time.Hour)
	require.NoError(t, err)

	uc, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, uc.UserID)
	assert.Equal(t, tenantID, uc.TenantID)
	assert.Equal(t, "buyer@example.com", uc.Email)
}

func TestValidateWrongSecret(t *testing.T) {
	issuer := NewTokenValidator("secret-a")
	token, err := issuer.IssueToken(uuid.New(), uuid.New(), "", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenValidator("secret-b").Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateExpiredToken(t *testing.T) {
	v := NewTokenValidator("test-secret")
	token, err := v.IssueToken(uuid.New(), uuid.New(), "", -time.Minute)
	require.NoError(t, err)

	_, err = v.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateMissingTenantClaim(t *testing.T) {
	v := NewTokenValidator("test-secret")

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = v.Validate(token)
	assert.ErrorIs(t, err, ErrMissingTenant)
}

func TestValidateGarbage(t *testing.T) {
	v := NewTokenValidator("test-secret")
	_, err := v.Validate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

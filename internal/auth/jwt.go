package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned when a token fails signature or claim validation
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingTenant is returned when a token lacks the tenant claim
	ErrMissingTenant = errors.New("token missing tenant claim")
)

// Claims are the JWT claims the marketplace issues on login. The subject is
// the user id; tid scopes every downstream query to one tenant.
type Claims struct {
	TenantID string `json:"tid"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// TokenValidator validates bearer tokens and extracts the (user, tenant) pair
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator creates a validator for HS256 signed tokens
func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// Validate parses and verifies a token, returning the user context it carries
func (v *TokenValidator) Validate(tokenString string) (*UserContext, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", ErrInvalidToken)
	}
	if claims.TenantID == "" {
		return nil, ErrMissingTenant
	}
	tenantID, err := uuid.Parse(claims.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid tenant claim", ErrInvalidToken)
	}

	return &UserContext{
		UserID:   userID,
		TenantID: tenantID,
		Email:    claims.Email,
	}, nil
}

// IssueToken signs a token for the given user and tenant. Used by tests and
// local tooling; production tokens come from the identity provider.
func (v *TokenValidator) IssueToken(userID, tenantID uuid.UUID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		TenantID: tenantID.String(),
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

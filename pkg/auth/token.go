package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tenantdesk/tenantdesk/pkg/model"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller. TenantID is nil only for the global
// super_admin principal.
type Identity struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     model.Role
}

// Claims carries exactly the three identity claims in the bearer token.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role"`
}

type TokenManager struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenManager(signingKey []byte, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{signingKey: signingKey, ttl: ttl}
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

func (m *TokenManager) Generate(identity Identity) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   identity.UserID.String(),
			Issuer:    "tenantdesk",
		},
		UserID: identity.UserID.String(),
		Role:   string(identity.Role),
	}
	if identity.TenantID != nil {
		claims.TenantID = identity.TenantID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

// Verify validates the signature and expiry and rebuilds the Identity from
// the claims. Any malformed claim rejects the token.
func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return m.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}

	identity := Identity{
		UserID: userID,
		Role:   model.Role(claims.Role),
	}
	if claims.TenantID != "" {
		tenantID, err := uuid.Parse(claims.TenantID)
		if err != nil {
			return Identity{}, ErrInvalidToken
		}
		identity.TenantID = &tenantID
	}

	return identity, nil
}

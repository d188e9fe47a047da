package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "medbook"

type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// RoleSet returns the roles carried by the token.
func (c *Claims) RoleSet() RoleSet {
	return ParseRoleSet(c.Roles)
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokenIssuer(signingKey []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: signingKey, ttl: ttl, now: time.Now}
}

// TTL is how long issued sessions stay valid.
func (i *TokenIssuer) TTL() time.Duration { return i.ttl }

// Issue signs a session for userID. Each token gets its own JTI so logout
// can revoke it.
func (i *TokenIssuer) Issue(userID uuid.UUID, email string, roles RoleSet) (string, *Claims, error) {
	if len(i.key) == 0 {
		return "", nil, errors.New("signing key is not configured")
	}
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email: email,
		Roles: roles.Strings(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature, issuer and expiry.
func (i *TokenIssuer) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, errors.New("invalid session token: missing jti or subject")
	}
	return claims, nil
}

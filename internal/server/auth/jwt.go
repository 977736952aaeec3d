// Package auth verifies bearer tokens issued by the external identity
// service. Verification is pure: a function of the token, the shared
// HMAC secret and the current time. Nothing here performs I/O.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/vmaksimov/homesense/internal/common"
)

// Role is the coarse authorization level carried in a token.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// Principal is the verified identity for one request. It is never
// persisted; every request reconstructs it from its token.
type Principal struct {
	Subject   string
	Role      Role
	ExpiresAt time.Time
}

// ReadOnly reports whether the principal may only read tenant data.
// Unknown roles get the least privilege.
func (p *Principal) ReadOnly() bool {
	return p.Role != RoleAdmin && p.Role != RoleUser
}

// Claims carries the registered claims plus the custom role claim the
// identity service puts into every access token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// VerifyToken decodes and validates an access token and returns the
// principal it represents. Only HS256 is accepted. Any failure (bad
// signature, expired token, missing subject claim) comes back wrapped
// in common.ErrorUnauthorized.
func VerifyToken(tokenString string, secretKey []byte) (*Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(common.ErrorUnauthorized, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrorUnauthorized
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &Principal{
		Subject:   claims.Subject,
		Role:      Role(claims.Role),
		ExpiresAt: expiresAt,
	}, nil
}

// GenerateToken mints an HS256 access token. The production issuer lives
// in the identity service; this is kept for local tooling and tests.
func GenerateToken(subject string, role Role, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		Role: string(role),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Package auth issues and verifies HS256 access tokens.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the user's role. Subject holds the
// user id.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

// Signer mints and parses access tokens with a shared HMAC secret.
type Signer struct {
	secret   []byte
	issuer   string
	audience string
	validity time.Duration
	now      func() time.Time
}

// NewSigner returns a Signer issuing tokens valid for validity.
func NewSigner(secret []byte, issuer, audience string, validity time.Duration) *Signer {
	return &Signer{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		validity: validity,
		now:      time.Now,
	}
}

// Issue returns a signed token for userID carrying role.
func (s *Signer) Issue(userID string, role models.Role) (string, error) {
	now := s.now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.validity)),
		},
		Role: role,
	})

	return token.SignedString(s.secret)
}

// Parse verifies tokenString and returns its claims. Expired tokens yield
// common.ErrTokenExpired; every other failure is common.ErrInvalidToken.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// Package auth issues and verifies the bearer tokens that carry a caller's
// identity into the portal.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/neomorfeo/workshops/internal/domain"
)

// Claims are the access token claims. The subject is the user ID.
type Claims struct {
	Roles []domain.Role `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and validates HS256 access tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

// NewTokenService returns a service for the given key. An empty issuer or
// audience disables that check.
func NewTokenService(signingKey, issuer, audience string) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// Issue signs a token for who that expires after ttl.
func (s *TokenService) Issue(who domain.Identity, ttl time.Duration) (string, error) {
	if who.IsAnonymous() {
		return "", errors.New("cannot issue a token for an anonymous caller")
	}

	now := s.now()
	claims := Claims{
		Roles: who.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   who.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if s.issuer != "" {
		claims.Issuer = s.issuer
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify validates the token and returns the identity it carries. Every
// failure wraps domain.ErrUnauthenticated.
func (s *TokenService) Verify(token string) (domain.Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Anonymous, fmt.Errorf("%w: token has expired", domain.ErrUnauthenticated)
		}
		return domain.Anonymous, fmt.Errorf("%w: invalid token: %v", domain.ErrUnauthenticated, err)
	}

	if claims.Subject == "" {
		return domain.Anonymous, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}

	return domain.Identity{UserID: claims.Subject, Roles: claims.Roles}, nil
}

package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL bounds session lifetime. Tokens cannot be revoked before
// expiry (the server keeps no session table), so the lifetime stays short.
const DefaultTokenTTL = 24 * time.Hour

const defaultIssuer = "amicus"

// ErrInvalidToken covers malformed structure, signature mismatch and expiry.
// Callers receive the same failure for all three so nothing leaks about
// which check tripped.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity assertions carried by a session token.
type Claims struct {
	Email         string `json:"email,omitempty"`
	Role          Role   `json:"role"`
	AssociationID string `json:"assoc,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the security context threaded through
// storage calls.
func (c *Claims) Actor() Actor {
	return Actor{
		UserID:        c.Subject,
		Email:         c.Email,
		Role:          c.Role,
		AssociationID: c.AssociationID,
	}
}

// TokenService mints and verifies signed session tokens using HS256.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithIssuer overrides the issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if strings.TrimSpace(issuer) != "" {
			s.issuer = strings.TrimSpace(issuer)
		}
	}
}

// WithTTL configures session token lifetime.
func WithTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService. The signing secret is required.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: token secret is not configured")
	}
	svc := &TokenService{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// TTL returns the configured session lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a session token carrying the actor's identity claims.
func (s *TokenService) Issue(actor Actor) (string, time.Time, error) {
	if actor.UserID == "" {
		return "", time.Time{}, errors.New("auth: actor user id is required")
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email:         actor.Email,
		Role:          actor.Role,
		AssociationID: actor.AssociationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   actor.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, structure and expiry, returning the claims. Expiry
// is a strict now-after-exp check with no clock-skew allowance.
func (s *TokenService) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if err := s.validateClaims(claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) validateClaims(claims *Claims) error {
	if claims.Issuer != s.issuer {
		return errors.New("unexpected issuer")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return errors.New("subject missing")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return errors.New("timestamps missing")
	}
	if _, ok := ParseRole(string(claims.Role)); !ok {
		return errors.New("unknown role")
	}
	if claims.Role != RoleSuperAdmin && claims.AssociationID == "" {
		return errors.New("association missing")
	}
	return nil
}

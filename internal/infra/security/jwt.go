package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/arklim/book-buyback/internal/core/domain"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures and claim mismatches.
	ErrInvalidToken = errors.New("jwt: invalid token")
	// ErrExpiredToken is returned when the token's exp has passed.
	ErrExpiredToken = errors.New("jwt: token expired")
	// ErrSecretMissing indicates the verifier was built without a signing secret.
	ErrSecretMissing = errors.New("jwt: signing secret required")
)

const defaultAccessTokenTTL = 15 * time.Minute

// AccessTokenClaims is the bearer token payload accepted by the API.
type AccessTokenClaims struct {
	UserID string               `json:"uid"`
	Kind   domain.PrincipalKind `json:"kind"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller extracted from a verified token.
type Principal struct {
	ID        string
	Kind      domain.PrincipalKind
	TokenID   string
	ExpiresAt time.Time
}

// TokenVerifierConfig configures HS256 signing and verification.
type TokenVerifierConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// TokenVerifier verifies HS256 bearer tokens and can mint them for
// development and tests.
type TokenVerifier struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenVerifier constructs a verifier for the configured secret.
func NewTokenVerifier(cfg TokenVerifierConfig) (*TokenVerifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, ErrSecretMissing
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	return &TokenVerifier{
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// WithClock overrides the time source; used by tests.
func (v *TokenVerifier) WithClock(clock func() time.Time) {
	if clock != nil {
		v.now = clock
	}
}

// Issue signs an access token for the principal.
func (v *TokenVerifier) Issue(userID string, kind domain.PrincipalKind) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("jwt: user id required")
	}
	if !kind.Valid() {
		return "", fmt.Errorf("jwt: unsupported principal kind %q", kind)
	}

	now := v.now().UTC()
	claims := &AccessTokenClaims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
			ID:        uuid.NewString(),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates the token, returning the caller it identifies.
func (v *TokenVerifier) Verify(raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Principal{}, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredToken
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		userID = strings.TrimSpace(claims.Subject)
	}
	if userID == "" || !claims.Kind.Valid() {
		return Principal{}, ErrInvalidToken
	}

	principal := Principal{ID: userID, Kind: claims.Kind, TokenID: claims.ID}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}

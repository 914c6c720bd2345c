package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arklim/book-buyback/internal/core/domain"
)

func newTestVerifier(t *testing.T, now time.Time) *TokenVerifier {
	t.Helper()
	v, err := NewTokenVerifier(TokenVerifierConfig{
		Secret:   "test-secret",
		Issuer:   "book-buyback",
		Audience: "book-buyback-api",
		TTL:      10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	v.WithClock(func() time.Time { return now })
	return v
}

func TestTokenVerifierIssueAndVerify(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(t, now)

	token, err := v.Issue("user-1", domain.PrincipalStaff)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	principal, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.ID != "user-1" || principal.Kind != domain.PrincipalStaff {
		t.Fatalf("unexpected principal %+v", principal)
	}
	if principal.TokenID == "" {
		t.Fatalf("expected token id")
	}
	if !principal.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Fatalf("unexpected expiry %s", principal.ExpiresAt)
	}
}

func TestTokenVerifierExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(t, now)

	token, err := v.Issue("user-1", domain.PrincipalCustomer)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	v.WithClock(func() time.Time { return now.Add(time.Hour) })
	if _, err := v.Verify(token); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestTokenVerifierRejectsForeignSecret(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(t, now)

	other, err := NewTokenVerifier(TokenVerifierConfig{Secret: "other", Issuer: "book-buyback", Audience: "book-buyback-api"})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	other.WithClock(func() time.Time { return now })
	token, err := other.Issue("user-1", domain.PrincipalAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenVerifierRejectsWrongAudience(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(t, now)

	claims := &AccessTokenClaims{
		UserID: "user-1",
		Kind:   domain.PrincipalStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "book-buyback",
			Audience:  jwt.ClaimStrings{"somewhere-else"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenVerifierRejectsUnknownKind(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	v := newTestVerifier(t, now)

	claims := &AccessTokenClaims{
		UserID: "user-1",
		Kind:   "robot",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "book-buyback",
			Audience:  jwt.ClaimStrings{"book-buyback-api"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := v.Issue("user-1", "robot"); err == nil {
		t.Fatalf("expected issue to reject unknown kind")
	}
}

func TestNewTokenVerifierRequiresSecret(t *testing.T) {
	if _, err := NewTokenVerifier(TokenVerifierConfig{Secret: "  "}); !errors.Is(err, ErrSecretMissing) {
		t.Fatalf("expected ErrSecretMissing, got %v", err)
	}
	if _, err := (&TokenVerifier{secret: []byte("x"), now: time.Now}).Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

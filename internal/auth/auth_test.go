package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestPasswordRoundTrip(t *testing.T) {
	svc := NewService("secret", nil)

	hash, err := svc.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter22" || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if err := svc.CheckPassword(hash, "hunter22"); err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := svc.CheckPassword(hash, "hunter23"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.CheckPassword("", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty hash, got %v", err)
	}

	other, err := svc.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash again: %v", err)
	}
	if other == hash {
		t.Fatalf("expected distinct salts")
	}
}

func TestPasswordTooLong(t *testing.T) {
	svc := NewService("secret", nil)
	if _, err := svc.HashPassword(strings.Repeat("a", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("secret", nil)
	tok, err := svc.IssueToken(Identity{ID: "u1", Name: "Ada"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.ID != "u1" || tok.Name != "Ada" || tok.Value == "" {
		t.Fatalf("unexpected token: %+v", tok)
	}
	id, err := svc.Authenticate(tok.Value)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.ID != "u1" || id.Name != "Ada" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestTokenExpiration(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService("secret", clock.Now)

	tok, err := svc.IssueToken(Identity{ID: "u1", Name: "Ada"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !tok.ExpiresAt.Equal(clock.t.Add(TokenTTL)) {
		t.Fatalf("unexpected expiry %v", tok.ExpiresAt)
	}

	clock.t = clock.t.Add(TokenTTL - time.Second)
	if _, err := svc.Authenticate(tok.Value); err != nil {
		t.Fatalf("expected token valid just before expiry: %v", err)
	}

	clock.t = clock.t.Add(2 * time.Second)
	if _, err := svc.Authenticate(tok.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestRejectsForeignTokens(t *testing.T) {
	svc := NewService("secret", nil)

	other := NewService("other-secret", nil)
	tok, err := other.IssueToken(Identity{ID: "u1", Name: "Ada"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Authenticate(tok.Value); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		ID:               "u1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.Authenticate(none); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg none, got %v", err)
	}

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{ID: "u1"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.Authenticate(noExp); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken without exp, got %v", err)
	}

	if _, err := svc.Authenticate("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestParseBearer(t *testing.T) {
	if tok, err := ParseBearer("Bearer abc.def.ghi"); err != nil || tok != "abc.def.ghi" {
		t.Fatalf("unexpected result %q, %v", tok, err)
	}
	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc.def.ghi"} {
		if _, err := ParseBearer(h); !errors.Is(err, ErrNoToken) {
			t.Fatalf("header %q: expected ErrNoToken, got %v", h, err)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := WithIdentity(context.Background(), Identity{ID: "u1", Name: "Ada"})
	id, ok := IdentityFrom(ctx)
	if !ok || id.ID != "u1" {
		t.Fatalf("unexpected identity %+v %v", id, ok)
	}
	if _, ok := IdentityFrom(context.Background()); ok {
		t.Fatalf("expected no identity")
	}
}

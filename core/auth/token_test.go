package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	for _, kind := range []Kind{KindAccess, KindConfirm, KindRecovery} {
		signed, err := tokens.Issue("user@example.com", kind)
		if err != nil {
			t.Fatalf("issuing %s token: %v", kind, err)
		}

		sub, err := tokens.Resolve(signed, kind)
		if err != nil {
			t.Fatalf("resolving %s token: %v", kind, err)
		}

		if sub != "user@example.com" {
			t.Fatalf("resolved subject of %s token: got %q", kind, sub)
		}
	}
}

func TestTokenWrongKind(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	signed, err := tokens.Issue("user@example.com", KindAccess)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tokens.Resolve(signed, KindRecovery); !errors.Is(err, ErrTokenWrongKind) {
		t.Fatalf("resolving an access token as recovery: got %v, want %v", err, ErrTokenWrongKind)
	}
}

func TestTokenExpired(t *testing.T) {
	tokens := NewTokens("test-secret", -time.Minute)

	signed, err := tokens.Issue("user@example.com", KindAccess)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tokens.Resolve(signed, KindAccess); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("resolving an expired token: got %v, want %v", err, ErrTokenExpired)
	}
}

func TestTokenInvalid(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour)

	if _, err := tokens.Resolve("garbage", KindAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("resolving garbage: got %v, want %v", err, ErrTokenInvalid)
	}

	signed, err := tokens.Issue("user@example.com", KindAccess)
	if err != nil {
		t.Fatal(err)
	}

	// Flip part of the signature.
	parts := strings.Split(signed, ".")
	parts[2] = strings.Repeat("A", len(parts[2]))
	tampered := strings.Join(parts, ".")

	if _, err := tokens.Resolve(tampered, KindAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("resolving a tampered token: got %v, want %v", err, ErrTokenInvalid)
	}

	other := NewTokens("other-secret", time.Hour)
	if _, err := other.Resolve(signed, KindAccess); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("resolving with the wrong secret: got %v, want %v", err, ErrTokenInvalid)
	}
}

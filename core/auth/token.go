package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind scopes what a bearer of a token may do with it. A token of one kind
// is never accepted where another kind is expected.
type Kind string

const (
	KindAccess   Kind = "access"
	KindConfirm  Kind = "confirm"
	KindRecovery Kind = "recovery"
)

// Confirm and recovery tokens always live for a day; only the access token
// lifetime is configurable.
const sideTokenTimeout = 24 * time.Hour

var (
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenWrongKind = errors.New("token has incorrect type")
)

// Tokens issues and resolves the signed tokens used across the auth flows.
// Tokens are HS256 JWTs carrying the subject email, the expiry and the kind.
type Tokens struct {
	secret        []byte
	accessTimeout time.Duration
}

func NewTokens(secret string, accessTimeout time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), accessTimeout: accessTimeout}
}

func (t *Tokens) Issue(subject string, kind Kind) (string, error) {
	timeout := sideTokenTimeout
	if kind == KindAccess {
		timeout = t.accessTimeout
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"exp":  time.Now().Add(timeout).Unix(),
		"type": string(kind),
	})

	signed, err := tok.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, nil
}

// Resolve verifies the token and returns its subject. Expiry, malformation
// and kind mismatch surface as distinct errors: callers present different
// messages for each.
func (t *Tokens) Resolve(token string, kind Kind) (string, error) {
	tok, err := jwt.Parse(
		token,
		func(tok *jwt.Token) (interface{}, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return "", ErrTokenInvalid
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", ErrTokenInvalid
	}

	if k, _ := claims["type"].(string); k != string(kind) {
		return "", ErrTokenWrongKind
	}

	return sub, nil
}

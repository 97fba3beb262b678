package test

import (
	"net/http"
	"testing"
)

type tokenOut struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func TestAuth(t *testing.T) {
	env, err := NewTestEnv(t, "auth_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	const (
		email = "learner@example.com"
		pass  = "long-enough-pass"
	)

	reg := map[string]string{"email": email, "username": "learner", "password": pass}
	if status := env.request(t, http.MethodPost, "/auth/register", "", reg, nil); status != http.StatusCreated {
		t.Fatalf("registering: got status %d, want %d", status, http.StatusCreated)
	}

	if status := env.request(t, http.MethodPost, "/auth/register", "", reg, nil); status != http.StatusConflict {
		t.Fatalf("registering twice: got status %d, want %d", status, http.StatusConflict)
	}

	login := map[string]string{"email": email, "password": pass}
	if status := env.request(t, http.MethodPost, "/auth/login", "", login, nil); status != http.StatusBadRequest {
		t.Fatalf("logging in before activation: got status %d, want %d", status, http.StatusBadRequest)
	}

	confirm := env.Mail.ActivationToken(email)
	if confirm == "" {
		t.Fatal("no activation email was delivered")
	}

	var tk tokenOut
	if status := env.request(t, http.MethodPost, "/auth/active-email", "", map[string]string{"token": confirm}, &tk); status != http.StatusOK {
		t.Fatalf("activating email: got status %d, want %d", status, http.StatusOK)
	}
	if tk.AccessToken == "" || tk.TokenType != "bearer" {
		t.Fatalf("activation response is malformed: %+v", tk)
	}

	if status := env.request(t, http.MethodPost, "/auth/login", "", login, &tk); status != http.StatusOK {
		t.Fatalf("logging in after activation: got status %d, want %d", status, http.StatusOK)
	}

	var me struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if status := env.request(t, http.MethodGet, "/auth/current-user", tk.AccessToken, nil, &me); status != http.StatusOK {
		t.Fatalf("fetching current user: got status %d, want %d", status, http.StatusOK)
	}
	if me.Email != email || me.Username != "learner" {
		t.Fatalf("current user is %+v", me)
	}

	if status := env.request(t, http.MethodGet, "/auth/current-user", "not-a-token", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("fetching current user with a bad token: got status %d, want %d", status, http.StatusUnauthorized)
	}

	wrongKind := map[string]string{"token": tk.AccessToken}
	if status := env.request(t, http.MethodPost, "/auth/active-email", "", wrongKind, nil); status != http.StatusUnauthorized {
		t.Fatalf("activating with an access token: got status %d, want %d", status, http.StatusUnauthorized)
	}
}

func TestPasswordRecovery(t *testing.T) {
	env, err := NewTestEnv(t, "recovery_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	if status := env.request(t, http.MethodPost, "/auth/verify-email", "", map[string]string{"email": "nobody@example.com"}, nil); status != http.StatusNotFound {
		t.Fatalf("recovering an unknown email: got status %d, want %d", status, http.StatusNotFound)
	}

	if status := env.request(t, http.MethodPost, "/auth/verify-email", "", map[string]string{"email": env.UserEmail}, nil); status != http.StatusOK {
		t.Fatalf("requesting recovery: got status %d, want %d", status, http.StatusOK)
	}

	recovery := env.Mail.RecoveryToken(env.UserEmail)
	if recovery == "" {
		t.Fatal("no recovery email was delivered")
	}

	const newPass = "brand-new-pass-1"

	mismatch := map[string]string{"password": newPass, "confirm_password": "something-else-1"}
	if status := env.request(t, http.MethodPost, "/auth/password-recovery?recovery_token="+recovery, "", mismatch, nil); status != http.StatusBadRequest {
		t.Fatalf("resetting with mismatched passwords: got status %d, want %d", status, http.StatusBadRequest)
	}

	reset := map[string]string{"password": newPass, "confirm_password": newPass}
	var tk tokenOut
	if status := env.request(t, http.MethodPost, "/auth/password-recovery?recovery_token="+recovery, "", reset, &tk); status != http.StatusOK {
		t.Fatalf("resetting password: got status %d, want %d", status, http.StatusOK)
	}
	if tk.AccessToken == "" {
		t.Fatal("no access token issued after reset")
	}

	old := map[string]string{"email": env.UserEmail, "password": env.UserPass}
	if status := env.request(t, http.MethodPost, "/auth/login", "", old, nil); status != http.StatusBadRequest {
		t.Fatalf("logging in with the old password: got status %d, want %d", status, http.StatusBadRequest)
	}

	fresh := map[string]string{"email": env.UserEmail, "password": newPass}
	if status := env.request(t, http.MethodPost, "/auth/login", "", fresh, nil); status != http.StatusOK {
		t.Fatalf("logging in with the new password: got status %d, want %d", status, http.StatusOK)
	}
}

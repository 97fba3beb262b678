package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/course-platform/api/background"
	"github.com/irsalhamdi/course-platform/api/web"
	"github.com/irsalhamdi/course-platform/api/weberr"
	"github.com/irsalhamdi/course-platform/core/auth"
	"github.com/irsalhamdi/course-platform/core/claims"
	"github.com/irsalhamdi/course-platform/validate"
	"github.com/jmoiron/sqlx"
)

// HandleRegister creates an inactive user and mails an activation link.
// The email is dispatched in the background: registration succeeds even
// when the mail cannot be sent.
func HandleRegister(db *sqlx.DB, tokens *auth.Tokens, mailer Mailer, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var un UserNew
		if err := web.Decode(w, r, &un); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding user: %w", err))
		}

		if err := validate.Check(un); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := FetchByEmail(ctx, db, un.Email); err == nil {
			err := errors.New("a user with that email already exists")
			return weberr.Conflict(err, err.Error())
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking email uniqueness: %w", err)
		}

		hash, err := auth.HashPassword(un.Password)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		now := time.Now().UTC()
		usr := User{
			ID:           validate.GenerateID(),
			Username:     un.Username,
			Email:        un.Email,
			PasswordHash: hash,
			Active:       false,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := Create(ctx, db, usr); err != nil {
			return fmt.Errorf("creating user[%s]: %w", un.Email, err)
		}

		confirm, err := tokens.Issue(usr.Email, auth.KindConfirm)
		if err != nil {
			return fmt.Errorf("issuing confirm token: %w", err)
		}

		bg.Add(func() error {
			return mailer.SendActivationEmail(usr.Email, confirm)
		})

		out := map[string]string{"detail": "User created. Please confirm your email."}
		return web.Respond(ctx, w, out, http.StatusCreated)
	}
}

func HandleLogin(db *sqlx.DB, tokens *auth.Tokens) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var ul UserLogin
		if err := web.Decode(w, r, &ul); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding login: %w", err))
		}

		if err := validate.Check(ul); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		usr, err := FetchByEmail(ctx, db, ul.Email)
		if err != nil || !auth.VerifyPassword(ul.Password, usr.PasswordHash) {
			err := errors.New("incorrect email or password")
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		if !usr.Active {
			err := errors.New("inactive user")
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		access, err := tokens.Issue(usr.Email, auth.KindAccess)
		if err != nil {
			return fmt.Errorf("issuing access token: %w", err)
		}

		return web.Respond(ctx, w, TokenOut{AccessToken: access, TokenType: "bearer"}, http.StatusOK)
	}
}

// HandleActivateEmail redeems a confirm token: the user becomes active and
// receives a first access token.
func HandleActivateEmail(db *sqlx.DB, tokens *auth.Tokens) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in struct {
			Token string `json:"token" validate:"required"`
		}
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding token: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		email, err := tokens.Resolve(in.Token, auth.KindConfirm)
		if err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnauthorized)
		}

		if err := Activate(ctx, db, email); err != nil {
			return fmt.Errorf("activating user[%s]: %w", email, err)
		}

		access, err := tokens.Issue(email, auth.KindAccess)
		if err != nil {
			return fmt.Errorf("issuing access token: %w", err)
		}

		return web.Respond(ctx, w, TokenOut{AccessToken: access, TokenType: "bearer"}, http.StatusOK)
	}
}

// HandleVerifyEmail starts the password recovery flow by mailing a
// recovery link to a known address.
func HandleVerifyEmail(db *sqlx.DB, tokens *auth.Tokens, mailer Mailer, bg *background.Background) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var in struct {
			Email string `json:"email" validate:"required,email"`
		}
		if err := web.Decode(w, r, &in); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding email: %w", err))
		}

		if err := validate.Check(in); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		usr, err := FetchByEmail(ctx, db, in.Email)
		if err != nil {
			return weberr.NotFound(fmt.Errorf("fetching user[%s]: %w", in.Email, err))
		}

		recovery, err := tokens.Issue(usr.Email, auth.KindRecovery)
		if err != nil {
			return fmt.Errorf("issuing recovery token: %w", err)
		}

		bg.Add(func() error {
			return mailer.SendRecoveryEmail(usr.Email, recovery)
		})

		out := map[string]string{"detail": "Please check your email"}
		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

// HandleResetPassword redeems a recovery token and replaces the password.
func HandleResetPassword(db *sqlx.DB, tokens *auth.Tokens) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		recovery := web.QueryParam(r, "recovery_token")
		if recovery == "" {
			return weberr.BadRequest(errors.New("recovery_token is required"))
		}

		var pr PasswordReset
		if err := web.Decode(w, r, &pr); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding passwords: %w", err))
		}

		if err := validate.Check(pr); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if pr.Password != pr.ConfirmPassword {
			err := errors.New("password does not match")
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		email, err := tokens.Resolve(recovery, auth.KindRecovery)
		if err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnauthorized)
		}

		hash, err := auth.HashPassword(pr.Password)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		if err := UpdatePassword(ctx, db, email, hash); err != nil {
			return fmt.Errorf("resetting password of user[%s]: %w", email, err)
		}

		access, err := tokens.Issue(email, auth.KindAccess)
		if err != nil {
			return fmt.Errorf("issuing access token: %w", err)
		}

		return web.Respond(ctx, w, TokenOut{AccessToken: access, TokenType: "bearer"}, http.StatusOK)
	}
}

func HandleShowCurrent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		usr, err := FetchByEmail(ctx, db, clm.Email)
		if err != nil {
			return weberr.NotFound(fmt.Errorf("fetching user[%s]: %w", clm.Email, err))
		}

		out := UserOut{Username: usr.Username, Email: usr.Email}
		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

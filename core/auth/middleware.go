package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/irsalhamdi/course-platform/api/web"
	"github.com/irsalhamdi/course-platform/api/weberr"
	"github.com/irsalhamdi/course-platform/core/claims"
	"github.com/jmoiron/sqlx"
)

// Authenticate resolves the bearer access token of the request and loads
// the matching user into the context claims. Requests without a valid
// token of kind access never reach the wrapped handler.
func Authenticate(db *sqlx.DB, tokens *Tokens) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				err := errors.New("missing or malformed authorization header")
				return weberr.NotAuthorized(err)
			}

			email, err := tokens.Resolve(strings.TrimPrefix(header, "Bearer "), KindAccess)
			if err != nil {
				return weberr.NewError(err, err.Error(), http.StatusUnauthorized)
			}

			var usr struct {
				ID     string `db:"user_id"`
				Email  string `db:"email"`
				Active bool   `db:"active"`
			}
			const q = `SELECT user_id, email, active FROM users WHERE email = $1`
			if err := sqlx.GetContext(ctx, db, &usr, q, email); err != nil {
				return weberr.NotFound(err)
			}

			if !usr.Active {
				err := errors.New("inactive user")
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}

			ctx = claims.Set(ctx, claims.Claims{UserID: usr.ID, Email: usr.Email})
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

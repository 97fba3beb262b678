package user

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, usr User) error {
	const q = `
	INSERT INTO users (user_id, username, email, password_hash, active, created_at, updated_at)
	VALUES (:user_id, :username, :email, :password_hash, :active, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, usr); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	const q = `SELECT * FROM users WHERE email = $1`

	var usr User
	if err := sqlx.GetContext(ctx, db, &usr, q, email); err != nil {
		return User{}, err
	}
	return usr, nil
}

func Activate(ctx context.Context, db sqlx.ExtContext, email string) error {
	const q = `UPDATE users SET active = TRUE, updated_at = NOW() WHERE email = $1`

	if _, err := db.ExecContext(ctx, q, email); err != nil {
		return fmt.Errorf("activating user: %w", err)
	}
	return nil
}

func UpdatePassword(ctx context.Context, db sqlx.ExtContext, email string, hash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE email = $1`

	if _, err := db.ExecContext(ctx, q, email, hash); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

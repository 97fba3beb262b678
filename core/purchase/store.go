package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrDuplicate reports an insert that hit the uniqueness constraint on
// (user, course). The webhook relies on it to stay idempotent under
// provider redelivery.
var ErrDuplicate = errors.New("purchase already exists")

const uniqueViolation = "23505"

func Create(ctx context.Context, db sqlx.ExtContext, p Purchase) error {
	const q = `
	INSERT INTO purchases (purchase_id, user_id, course_id, created_at, updated_at)
	VALUES (:purchase_id, :user_id, :course_id, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, p); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting purchase: %w", err)
	}
	return nil
}

func FetchByUserAndCourse(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (Purchase, error) {
	const q = `SELECT * FROM purchases WHERE user_id = $1 AND course_id = $2`

	var p Purchase
	if err := sqlx.GetContext(ctx, db, &p, q, userID, courseID); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

func CreateCustomer(ctx context.Context, db sqlx.ExtContext, c Customer) error {
	const q = `
	INSERT INTO customers (customer_id, user_id, stripe_customer_id, created_at, updated_at)
	VALUES (:customer_id, :user_id, :stripe_customer_id, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting customer: %w", err)
	}
	return nil
}

func FetchCustomerByUser(ctx context.Context, db sqlx.ExtContext, userID string) (Customer, error) {
	const q = `SELECT * FROM customers WHERE user_id = $1`

	var c Customer
	if err := sqlx.GetContext(ctx, db, &c, q, userID); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// FetchAnalytics aggregates the sales of every course owned by ownerID,
// valuing each purchase at the course's current price.
func FetchAnalytics(ctx context.Context, db sqlx.ExtContext, ownerID string) (Analytics, error) {
	const grouped = `
	SELECT c.title AS name, SUM(c.price) AS total
	FROM purchases AS p
	JOIN courses AS c ON c.course_id = p.course_id
	WHERE c.owner_id = $1
	GROUP BY c.title
	ORDER BY total DESC`

	sales := []CourseSales{}
	if err := sqlx.SelectContext(ctx, db, &sales, grouped, ownerID); err != nil {
		return Analytics{}, fmt.Errorf("grouping sales: %w", err)
	}

	const count = `
	SELECT COUNT(*)
	FROM purchases AS p
	JOIN courses AS c ON c.course_id = p.course_id
	WHERE c.owner_id = $1`

	an := Analytics{Data: sales}
	if err := sqlx.GetContext(ctx, db, &an.TotalSales, count, ownerID); err != nil {
		return Analytics{}, fmt.Errorf("counting sales: %w", err)
	}

	for _, s := range sales {
		an.TotalRevenue += s.Total
	}

	return an, nil
}

package purchase

import "time"

// Purchase links a buyer to a course. It carries no amount: revenue is
// derived from the course's current price at query time.
type Purchase struct {
	ID        string    `json:"id" db:"purchase_id"`
	UserID    string    `json:"userId" db:"user_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Customer maps a user to the payment provider's customer record. It is
// created lazily on the first checkout attempt.
type Customer struct {
	ID        string    `json:"id" db:"customer_id"`
	UserID    string    `json:"userId" db:"user_id"`
	StripeID  string    `json:"-" db:"stripe_customer_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type CourseSales struct {
	Name  string  `json:"name" db:"name"`
	Total float64 `json:"total" db:"total"`
}

type Analytics struct {
	Data         []CourseSales `json:"data"`
	TotalRevenue float64       `json:"total_revenue"`
	TotalSales   int           `json:"total_sales"`
}

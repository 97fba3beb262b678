package course

import "time"

type Course struct {
	ID          string    `json:"id" db:"course_id"`
	OwnerID     string    `json:"ownerId" db:"owner_id"`
	CategoryID  *string   `json:"categoryId" db:"category_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	Price       float64   `json:"price" db:"price"`
	Published   bool      `json:"published" db:"published"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

type CourseNew struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl" validate:"omitempty,url"`
	Price       float64 `json:"price" validate:"omitempty,gte=0"`
	CategoryID  *string `json:"categoryId"`
}

type CourseUp struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	ImageURL    *string  `json:"imageUrl" validate:"omitempty,url"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	CategoryID  *string  `json:"categoryId"`
}

// Publishable reports whether a course may transition to published: the
// storefront fields must all be set and at least one of its chapters must
// already be published. Unpublishing has no precondition.
func Publishable(c Course, hasPublishedChapter bool) bool {
	return c.Title != "" &&
		c.Description != "" &&
		c.ImageURL != "" &&
		c.CategoryID != nil &&
		hasPublishedChapter
}

package progress

import (
	"math"
	"time"
)

// Progress is the completion state of one user on one chapter. There is
// at most one row per (user, chapter) pair.
type Progress struct {
	UserID    string    `json:"userId" db:"user_id"`
	ChapterID string    `json:"chapterId" db:"chapter_id"`
	Completed bool      `json:"is_completed" db:"completed"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type ProgressUp struct {
	Completed *bool `json:"is_completed" validate:"required"`
}

// Rate is the completion percentage over the published chapters of a
// course, rounded to one decimal place.
func Rate(completed int, published int) float64 {
	return math.Round(1000*float64(completed)/float64(published)) / 10
}

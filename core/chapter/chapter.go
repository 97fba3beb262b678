package chapter

import "time"

type Chapter struct {
	ID          string    `json:"id" db:"chapter_id"`
	CourseID    string    `json:"courseId" db:"course_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	VideoURL    string    `json:"videoUrl" db:"video_url"`
	Position    int       `json:"position" db:"position"`
	Published   bool      `json:"published" db:"published"`
	Free        bool      `json:"free" db:"free"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	Version     int       `json:"-" db:"version"`
}

type ChapterNew struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	VideoURL    string `json:"videoUrl" validate:"omitempty,url"`
	Position    int    `json:"position" validate:"gte=0"`
	Free        bool   `json:"free"`
}

type ChapterUp struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	VideoURL    *string `json:"videoUrl" validate:"omitempty,url"`
	Position    *int    `json:"position" validate:"omitempty,gte=0"`
	Free        *bool   `json:"free"`
}

// Reorder is one (chapter, position) pair of a reordering request. The
// caller's ordering is trusted as-is: pairs are applied independently and
// neither duplicates nor gaps are rejected.
type Reorder struct {
	ID       string `json:"id" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
}

// Publishable reports whether a chapter may transition to published:
// title, description and video must all be set.
func Publishable(ch Chapter) bool {
	return ch.Title != "" && ch.Description != "" && ch.VideoURL != ""
}

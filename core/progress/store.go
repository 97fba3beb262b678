package progress

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Upsert records the completion state, updating the existing row of the
// (user, chapter) pair if there is one.
func Upsert(ctx context.Context, db sqlx.ExtContext, p Progress) error {
	const q = `
	INSERT INTO user_progress (user_id, chapter_id, completed, created_at, updated_at)
	VALUES ($1, $2, $3, NOW(), NOW())
	ON CONFLICT (user_id, chapter_id) DO UPDATE
	SET completed = EXCLUDED.completed, updated_at = NOW()`

	if _, err := db.ExecContext(ctx, q, p.UserID, p.ChapterID, p.Completed); err != nil {
		return fmt.Errorf("upserting progress: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, userID string, chapterID string) (Progress, error) {
	const q = `SELECT * FROM user_progress WHERE user_id = $1 AND chapter_id = $2`

	var p Progress
	if err := sqlx.GetContext(ctx, db, &p, q, userID, chapterID); err != nil {
		return Progress{}, err
	}
	return p, nil
}

// Percentage computes the user's completion over the published chapters
// of a course. A course with no published chapters has no percentage at
// all, which is different from 0%.
func Percentage(ctx context.Context, db sqlx.ExtContext, courseID string, userID string) (*float64, error) {
	const published = `SELECT COUNT(*) FROM chapters WHERE course_id = $1 AND published`

	var total int
	if err := sqlx.GetContext(ctx, db, &total, published, courseID); err != nil {
		return nil, fmt.Errorf("counting published chapters: %w", err)
	}

	if total == 0 {
		return nil, nil
	}

	const completed = `
	SELECT COUNT(*) FROM user_progress AS up
	JOIN chapters AS ch ON ch.chapter_id = up.chapter_id
	WHERE up.user_id = $2 AND ch.course_id = $1 AND ch.published AND up.completed`

	var done int
	if err := sqlx.GetContext(ctx, db, &done, completed, courseID, userID); err != nil {
		return nil, fmt.Errorf("counting completed chapters: %w", err)
	}

	pct := Rate(done, total)
	return &pct, nil
}

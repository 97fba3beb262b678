package chapter

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, ch Chapter) error {
	const q = `
	INSERT INTO chapters
		(chapter_id, course_id, title, description, video_url, position, published, free, created_at, updated_at)
	VALUES
		(:chapter_id, :course_id, :title, :description, :video_url, :position, :published, :free, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ch); err != nil {
		return fmt.Errorf("inserting chapter: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Chapter, error) {
	const q = `SELECT * FROM chapters WHERE chapter_id = $1`

	var ch Chapter
	if err := sqlx.GetContext(ctx, db, &ch, q, id); err != nil {
		return Chapter{}, err
	}
	return ch, nil
}

func ListByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Chapter, error) {
	const q = `SELECT * FROM chapters WHERE course_id = $1 ORDER BY position ASC`

	chs := []Chapter{}
	if err := sqlx.SelectContext(ctx, db, &chs, q, courseID); err != nil {
		return nil, fmt.Errorf("listing chapters of course[%s]: %w", courseID, err)
	}
	return chs, nil
}

func ListPublishedByCourse(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Chapter, error) {
	const q = `SELECT * FROM chapters WHERE course_id = $1 AND published ORDER BY position ASC`

	chs := []Chapter{}
	if err := sqlx.SelectContext(ctx, db, &chs, q, courseID); err != nil {
		return nil, fmt.Errorf("listing published chapters of course[%s]: %w", courseID, err)
	}
	return chs, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, ch Chapter) error {
	const q = `
	UPDATE chapters SET
		title       = :title,
		description = :description,
		video_url   = :video_url,
		position    = :position,
		free        = :free,
		updated_at  = :updated_at,
		version     = version + 1
	WHERE chapter_id = :chapter_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, ch); err != nil {
		return fmt.Errorf("updating chapter: %w", err)
	}
	return nil
}

func UpdatePosition(ctx context.Context, db sqlx.ExtContext, id string, position int) error {
	const q = `UPDATE chapters SET position = $2, updated_at = NOW(), version = version + 1 WHERE chapter_id = $1`

	if _, err := db.ExecContext(ctx, q, id, position); err != nil {
		return fmt.Errorf("updating position of chapter[%s]: %w", id, err)
	}
	return nil
}

func SetPublished(ctx context.Context, db sqlx.ExtContext, id string, published bool) error {
	const q = `UPDATE chapters SET published = $2, updated_at = NOW(), version = version + 1 WHERE chapter_id = $1`

	if _, err := db.ExecContext(ctx, q, id, published); err != nil {
		return fmt.Errorf("setting published state: %w", err)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM chapters WHERE chapter_id = $1`

	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting chapter: %w", err)
	}
	return nil
}

// NextPublished returns the published chapter following the given
// position within a course, if any.
func NextPublished(ctx context.Context, db sqlx.ExtContext, courseID string, position int) (Chapter, error) {
	const q = `
	SELECT * FROM chapters
	WHERE course_id = $1 AND published AND position > $2
	ORDER BY position ASC
	LIMIT 1`

	var ch Chapter
	if err := sqlx.GetContext(ctx, db, &ch, q, courseID, position); err != nil {
		return Chapter{}, err
	}
	return ch, nil
}

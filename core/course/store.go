package course

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	INSERT INTO courses
		(course_id, owner_id, category_id, title, description, image_url, price, published, created_at, updated_at)
	VALUES
		(:course_id, :owner_id, :category_id, :title, :description, :image_url, :price, :published, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	const q = `SELECT * FROM courses WHERE course_id = $1`

	var c Course
	if err := sqlx.GetContext(ctx, db, &c, q, id); err != nil {
		return Course{}, err
	}
	return c, nil
}

// FetchPublished returns a course only if it is visible to the public.
func FetchPublished(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	const q = `SELECT * FROM courses WHERE course_id = $1 AND published`

	var c Course
	if err := sqlx.GetContext(ctx, db, &c, q, id); err != nil {
		return Course{}, err
	}
	return c, nil
}

func ListByOwner(ctx context.Context, db sqlx.ExtContext, ownerID string) ([]Course, error) {
	const q = `SELECT * FROM courses WHERE owner_id = $1 ORDER BY created_at DESC`

	cs := []Course{}
	if err := sqlx.SelectContext(ctx, db, &cs, q, ownerID); err != nil {
		return nil, fmt.Errorf("listing courses of owner[%s]: %w", ownerID, err)
	}
	return cs, nil
}

// ListPurchased returns the courses the given user has bought.
func ListPurchased(ctx context.Context, db sqlx.ExtContext, userID string) ([]Course, error) {
	const q = `
	SELECT c.* FROM courses AS c
	JOIN purchases AS p ON p.course_id = c.course_id
	WHERE p.user_id = $1
	ORDER BY p.created_at DESC`

	cs := []Course{}
	if err := sqlx.SelectContext(ctx, db, &cs, q, userID); err != nil {
		return nil, fmt.Errorf("listing purchased courses of user[%s]: %w", userID, err)
	}
	return cs, nil
}

// ListCatalog returns the published courses that have at least one
// published chapter, optionally filtered by category and title substring.
func ListCatalog(ctx context.Context, db sqlx.ExtContext, categoryID string, title string) ([]Course, error) {
	q := `
	SELECT DISTINCT c.* FROM courses AS c
	JOIN chapters AS ch ON ch.course_id = c.course_id
	WHERE c.published AND ch.published`

	args := []interface{}{}
	if categoryID != "" {
		args = append(args, categoryID)
		q += fmt.Sprintf(" AND c.category_id = $%d", len(args))
	}
	if title != "" {
		args = append(args, "%"+title+"%")
		q += fmt.Sprintf(" AND c.title ILIKE $%d", len(args))
	}
	q += ` ORDER BY c.created_at DESC`

	cs := []Course{}
	if err := sqlx.SelectContext(ctx, db, &cs, q, args...); err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	return cs, nil
}

func Update(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	UPDATE courses SET
		category_id = :category_id,
		title       = :title,
		description = :description,
		image_url   = :image_url,
		price       = :price,
		updated_at  = :updated_at,
		version     = version + 1
	WHERE course_id = :course_id`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("updating course: %w", err)
	}
	return nil
}

func SetPublished(ctx context.Context, db sqlx.ExtContext, id string, published bool) error {
	const q = `UPDATE courses SET published = $2, updated_at = NOW(), version = version + 1 WHERE course_id = $1`

	if _, err := db.ExecContext(ctx, q, id, published); err != nil {
		return fmt.Errorf("setting published state: %w", err)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM courses WHERE course_id = $1`

	if _, err := db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("deleting course: %w", err)
	}
	return nil
}

// HasPublishedChapter reports whether any chapter of the course is
// currently published. The chapters table is queried directly to keep the
// dependency direction chapter -> course.
func HasPublishedChapter(ctx context.Context, db sqlx.ExtContext, courseID string) (bool, error) {
	const q = `SELECT COUNT(*) FROM chapters WHERE course_id = $1 AND published`

	var n int
	if err := sqlx.GetContext(ctx, db, &n, q, courseID); err != nil {
		return false, fmt.Errorf("counting published chapters: %w", err)
	}
	return n > 0, nil
}

func publishedChapterIDs(ctx context.Context, db sqlx.ExtContext, courseID string) ([]string, error) {
	const q = `SELECT chapter_id FROM chapters WHERE course_id = $1 AND published ORDER BY position ASC`

	ids := []string{}
	if err := sqlx.SelectContext(ctx, db, &ids, q, courseID); err != nil {
		return nil, fmt.Errorf("listing published chapter ids: %w", err)
	}
	return ids, nil
}

func hasPurchase(ctx context.Context, db sqlx.ExtContext, userID string, courseID string) (bool, error) {
	const q = `SELECT COUNT(*) FROM purchases WHERE user_id = $1 AND course_id = $2`

	var n int
	if err := sqlx.GetContext(ctx, db, &n, q, userID, courseID); err != nil {
		return false, fmt.Errorf("counting purchases: %w", err)
	}
	return n > 0, nil
}

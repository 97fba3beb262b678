package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/irsalhamdi/course-platform/api/web"
	"github.com/irsalhamdi/course-platform/api/weberr"
	"github.com/irsalhamdi/course-platform/core/claims"
	"github.com/irsalhamdi/course-platform/validate"
	"github.com/jmoiron/sqlx"
)

func exists(ctx context.Context, db sqlx.ExtContext, q string, id string) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, db, &n, q, id); err != nil {
		return false, err
	}
	return n > 0, nil
}

// HandleUpsert records the caller's completion state on a chapter.
func HandleUpsert(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		chapterID := web.Param(r, "chapter_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}
		if err := validate.CheckID(chapterID); err != nil {
			return weberr.BadRequest(err)
		}

		var pu ProgressUp
		if err := web.Decode(w, r, &pu); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding progress: %w", err))
		}

		if err := validate.Check(pu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if ok, err := exists(ctx, db, `SELECT COUNT(*) FROM courses WHERE course_id = $1`, courseID); err != nil {
			return err
		} else if !ok {
			return weberr.NotFound(fmt.Errorf("course[%s] not found", courseID))
		}

		if ok, err := exists(ctx, db, `SELECT COUNT(*) FROM chapters WHERE chapter_id = $1`, chapterID); err != nil {
			return err
		} else if !ok {
			return weberr.NotFound(fmt.Errorf("chapter[%s] not found", chapterID))
		}

		p := Progress{
			UserID:    clm.UserID,
			ChapterID: chapterID,
			Completed: *pu.Completed,
		}

		if err := Upsert(ctx, db, p); err != nil {
			return fmt.Errorf("recording progress of user[%s] on chapter[%s]: %w", clm.UserID, chapterID, err)
		}

		p, err = Fetch(ctx, db, clm.UserID, chapterID)
		if err != nil {
			return fmt.Errorf("fetching stored progress: %w", err)
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

// HandleShow reports the caller's completion percentage on a course, or
// null when the course has no published chapters.
func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		pct, err := Percentage(ctx, db, courseID, clm.UserID)
		if err != nil {
			return fmt.Errorf("computing progress of course[%s]: %w", courseID, err)
		}

		return web.Respond(ctx, w, pct, http.StatusOK)
	}
}

package chapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/course-platform/api/web"
	"github.com/irsalhamdi/course-platform/api/weberr"
	"github.com/irsalhamdi/course-platform/core/claims"
	"github.com/irsalhamdi/course-platform/core/course"
	"github.com/irsalhamdi/course-platform/core/progress"
	"github.com/irsalhamdi/course-platform/core/purchase"
	"github.com/irsalhamdi/course-platform/database"
	"github.com/irsalhamdi/course-platform/validate"
	"github.com/jmoiron/sqlx"
)

func params(r *http.Request) (courseID string, chapterID string, err error) {
	courseID = web.Param(r, "course_id")
	if err := validate.CheckID(courseID); err != nil {
		return "", "", weberr.BadRequest(err)
	}

	chapterID = web.Param(r, "chapter_id")
	if err := validate.CheckID(chapterID); err != nil {
		return "", "", weberr.BadRequest(err)
	}

	return courseID, chapterID, nil
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		var cn ChapterNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding chapter: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := course.FetchOwned(ctx, db, courseID, clm.UserID); err != nil {
			return err
		}

		now := time.Now().UTC()
		ch := Chapter{
			ID:          validate.GenerateID(),
			CourseID:    courseID,
			Title:       cn.Title,
			Description: cn.Description,
			VideoURL:    cn.VideoURL,
			Position:    cn.Position,
			Published:   false,
			Free:        cn.Free,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, ch); err != nil {
			return fmt.Errorf("creating chapter in course[%s]: %w", courseID, err)
		}

		return web.Respond(ctx, w, ch, http.StatusCreated)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := course.FetchOwned(ctx, db, courseID, clm.UserID); err != nil {
			return err
		}

		chs, err := ListByCourse(ctx, db, courseID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, chs, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID, chapterID, err := params(r)
		if err != nil {
			return err
		}

		if _, err := course.FetchOwned(ctx, db, courseID, clm.UserID); err != nil {
			return err
		}

		ch, err := Fetch(ctx, db, chapterID)
		if err != nil {
			return weberr.NotFound(fmt.Errorf("fetching chapter[%s]: %w", chapterID, err))
		}

		return web.Respond(ctx, w, ch, http.StatusOK)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID, chapterID, err := params(r)
		if err != nil {
			return err
		}

		var cu ChapterUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding chapter update: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if _, err := course.FetchOwned(ctx, db, courseID, clm.UserID); err != nil {
			return err
		}

		ch, err := Fetch(ctx, db, chapterID)
		if err != nil {
			return weberr.NotFound(fmt.Errorf("fetching chapter[%s]: %w", chapterID, err))
		}

		if cu.Title != nil {
			ch.Title = *cu.Title
		}
		if cu.Description != nil {
			ch.Description = *cu.Description
		}
		if cu.VideoURL != nil {
			ch.VideoURL = *cu.VideoURL
		}
		if cu.Position != nil {
			ch.Position = *cu.Position
		}
		if cu.Free != nil {
			ch.Free = *cu.Free
		}
		ch.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, ch); err != nil {
			return fmt.Errorf("updating chapter[%s]: %w", chapterID, err)
		}

		return web.Respond(ctx, w, ch, http.StatusOK)
	}
}

// HandleDelete removes a chapter. If the removed chapter was the last
// published one of its course, the course is forced back to unpublished
// in the same transaction.
func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID, chapterID, err := params(r)
		if err != nil {
			return err
		}

		if _, err := course.FetchOwned(ctx, db, courseID, clm.UserID); err != nil {
			return err
		}

		if _, err := Fetch(ctx, db, chapterID); err != nil {
			return weberr.NotFound(fmt.Errorf("fetching chapter[%s]: %w", chapterID, err))
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			if err := Delete(ctx, tx, chapterID); err != nil {
				return err
			}
			return unpublishCourseIfBare(ctx, tx, courseID)
		})
		if err != nil {
			return fmt.Errorf("deleting chapter[%s]: %w", chapterID, err)
		}

		out := map[string]string{"detail": "Chapter deleted"}
		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

// HandleReorder applies a batch of (chapter, position) updates in one
// transaction: all of them commit together or none do.
func HandleReorder(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		var items []Reorder
		if err := web.Decode(w, r, &items); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding reorder list: %w", err))
		}

		for _, it := range items {
			if err := validate.Check(it); err != nil {
				return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
			}
		}

		if _, err := course.FetchOwned(ctx, db, courseID, clm.UserID); err != nil {
			return err
		}

		err = database.Transaction(db, func(tx sqlx.ExtContext) error {
			for _, it := range items {
				if err := UpdatePosition(ctx, tx, it.ID, it.Position); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("reordering chapters of course[%s]: %w", courseID, err)
		}

		out := map[string]string{"detail": "Reorder successfully"}
		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

// HandlePublish drives the chapter side of the publish state machine.
// Unpublishing the last published chapter cascades to the course.
func HandlePublish(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID, chapterID, err := params(r)
		if err != nil {
			return err
		}

		if _, err := course.FetchOwned(ctx, db, courseID, clm.UserID); err != nil {
			return err
		}

		ch, err := Fetch(ctx, db, chapterID)
		if err != nil {
			return weberr.NotFound(fmt.Errorf("fetching chapter[%s]: %w", chapterID, err))
		}

		switch action := web.QueryParam(r, "action"); action {
		case "publish":
			if !Publishable(ch) {
				err := errors.New("missing required fields")
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}

			if err := SetPublished(ctx, db, chapterID, true); err != nil {
				return err
			}

			out := map[string]string{"detail": "Chapter is published"}
			return web.Respond(ctx, w, out, http.StatusOK)

		case "unpublish":
			err := database.Transaction(db, func(tx sqlx.ExtContext) error {
				if err := SetPublished(ctx, tx, chapterID, false); err != nil {
					return err
				}
				return unpublishCourseIfBare(ctx, tx, courseID)
			})
			if err != nil {
				return fmt.Errorf("unpublishing chapter[%s]: %w", chapterID, err)
			}

			out := map[string]string{"detail": "Chapter is unpublished"}
			return web.Respond(ctx, w, out, http.StatusOK)

		default:
			return weberr.BadRequest(fmt.Errorf("unknown action %q", action))
		}
	}
}

// unpublishCourseIfBare forces a course back to unpublished when none of
// its chapters is published anymore.
func unpublishCourseIfBare(ctx context.Context, tx sqlx.ExtContext, courseID string) error {
	hasPublished, err := course.HasPublishedChapter(ctx, tx, courseID)
	if err != nil {
		return err
	}
	if hasPublished {
		return nil
	}
	return course.SetPublished(ctx, tx, courseID, false)
}

type DashboardOut struct {
	Chapter      Chapter            `json:"chapter"`
	CoursePrice  float64            `json:"course_price"`
	Purchase     *purchase.Purchase `json:"purchase"`
	UserProgress *progress.Progress `json:"user_progress"`
	NextChapter  *Chapter           `json:"next_chapter"`
}

type ChapterProgress struct {
	Chapter
	UserProgress *progress.Progress `json:"user_progress"`
}

type PlayerOut struct {
	course.Course
	Chapters []ChapterProgress `json:"chapters"`
}

// HandleChapterProgress returns a course together with its published
// chapters in playback order and the caller's completion state on each.
// A course without any published chapter is treated as absent.
func HandleChapterProgress(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := course.Fetch(ctx, db, courseID)
		if err != nil {
			return weberr.NotFound(fmt.Errorf("fetching course[%s]: %w", courseID, err))
		}

		chs, err := ListPublishedByCourse(ctx, db, courseID)
		if err != nil {
			return err
		}

		if len(chs) == 0 {
			return weberr.NotFound(fmt.Errorf("course[%s] has no published chapters", courseID))
		}

		out := PlayerOut{Course: c, Chapters: make([]ChapterProgress, 0, len(chs))}
		for _, ch := range chs {
			cp := ChapterProgress{Chapter: ch}

			up, err := progress.Fetch(ctx, db, clm.UserID, ch.ID)
			switch {
			case err == nil:
				cp.UserProgress = &up
			case errors.Is(err, sql.ErrNoRows):
			default:
				return fmt.Errorf("fetching progress: %w", err)
			}

			out.Chapters = append(out.Chapters, cp)
		}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

// HandleDashboard returns everything a learner needs to consume one
// chapter. The video and the pointer to the next chapter are withheld
// unless the chapter is free or the course has been purchased.
func HandleDashboard(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID, chapterID, err := params(r)
		if err != nil {
			return err
		}

		c, err := course.Fetch(ctx, db, courseID)
		if err != nil {
			return weberr.NotFound(fmt.Errorf("fetching course[%s]: %w", courseID, err))
		}

		ch, err := Fetch(ctx, db, chapterID)
		if err != nil {
			return weberr.NotFound(fmt.Errorf("fetching chapter[%s]: %w", chapterID, err))
		}

		out := DashboardOut{Chapter: ch, CoursePrice: c.Price}

		p, err := purchase.FetchByUserAndCourse(ctx, db, clm.UserID, courseID)
		switch {
		case err == nil:
			out.Purchase = &p
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("fetching purchase: %w", err)
		}

		up, err := progress.Fetch(ctx, db, clm.UserID, chapterID)
		switch {
		case err == nil:
			out.UserProgress = &up
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("fetching progress: %w", err)
		}

		if !ch.Free && out.Purchase == nil {
			out.Chapter.VideoURL = ""
			return web.Respond(ctx, w, out, http.StatusOK)
		}

		next, err := NextPublished(ctx, db, courseID, ch.Position)
		switch {
		case err == nil:
			out.NextChapter = &next
		case errors.Is(err, sql.ErrNoRows):
		default:
			return fmt.Errorf("fetching next chapter: %w", err)
		}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

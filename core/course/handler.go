package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/irsalhamdi/course-platform/api/web"
	"github.com/irsalhamdi/course-platform/api/weberr"
	"github.com/irsalhamdi/course-platform/core/category"
	"github.com/irsalhamdi/course-platform/core/claims"
	"github.com/irsalhamdi/course-platform/core/progress"
	"github.com/irsalhamdi/course-platform/validate"
	"github.com/jmoiron/sqlx"
)

// FetchOwned is the ownership guard shared by every mutating course and
// chapter operation. An absent course yields NotFound; a course owned by
// another user yields Forbidden, in that order of precedence.
func FetchOwned(ctx context.Context, db sqlx.ExtContext, courseID string, userID string) (Course, error) {
	c, err := Fetch(ctx, db, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, weberr.NotFound(fmt.Errorf("course[%s] not found", courseID))
	}
	if err != nil {
		return Course{}, fmt.Errorf("fetching course[%s]: %w", courseID, err)
	}

	if c.OwnerID != userID {
		return Course{}, weberr.Forbidden(fmt.Errorf("course[%s] is not owned by user[%s]", courseID, userID))
	}

	return c, nil
}

func checkCategory(ctx context.Context, db sqlx.ExtContext, id *string) error {
	if id == nil {
		return nil
	}
	if err := validate.CheckID(*id); err != nil {
		return weberr.BadRequest(err)
	}
	if _, err := category.Fetch(ctx, db, *id); err != nil {
		return weberr.NotFound(fmt.Errorf("fetching category[%s]: %w", *id, err))
	}
	return nil
}

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CourseNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding course: %w", err))
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		if err := checkCategory(ctx, db, cn.CategoryID); err != nil {
			return err
		}

		now := time.Now().UTC()
		c := Course{
			ID:          validate.GenerateID(),
			OwnerID:     clm.UserID,
			CategoryID:  cn.CategoryID,
			Title:       cn.Title,
			Description: cn.Description,
			ImageURL:    cn.ImageURL,
			Price:       cn.Price,
			Published:   false,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := Create(ctx, db, c); err != nil {
			return fmt.Errorf("creating course: %w", err)
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		cs, err := ListByOwner(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, cs, http.StatusOK)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := FetchOwned(ctx, db, id, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

// HandleShowPublic exposes a published course without authentication.
func HandleShowPublic(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := FetchPublished(ctx, db, id)
		if err != nil {
			return weberr.NotFound(fmt.Errorf("fetching public course[%s]: %w", id, err))
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleUpdate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		var cu CourseUp
		if err := web.Decode(w, r, &cu); err != nil {
			return weberr.BadRequest(fmt.Errorf("decoding course update: %w", err))
		}

		if err := validate.Check(cu); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		c, err := FetchOwned(ctx, db, id, clm.UserID)
		if err != nil {
			return err
		}

		if cu.CategoryID != nil {
			if err := checkCategory(ctx, db, cu.CategoryID); err != nil {
				return err
			}
			c.CategoryID = cu.CategoryID
		}
		if cu.Title != nil {
			c.Title = *cu.Title
		}
		if cu.Description != nil {
			c.Description = *cu.Description
		}
		if cu.ImageURL != nil {
			c.ImageURL = *cu.ImageURL
		}
		if cu.Price != nil {
			c.Price = *cu.Price
		}
		c.UpdatedAt = time.Now().UTC()

		if err := Update(ctx, db, c); err != nil {
			return fmt.Errorf("updating course[%s]: %w", id, err)
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleDelete(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		if _, err := FetchOwned(ctx, db, id, clm.UserID); err != nil {
			return err
		}

		if err := Delete(ctx, db, id); err != nil {
			return fmt.Errorf("deleting course[%s]: %w", id, err)
		}

		out := map[string]string{"detail": "Course deleted"}
		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

// HandlePublish drives the course side of the publish state machine via
// the action query parameter.
func HandlePublish(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		id := web.Param(r, "id")
		if err := validate.CheckID(id); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := FetchOwned(ctx, db, id, clm.UserID)
		if err != nil {
			return err
		}

		switch action := web.QueryParam(r, "action"); action {
		case "publish":
			hasPublished, err := HasPublishedChapter(ctx, db, id)
			if err != nil {
				return err
			}

			if !Publishable(c, hasPublished) {
				err := errors.New("missing fields required")
				return weberr.NewError(err, err.Error(), http.StatusBadRequest)
			}

			if err := SetPublished(ctx, db, id, true); err != nil {
				return err
			}

			out := map[string]string{"detail": "Published course"}
			return web.Respond(ctx, w, out, http.StatusOK)

		case "unpublish":
			if err := SetPublished(ctx, db, id, false); err != nil {
				return err
			}

			out := map[string]string{"detail": "Unpublished course"}
			return web.Respond(ctx, w, out, http.StatusOK)

		default:
			return weberr.BadRequest(fmt.Errorf("unknown action %q", action))
		}
	}
}

type DashboardCourse struct {
	Course
	Progress *float64 `json:"progress"`
}

type Dashboard struct {
	CompletedCourses  []DashboardCourse `json:"completed_courses"`
	CoursesInProgress []DashboardCourse `json:"courses_in_progress"`
}

// HandleDashboard lists the purchased courses of the caller, split into
// fully completed ones and the rest by progress percentage.
func HandleDashboard(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		cs, err := ListPurchased(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		dash := Dashboard{
			CompletedCourses:  []DashboardCourse{},
			CoursesInProgress: []DashboardCourse{},
		}
		for _, c := range cs {
			pct, err := progress.Percentage(ctx, db, c.ID, clm.UserID)
			if err != nil {
				return fmt.Errorf("computing progress of course[%s]: %w", c.ID, err)
			}

			dc := DashboardCourse{Course: c, Progress: pct}
			if pct != nil && *pct == 100 {
				dash.CompletedCourses = append(dash.CompletedCourses, dc)
				continue
			}
			dash.CoursesInProgress = append(dash.CoursesInProgress, dc)
		}

		return web.Respond(ctx, w, dash, http.StatusOK)
	}
}

type CatalogCourse struct {
	Course
	ChapterIDs []string `json:"chapterIds"`
	Purchased  bool     `json:"purchased"`
	Progress   *float64 `json:"progress"`
}

// HandleCatalog lists the published courses enriched with the caller's
// purchase and progress state. Progress is reported only for purchased
// courses.
func HandleCatalog(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		cs, err := ListCatalog(ctx, db, web.QueryParam(r, "category_id"), web.QueryParam(r, "title"))
		if err != nil {
			return err
		}

		out := make([]CatalogCourse, 0, len(cs))
		for _, c := range cs {
			ids, err := publishedChapterIDs(ctx, db, c.ID)
			if err != nil {
				return err
			}

			cc := CatalogCourse{Course: c, ChapterIDs: ids}

			cc.Purchased, err = hasPurchase(ctx, db, clm.UserID, c.ID)
			if err != nil {
				return err
			}

			if cc.Purchased {
				cc.Progress, err = progress.Percentage(ctx, db, c.ID, clm.UserID)
				if err != nil {
					return fmt.Errorf("computing progress of course[%s]: %w", c.ID, err)
				}
			}

			out = append(out, cc)
		}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/course-platform/api/background"
	"github.com/irsalhamdi/course-platform/api/middleware"
	"github.com/irsalhamdi/course-platform/api/web"
	"github.com/irsalhamdi/course-platform/config"
	"github.com/irsalhamdi/course-platform/core/auth"
	"github.com/irsalhamdi/course-platform/core/category"
	"github.com/irsalhamdi/course-platform/core/chapter"
	"github.com/irsalhamdi/course-platform/core/course"
	"github.com/irsalhamdi/course-platform/core/progress"
	"github.com/irsalhamdi/course-platform/core/purchase"
	"github.com/irsalhamdi/course-platform/core/user"
	"github.com/irsalhamdi/course-platform/media"
	"github.com/irsalhamdi/course-platform/rate"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

type APIConfig struct {
	CorsOrigin string
	Log        logrus.FieldLogger
	DB         *sqlx.DB
	Tokens     *auth.Tokens
	Mailer     user.Mailer
	Background *background.Background
	Stripe     *stripecl.API
	StripeCfg  config.Stripe
	Uploader   *media.Uploader
	Limiter    *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.DB, cfg.Tokens)
	limited := middleware.Ratelimit(cfg.Limiter)

	a.Handle(http.MethodPost, "/auth/register", user.HandleRegister(cfg.DB, cfg.Tokens, cfg.Mailer, cfg.Background), limited)
	a.Handle(http.MethodPost, "/auth/login", user.HandleLogin(cfg.DB, cfg.Tokens), limited)
	a.Handle(http.MethodPost, "/auth/active-email", user.HandleActivateEmail(cfg.DB, cfg.Tokens))
	a.Handle(http.MethodPost, "/auth/verify-email", user.HandleVerifyEmail(cfg.DB, cfg.Tokens, cfg.Mailer, cfg.Background), limited)
	a.Handle(http.MethodPost, "/auth/password-recovery", user.HandleResetPassword(cfg.DB, cfg.Tokens))
	a.Handle(http.MethodGet, "/auth/current-user", user.HandleShowCurrent(cfg.DB), authen)

	a.Handle(http.MethodPost, "/categories", category.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodGet, "/categories", category.HandleList(cfg.DB))
	a.Handle(http.MethodGet, "/categories/{id}", category.HandleShow(cfg.DB))

	a.Handle(http.MethodGet, "/courses/dashboard", course.HandleDashboard(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/catalog", course.HandleCatalog(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/public-course/{id}", course.HandleShowPublic(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPatch, "/courses/{id}", course.HandleUpdate(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/courses/{id}", course.HandleDelete(cfg.DB), authen)
	a.Handle(http.MethodPatch, "/courses/{id}/publish", course.HandlePublish(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/chapter-progress", chapter.HandleChapterProgress(cfg.DB), authen)

	a.Handle(http.MethodPost, "/courses/{course_id}/chapters", chapter.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/chapters", chapter.HandleList(cfg.DB), authen)
	a.Handle(http.MethodPut, "/courses/{course_id}/chapters/reorder", chapter.HandleReorder(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/chapters/{chapter_id}", chapter.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPatch, "/courses/{course_id}/chapters/{chapter_id}", chapter.HandleUpdate(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/courses/{course_id}/chapters/{chapter_id}", chapter.HandleDelete(cfg.DB), authen)
	a.Handle(http.MethodPatch, "/courses/{course_id}/chapters/{chapter_id}/publish", chapter.HandlePublish(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/chapters/{chapter_id}/dashboard", chapter.HandleDashboard(cfg.DB), authen)

	a.Handle(http.MethodPut, "/progress/courses/{course_id}/chapters/{chapter_id}/progress", progress.HandleUpsert(cfg.DB), authen)
	a.Handle(http.MethodGet, "/progress/{course_id}", progress.HandleShow(cfg.DB), authen)

	a.Handle(http.MethodPost, "/payment/courses/{course_id}", purchase.HandleCheckout(cfg.DB, cfg.Stripe, cfg.StripeCfg), authen)
	a.Handle(http.MethodPost, "/payment/webhook", purchase.HandleWebhook(cfg.DB, cfg.StripeCfg))
	a.Handle(http.MethodGet, "/purchases/analytics", purchase.HandleAnalytics(cfg.DB), authen)
	a.Handle(http.MethodGet, "/purchases/courses/{course_id}", purchase.HandleShowByCourse(cfg.DB), authen)

	a.Handle(http.MethodPost, "/upload", media.HandleUpload(cfg.Uploader), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}

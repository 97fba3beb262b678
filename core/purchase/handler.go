package purchase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/irsalhamdi/course-platform/api/web"
	"github.com/irsalhamdi/course-platform/api/weberr"
	"github.com/irsalhamdi/course-platform/config"
	"github.com/irsalhamdi/course-platform/core/claims"
	"github.com/irsalhamdi/course-platform/core/course"
	"github.com/irsalhamdi/course-platform/validate"
	"github.com/jmoiron/sqlx"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// customer returns the provider customer bound to the user, creating it
// on first use.
func customer(ctx context.Context, db *sqlx.DB, strp *stripecl.API, userID string, email string) (Customer, error) {
	cust, err := FetchCustomerByUser(ctx, db, userID)
	if err == nil {
		return cust, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Customer{}, fmt.Errorf("fetching customer of user[%s]: %w", userID, err)
	}

	sc, err := strp.Customers.New(&stripe.CustomerParams{Email: stripe.String(email)})
	if err != nil {
		return Customer{}, fmt.Errorf("creating stripe customer: %w", err)
	}

	now := time.Now().UTC()
	cust = Customer{
		ID:        validate.GenerateID(),
		UserID:    userID,
		StripeID:  sc.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := CreateCustomer(ctx, db, cust); err != nil {
		return Customer{}, err
	}
	return cust, nil
}

// HandleCheckout creates a provider-hosted checkout session for a single
// course and returns its URL. Two concurrent calls can both pass the
// purchase check; the uniqueness constraint on purchases makes sure only
// one of the resulting webhooks can record a sale.
func HandleCheckout(db *sqlx.DB, strp *stripecl.API, cfg config.Stripe) web.Handler {
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
		if errors.Is(err, sql.ErrNoRows) {
			return weberr.NotFound(fmt.Errorf("course[%s] not found", courseID))
		}
		if err != nil {
			return fmt.Errorf("fetching course[%s]: %w", courseID, err)
		}

		if _, err := FetchByUserAndCourse(ctx, db, clm.UserID, courseID); err == nil {
			err := errors.New("already purchased")
			return weberr.Conflict(err, err.Error())
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking existing purchase: %w", err)
		}

		cust, err := customer(ctx, db, strp, clm.UserID, clm.Email)
		if err != nil {
			return err
		}

		params := &stripe.CheckoutSessionParams{
			SuccessURL: stripe.String(cfg.SuccessURL),
			CancelURL:  stripe.String(cfg.CancelURL),
			Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
			Customer:   stripe.String(cust.StripeID),

			LineItems: []*stripe.CheckoutSessionLineItemParams{{
				Quantity: stripe.Int64(1),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(int64(math.Round(c.Price * 100))),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(c.Title),
					},
				},
			}},
		}
		params.AddMetadata("user_id", clm.UserID)
		params.AddMetadata("course_id", c.ID)

		s, err := strp.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe session: %w", err)
		}

		return web.Respond(ctx, w, s.URL, http.StatusOK)
	}
}

func signatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}

// HandleWebhook records a purchase when the provider confirms a checkout.
// The provider may redeliver an event: a duplicate insert is treated as
// already fulfilled.
func HandleWebhook(db *sqlx.DB, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.NewError(fmt.Errorf("reading the request body: %w", err), "invalid payload", http.StatusBadRequest)
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.NewError(errors.New("received stripe event is not signed"), "invalid signature", http.StatusBadRequest)
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			if signatureError(err) {
				return weberr.NewError(fmt.Errorf("verifying stripe event: %w", err), "invalid signature", http.StatusBadRequest)
			}
			return weberr.NewError(fmt.Errorf("constructing stripe event: %w", err), "invalid payload", http.StatusBadRequest)
		}

		if event.Type != "checkout.session.completed" {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return weberr.NewError(fmt.Errorf("decoding stripe session: %w", err), "invalid payload", http.StatusBadRequest)
		}

		userID := session.Metadata["user_id"]
		courseID := session.Metadata["course_id"]
		if userID == "" || courseID == "" {
			err := errors.New("webhook error: missing metadata")
			return weberr.NewError(err, err.Error(), http.StatusBadRequest)
		}

		now := time.Now().UTC()
		p := Purchase{
			ID:        validate.GenerateID(),
			UserID:    userID,
			CourseID:  courseID,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := Create(ctx, db, p); err != nil && !errors.Is(err, ErrDuplicate) {
			return fmt.Errorf("recording purchase of course[%s] by user[%s]: %w", courseID, userID, err)
		}

		out := map[string]string{"detail": "Success payment"}
		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

// HandleAnalytics reports the sales of the courses owned by the caller.
func HandleAnalytics(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		an, err := FetchAnalytics(ctx, db, clm.UserID)
		if err != nil {
			return fmt.Errorf("aggregating sales of owner[%s]: %w", clm.UserID, err)
		}

		return web.Respond(ctx, w, an, http.StatusOK)
	}
}

func HandleShowByCourse(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		p, err := FetchByUserAndCourse(ctx, db, clm.UserID, courseID)
		if err != nil {
			return weberr.NotFound(fmt.Errorf("fetching purchase: %w", err))
		}

		return web.Respond(ctx, w, p, http.StatusOK)
	}
}

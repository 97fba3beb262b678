package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

type paymentTest struct {
	*TestEnv
}

// checkoutOK starts a checkout session and returns its URL.
func (pt *paymentTest) checkoutOK(t *testing.T, courseID string) string {
	t.Helper()

	var url string
	if status := pt.request(t, http.MethodPost, "/payment/courses/"+courseID, pt.UserToken, nil, &url); status != http.StatusOK {
		t.Fatalf("starting checkout: got status %d, want %d", status, http.StatusOK)
	}
	if url == "" {
		t.Fatal("checkout returned an empty URL")
	}
	return url
}

// deliverWebhook signs and posts a checkout.session.completed event the
// way the provider would.
func (pt *paymentTest) deliverWebhook(t *testing.T, userID string, courseID string) int {
	t.Helper()

	raw, err := json.Marshal(map[string]any{
		"id": "cs_test_evt",
		"metadata": map[string]string{
			"user_id":   userID,
			"course_id": courseID,
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		APIVersion: "2022-11-15",
		Type:       "checkout.session.completed",
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    pt.WebhookSecret,
		Timestamp: time.Now(),
	})

	r, err := http.NewRequest(http.MethodPost, pt.URL+"/payment/webhook", bytes.NewBuffer(b))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Stripe-Signature", signed.Header)

	w, err := pt.Server.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	return w.StatusCode
}

func TestPayment(t *testing.T) {
	env, err := NewTestEnv(t, "payment_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	pt := &paymentTest{env}
	ct := &courseTest{env}

	c := ct.createCourseOK(t, "Paid Course")
	ct.fillCourseOK(t, c.ID, ct.createCategoryOK(t, "paid").ID)

	pt.checkoutOK(t, c.ID)

	// The purchase only exists once the provider confirms it.
	if status := env.request(t, http.MethodGet, "/purchases/courses/"+c.ID, env.UserToken, nil, nil); status != http.StatusNotFound {
		t.Fatalf("fetching purchase before the webhook: got status %d, want %d", status, http.StatusNotFound)
	}

	if status := pt.deliverWebhook(t, env.UserID, c.ID); status != http.StatusOK {
		t.Fatalf("delivering webhook: got status %d, want %d", status, http.StatusOK)
	}

	if status := env.request(t, http.MethodGet, "/purchases/courses/"+c.ID, env.UserToken, nil, nil); status != http.StatusOK {
		t.Fatalf("fetching purchase after the webhook: got status %d, want %d", status, http.StatusOK)
	}

	// Provider redelivery must not create a second purchase.
	if status := pt.deliverWebhook(t, env.UserID, c.ID); status != http.StatusOK {
		t.Fatalf("redelivering webhook: got status %d, want %d", status, http.StatusOK)
	}

	if status := env.request(t, http.MethodPost, "/payment/courses/"+c.ID, env.UserToken, nil, nil); status != http.StatusConflict {
		t.Fatalf("buying the same course twice: got status %d, want %d", status, http.StatusConflict)
	}

	var an struct {
		Data []struct {
			Name  string  `json:"name"`
			Total float64 `json:"total"`
		} `json:"data"`
		TotalRevenue float64 `json:"total_revenue"`
		TotalSales   int     `json:"total_sales"`
	}
	if status := env.request(t, http.MethodGet, "/purchases/analytics", env.UserToken, nil, &an); status != http.StatusOK {
		t.Fatalf("fetching analytics: got status %d, want %d", status, http.StatusOK)
	}
	if an.TotalSales != 1 || an.TotalRevenue != 29.99 {
		t.Fatalf("analytics mismatch: %+v", an)
	}
	if len(an.Data) != 1 || an.Data[0].Name != "Paid Course" {
		t.Fatalf("analytics data mismatch: %+v", an.Data)
	}

	// A purchased course can still be deleted; its purchases go with it.
	if status := env.request(t, http.MethodDelete, "/courses/"+c.ID, env.UserToken, nil, nil); status != http.StatusOK {
		t.Fatalf("deleting a purchased course: got status %d, want %d", status, http.StatusOK)
	}

	if status := env.request(t, http.MethodGet, "/purchases/courses/"+c.ID, env.UserToken, nil, nil); status != http.StatusNotFound {
		t.Fatalf("fetching purchase of a deleted course: got status %d, want %d", status, http.StatusNotFound)
	}
}

func TestWebhookRejections(t *testing.T) {
	env, err := NewTestEnv(t, "webhook_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}
	pt := &paymentTest{env}

	// Unsigned delivery.
	r, err := http.NewRequest(http.MethodPost, env.URL+"/payment/webhook", bytes.NewBufferString("{}"))
	if err != nil {
		t.Fatal(err)
	}
	w, err := env.Server.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusBadRequest {
		t.Fatalf("unsigned webhook: got status %d, want %d", w.StatusCode, http.StatusBadRequest)
	}

	// Signed but missing metadata.
	if status := pt.deliverWebhook(t, "", ""); status != http.StatusBadRequest {
		t.Fatalf("webhook without metadata: got status %d, want %d", status, http.StatusBadRequest)
	}
}

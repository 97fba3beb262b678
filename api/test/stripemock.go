package test

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/irsalhamdi/course-platform/api/web"
	"github.com/irsalhamdi/course-platform/random"
	mock "github.com/stripe/stripe-mock/param"
)

// stripeMockMux fakes the two provider endpoints the checkout flow
// touches: customer creation and checkout session creation. The session
// ID doubles as the checkout URL so tests can correlate the two.
func stripeMockMux() http.Handler {
	customers := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := "cus_test_" + random.String(8)
		web.Respond(context.Background(), w, map[string]any{"id": id}, 200)
	})

	sessions := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, err := mock.ParseParams(r)
		if err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		lines, ok := params["line_items"].(map[string]any)
		if !ok || len(lines) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		for _, li := range lines {
			it := li.(map[string]any)
			if it["quantity"] != "1" {
				web.Respond(context.Background(), w, nil, 400)
				return
			}

			pd := it["price_data"].(map[string]any)
			if _, err := strconv.ParseInt(pd["unit_amount"].(string), 10, 64); err != nil {
				web.Respond(context.Background(), w, err, 400)
				return
			}
		}

		md, ok := params["metadata"].(map[string]any)
		if !ok || md["user_id"] == "" || md["course_id"] == "" {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		id := "cs_test_" + random.String(8)
		out := map[string]any{"id": id, "url": "http://checkout.local/" + id, "metadata": md}
		web.Respond(context.Background(), w, out, 201)
	})

	r := mux.NewRouter()
	r.Handle("/v1/customers", customers).Methods("POST")
	r.Handle("/v1/checkout/sessions", sessions).Methods("POST")
	return r
}

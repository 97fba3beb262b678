package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/irsalhamdi/course-platform/api"
	"github.com/irsalhamdi/course-platform/api/background"
	"github.com/irsalhamdi/course-platform/config"
	"github.com/irsalhamdi/course-platform/core/auth"
	"github.com/irsalhamdi/course-platform/core/user"
	"github.com/irsalhamdi/course-platform/database"
	"github.com/irsalhamdi/course-platform/media"
	"github.com/irsalhamdi/course-platform/rate"
	"github.com/irsalhamdi/course-platform/validate"
	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

const (
	seedEmail = "owner@example.com"
	seedPass  = "gophers-rule-123"

	webhookSecret = "whsec_test"
)

// TestEnv runs the whole API against a throwaway postgres container and
// a mocked payment backend. Tests drive it over plain HTTP.
type TestEnv struct {
	Server *httptest.Server
	URL    string
	DB     *sqlx.DB
	Tokens *auth.Tokens
	Mail   *mailRecorder

	WebhookSecret string

	UserID    string
	UserEmail string
	UserPass  string
	UserToken string
}

func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	pool, err := dockertest.NewPool("")
	if err != nil || pool.Client.Ping() != nil {
		t.Skip("docker is not available, skipping integration test")
	}

	res, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}

	t.Cleanup(func() { pool.Purge(res) })

	dbCfg := config.DB{
		User:       "postgres",
		Password:   "postgres",
		Host:       res.GetHostPort("5432/tcp"),
		Name:       name,
		DisableTLS: true,
	}

	var db *sqlx.DB
	pool.MaxWait = time.Minute
	if err := pool.Retry(func() error {
		db, err = database.Open(dbCfg)
		if err != nil {
			return err
		}
		return db.Ping()
	}); err != nil {
		return nil, fmt.Errorf("connecting to postgres container: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating test database: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(testWriter{t})

	tokens := auth.NewTokens("test-secret", time.Hour)
	mail := &mailRecorder{}
	bg := background.New(logger)

	strpMock := httptest.NewServer(stripeMockMux())
	t.Cleanup(strpMock.Close)

	strp := &stripecl.API{}
	strp.Init("sk_test_x", &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL: stripe.String(strpMock.URL),
		}),
	})

	stripeCfg := config.Stripe{
		APISecret:     "sk_test_x",
		WebhookSecret: webhookSecret,
		SuccessURL:    "http://localhost/success",
		CancelURL:     "http://localhost/cancel",
	}

	uploader := media.New(config.Cloudinary{CloudName: "test", APIKey: "key", APISecret: "secret"})

	mux := api.APIMux(api.APIConfig{
		CorsOrigin: "*",
		Log:        logger,
		DB:         db,
		Tokens:     tokens,
		Mailer:     mail,
		Background: bg,
		Stripe:     strp,
		StripeCfg:  stripeCfg,
		Uploader:   uploader,
		Limiter:    rate.NewLimiter(1000, 10, 1000),
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	env := &TestEnv{
		Server:        srv,
		URL:           srv.URL,
		DB:            db,
		Tokens:        tokens,
		Mail:          mail,
		WebhookSecret: webhookSecret,
		UserEmail:     seedEmail,
		UserPass:      seedPass,
	}

	if err := env.seedUser(); err != nil {
		return nil, err
	}

	return env, nil
}

// seedUser creates an already-active user and an access token for it, so
// tests that are not about the signup flow can skip it.
func (env *TestEnv) seedUser() error {
	hash, err := auth.HashPassword(seedPass)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	usr := user.User{
		ID:           validate.GenerateID(),
		Username:     "owner",
		Email:        seedEmail,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := user.Create(context.Background(), env.DB, usr); err != nil {
		return fmt.Errorf("seeding user: %w", err)
	}

	token, err := env.Tokens.Issue(usr.Email, auth.KindAccess)
	if err != nil {
		return fmt.Errorf("issuing seed token: %w", err)
	}

	env.UserID = usr.ID
	env.UserToken = token
	return nil
}

// request sends a JSON request, optionally authenticated, and decodes the
// response into out when out is non-nil.
func (env *TestEnv) request(t *testing.T, method string, path string, token string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	r, err := http.NewRequest(method, env.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w, err := env.Server.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decoding response of %s %s: %v", method, path, err)
		}
	}

	return w.StatusCode
}

// mailRecorder satisfies the Mailer interface and captures the tokens
// that would have been mailed out.
type mailRecorder struct {
	mu         sync.Mutex
	activation map[string]string
	recovery   map[string]string
}

func (m *mailRecorder) SendActivationEmail(to string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activation == nil {
		m.activation = make(map[string]string)
	}
	m.activation[to] = token
	return nil
}

func (m *mailRecorder) SendRecoveryEmail(to string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recovery == nil {
		m.recovery = make(map[string]string)
	}
	m.recovery[to] = token
	return nil
}

// ActivationToken polls for the token of an address: mails are delivered
// on a background goroutine.
func (m *mailRecorder) ActivationToken(to string) string {
	return m.poll(func() string {
		return m.activation[to]
	})
}

func (m *mailRecorder) RecoveryToken(to string) string {
	return m.poll(func() string {
		return m.recovery[to]
	})
}

func (m *mailRecorder) poll(get func() string) string {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		token := get()
		m.mu.Unlock()
		if token != "" {
			return token
		}
		time.Sleep(10 * time.Millisecond)
	}
	return ""
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}

package config

import "time"

// Config collects every knob of the service. It is parsed once in cmd/server
// and handed to the components that need it. There are no ambient lookups.
type Config struct {
	Web        Web
	Cors       Cors
	DB         DB
	Auth       Auth
	Email      Email
	Stripe     Stripe
	Cloudinary Cloudinary
	Rate       Rate
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type Cors struct {
	Origin string `conf:"default:*"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost:5432"`
	Name       string `conf:"default:courses"`
	DisableTLS bool   `conf:"default:true"`
}

type Auth struct {
	// TokenSecret signs every issued token, whatever its kind.
	TokenSecret   string        `conf:"mask"`
	AccessTimeout time.Duration `conf:"default:30m"`
}

type Email struct {
	Host     string `conf:"default:localhost"`
	Port     string `conf:"default:25"`
	Address  string
	Password string `conf:"mask"`
	FromName string `conf:"default:Course Platform"`

	// ActivationURL and RecoveryURL are the frontend pages that redeem
	// confirm and recovery tokens. The token is appended as a query param.
	ActivationURL string
	RecoveryURL   string
}

type Stripe struct {
	APISecret     string `conf:"mask"`
	WebhookSecret string `conf:"mask"`
	SuccessURL    string
	CancelURL     string
}

type Cloudinary struct {
	CloudName string
	APIKey    string
	APISecret string `conf:"mask"`
}

type Rate struct {
	// Limits applied to the unauthenticated auth endpoints, per client IP.
	Burst         int           `conf:"default:10"`
	Interval      time.Duration `conf:"default:1s"`
	ExpiryMinutes int           `conf:"default:10"`
}

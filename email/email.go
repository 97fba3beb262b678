package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"

	"github.com/irsalhamdi/course-platform/config"
)

//go:embed templates/*.html
var templates embed.FS

// Sender delivers transactional mails over SMTP. It satisfies the
// Mailer interface of the user package.
type Sender struct {
	address string
	from    string
	auth    smtp.Auth
	host    string
	port    string
	links   Links
	tmpl    *template.Template
}

// Links are the frontend pages the mails point the user to. The token
// is appended as a query parameter.
type Links struct {
	ActivationURL string
	RecoveryURL   string
}

func New(cfg config.Email) (*Sender, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing email templates: %w", err)
	}

	return &Sender{
		address: cfg.Address,
		from:    fmt.Sprintf("%s <%s>", cfg.FromName, cfg.Address),
		auth:    smtp.PlainAuth("", cfg.Address, cfg.Password, cfg.Host),
		host:    cfg.Host,
		port:    cfg.Port,
		links: Links{
			ActivationURL: cfg.ActivationURL,
			RecoveryURL:   cfg.RecoveryURL,
		},
		tmpl: tmpl,
	}, nil
}

func (s *Sender) SendActivationEmail(to string, token string) error {
	link, err := withToken(s.links.ActivationURL, token)
	if err != nil {
		return err
	}
	return s.send(to, "Confirm your email", "activation.html", link)
}

func (s *Sender) SendRecoveryEmail(to string, token string) error {
	link, err := withToken(s.links.RecoveryURL, token)
	if err != nil {
		return err
	}
	return s.send(to, "Reset your password", "recovery.html", link)
}

func withToken(base string, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing link %q: %w", base, err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Sender) send(to string, subject string, name string, link string) error {
	var body bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&body, name, struct{ Link string }{Link: link}); err != nil {
		return fmt.Errorf("executing template %s: %w", name, err)
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	addr := s.host + ":" + s.port
	if err := smtp.SendMail(addr, s.auth, s.address, []string{to}, msg.Bytes()); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	return nil
}

package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/Dosada05/tournament-brackets/config"
)

//go:embed templates/*.html
var emailTemplates embed.FS

// Mailer sends the transactional emails of the service. Callers treat
// delivery as best effort.
type Mailer interface {
	SendConfirmationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
	SendMatchResultEmail(ctx context.Context, to string, data MatchResultEmail) error
}

// MatchResultEmail is the payload of the confirmed and conflict notices.
type MatchResultEmail struct {
	TournamentName string
	RoundLabel     string
	Confirmed      bool
	WinnerName     string
	MatchLink      string
}

type EmailService struct {
	cfg       *config.Config
	templates *template.Template
	logger    *slog.Logger
	send      func(to []string, msg []byte) error
}

func NewEmailService(cfg *config.Config, logger *slog.Logger) (*EmailService, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	s := &EmailService{cfg: cfg, templates: tmpl, logger: logger}
	s.send = s.sendSMTP
	return s, nil
}

func (s *EmailService) SendConfirmationEmail(ctx context.Context, to, token string) error {
	data := struct {
		Email            string
		ConfirmationLink string
	}{
		Email:            to,
		ConfirmationLink: s.link("/auth/confirm", token),
	}
	return s.sendTemplate(ctx, to, "Confirm your account", "confirm_email.html", data)
}

func (s *EmailService) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	data := struct {
		Email     string
		ResetLink string
	}{
		Email:     to,
		ResetLink: s.link("/reset-password", token),
	}
	return s.sendTemplate(ctx, to, "Reset your password", "password_reset_email.html", data)
}

func (s *EmailService) SendMatchResultEmail(ctx context.Context, to string, data MatchResultEmail) error {
	subject := fmt.Sprintf("%s: %s result confirmed", data.TournamentName, data.RoundLabel)
	if !data.Confirmed {
		subject = fmt.Sprintf("%s: %s results disagree", data.TournamentName, data.RoundLabel)
	}
	return s.sendTemplate(ctx, to, subject, "match_result_email.html", data)
}

func (s *EmailService) link(path, token string) string {
	return s.cfg.PublicURL + path + "?token=" + url.QueryEscape(token)
}

func (s *EmailService) sendTemplate(ctx context.Context, to, subject, name string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, name, data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", name, err)
	}

	if s.cfg.SMTPHost == "" {
		s.logger.InfoContext(ctx, "smtp not configured, email logged instead of sent",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.String("template", name),
		)
		return nil
	}

	msg := []byte("To: " + to + "\r\n" +
		"From: " + s.cfg.SMTPFrom + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n" +
		"\r\n" +
		body.String() + "\r\n")

	return s.send([]string{to}, msg)
}

func (s *EmailService) sendSMTP(to []string, msg []byte) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)
	tlsConfig := &tls.Config{ServerName: s.cfg.SMTPHost}

	var client *smtp.Client
	if s.cfg.SMTPPort == 465 {
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("smtp tls dial failed: %w", err)
		}
		client, err = smtp.NewClient(conn, s.cfg.SMTPHost)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to create smtp client: %w", err)
		}
	} else {
		c, err := smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("smtp dial failed: %w", err)
		}
		client = c
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err = client.StartTLS(tlsConfig); err != nil {
				client.Close()
				return fmt.Errorf("smtp STARTTLS failed: %w", err)
			}
		}
	}
	defer client.Quit()

	if s.cfg.SMTPUser != "" {
		auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPass, s.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth failed: %w", err)
		}
	}
	if err := client.Mail(s.cfg.SMTPFrom); err != nil {
		return fmt.Errorf("smtp MAIL FROM failed: %w", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp RCPT TO %s failed: %w", strings.TrimSpace(rcpt), err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA failed: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write email body: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to finish email body: %w", err)
	}
	return nil
}

package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"

	"github.com/Bos243/appointment-booking-app/pkg/metrics"
)

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	PublicURL string
}

type smtpService struct {
	dialer  *gomail.Dialer
	cfg     SMTPConfig
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

func NewSMTPService(cfg SMTPConfig, logger *zerolog.Logger, m *metrics.Metrics) Service {
	return &smtpService{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

func (s *smtpService) SendVerification(ctx context.Context, email, token string) error {
	link := fmt.Sprintf("%s/api/v1/auth/verify-email?token=%s", s.cfg.PublicURL, token)
	body := fmt.Sprintf(
		"Please verify your email address before logging in.\r\n\r\n%s\r\n\r\nThe link expires in 24 hours.",
		link,
	)
	return s.send(ctx, "verification", email, "Verify your email", body)
}

func (s *smtpService) SendPasswordReset(ctx context.Context, email, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.cfg.PublicURL, token)
	body := fmt.Sprintf(
		"A password reset was requested for your account.\r\n\r\n%s\r\n\r\nIf this wasn't you, ignore this email.",
		link,
	)
	return s.send(ctx, "password_reset", email, "Reset your password", body)
}

func (s *smtpService) SendWelcome(ctx context.Context, email, name string) error {
	body := fmt.Sprintf("Welcome %s,\r\n\r\nYour account is ready. You can now book appointments online.", name)
	return s.send(ctx, "welcome", email, "Welcome", body)
}

func (s *smtpService) send(ctx context.Context, kind, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		s.metrics.EmailsFailed.WithLabelValues(kind).Inc()
		s.logger.Error().Err(err).Str("kind", kind).Str("to", to).Msg("email send failed")
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}
	s.metrics.EmailsSent.WithLabelValues(kind).Inc()
	return nil
}

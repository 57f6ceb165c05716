package email

import (
	"context"

	"github.com/rs/zerolog"
)

// noopService logs instead of sending, for local runs without SMTP.
type noopService struct {
	logger *zerolog.Logger
}

func NewNoopService(logger *zerolog.Logger) Service {
	return &noopService{logger: logger}
}

func (s *noopService) SendVerification(ctx context.Context, email, token string) error {
	s.logger.Info().Str("to", email).Str("token", token).Msg("would send verification email")
	return nil
}

func (s *noopService) SendPasswordReset(ctx context.Context, email, token string) error {
	s.logger.Info().Str("to", email).Str("token", token).Msg("would send password reset email")
	return nil
}

func (s *noopService) SendWelcome(ctx context.Context, email, name string) error {
	s.logger.Info().Str("to", email).Msg("would send welcome email")
	return nil
}

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bos243/appointment-booking-app/internal/email"
	"github.com/Bos243/appointment-booking-app/internal/model"
	"github.com/Bos243/appointment-booking-app/internal/repository"
	"github.com/Bos243/appointment-booking-app/pkg/auth"
	"github.com/Bos243/appointment-booking-app/pkg/errors"
)

const (
	verificationTokenTTL = 24 * time.Hour
	resetTokenTTL        = time.Hour
)

type Service struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	jwt    auth.JWTService
	email  email.Service
	logger *zerolog.Logger
}

func NewService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	jwt auth.JWTService,
	emailSvc email.Service,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		jwt:    jwt,
		email:  emailSvc,
		logger: logger,
	}
}

// Signup registers a user and sends the verification mail. The account
// stays unusable for login until the mail link is followed.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*model.User, error) {
	if !req.Role.Valid() {
		return nil, errors.BadRequest("unknown role", nil)
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, errors.BadRequest("email already registered", nil)
	} else if !errors.IsCode(err, errors.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Internal(err)
	}

	user := &model.User{
		Base:         model.Base{ID: uuid.New()},
		Email:        req.Email,
		Role:         req.Role,
		PasswordHash: string(hash),
	}
	if req.FullName != "" {
		user.FullName = &req.FullName
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, errors.RemoteWrite(err)
	}

	token, err := randomToken()
	if err != nil {
		return nil, errors.Internal(err)
	}
	if err := s.tokens.StoreVerificationToken(ctx, user.ID, token, time.Now().Add(verificationTokenTTL)); err != nil {
		return nil, errors.RemoteWrite(err)
	}
	if err := s.email.SendVerification(ctx, user.Email, token); err != nil {
		s.logger.Error().Err(err).Str("email", user.Email).Msg("verification email failed")
	}

	s.logger.Info().Stringer("user_id", user.ID).Str("role", string(user.Role)).Msg("user signed up")
	return user, nil
}

// Login checks credentials and issues an access/refresh token pair.
// Unverified accounts are refused.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, *model.User, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			return nil, nil, errors.AuthFailure("invalid credentials", nil)
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, errors.AuthFailure("invalid credentials", err)
	}
	if !user.EmailVerified {
		return nil, nil, errors.AuthFailure("email not verified", nil)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info().Stringer("user_id", user.ID).Msg("user logged in")
	return tokens, user, nil
}

// Logout blacklists the presented access token until its own expiry, so a
// signed-out session cannot keep acting.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return errors.AuthFailure("invalid token", err)
	}
	return s.blacklist(ctx, token, claims)
}

// ForceSignOut terminates a session whose principal has no usable role
// record. The caller still receives the role error; this only makes sure
// the token cannot be replayed.
func (s *Service) ForceSignOut(ctx context.Context, token string) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return
	}
	if err := s.blacklist(ctx, token, claims); err != nil {
		s.logger.Error().Err(err).Msg("forced sign-out blacklist failed")
	}
}

func (s *Service) blacklist(ctx context.Context, token string, claims *model.TokenClaims) error {
	expiry := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}
	if err := s.tokens.BlacklistToken(ctx, token, expiry); err != nil {
		return errors.RemoteWrite(err)
	}
	return nil
}

// VerifyEmail consumes a verification token and marks the account usable.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.tokens.ValidateVerificationToken(ctx, token)
	if err != nil {
		return errors.BadRequest("invalid or expired verification token", err)
	}
	if err := s.users.UpdateEmailVerified(ctx, userID, true); err != nil {
		return errors.RemoteWrite(err)
	}
	if err := s.tokens.InvalidateVerificationToken(ctx, token); err != nil {
		s.logger.Warn().Err(err).Msg("verification token cleanup failed")
	}

	user, err := s.users.Get(ctx, userID)
	if err == nil {
		name := user.Email
		if user.FullName != nil {
			name = *user.FullName
		}
		if err := s.email.SendWelcome(ctx, user.Email, name); err != nil {
			s.logger.Warn().Err(err).Msg("welcome email failed")
		}
	}
	s.logger.Info().Stringer("user_id", userID).Msg("email verified")
	return nil
}

// ResendVerification issues a fresh verification token for an unverified
// account. Unknown addresses return success so the endpoint does not leak
// which emails exist.
func (s *Service) ResendVerification(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerified {
		return nil
	}

	token, err := randomToken()
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.tokens.StoreVerificationToken(ctx, user.ID, token, time.Now().Add(verificationTokenTTL)); err != nil {
		return errors.RemoteWrite(err)
	}
	return s.email.SendVerification(ctx, user.Email, token)
}

// ForgotPassword behaves like ResendVerification for unknown addresses.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := randomToken()
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.tokens.StoreResetToken(ctx, user.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		return errors.RemoteWrite(err)
	}
	return s.email.SendPasswordReset(ctx, user.Email, token)
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	userID, err := s.tokens.ValidateResetToken(ctx, token)
	if err != nil {
		return errors.BadRequest("invalid or expired reset token", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, string(hash)); err != nil {
		return errors.RemoteWrite(err)
	}
	if err := s.tokens.InvalidateResetToken(ctx, token); err != nil {
		s.logger.Warn().Err(err).Msg("reset token cleanup failed")
	}
	s.logger.Info().Stringer("user_id", userID).Msg("password reset")
	return nil
}

// RefreshToken trades a valid refresh token for a new pair. Claims are
// re-resolved against the user store so a role change takes effect here.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.AuthFailure("invalid refresh token", err)
	}
	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			return nil, errors.RoleNotFound(err)
		}
		return nil, err
	}
	return s.issueTokens(user)
}

// ValidateToken checks signature, expiry and the sign-out blacklist.
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwt.ValidateToken(token)
	if err != nil {
		return nil, errors.AuthFailure("invalid token", err)
	}
	blacklisted, err := s.tokens.IsBlacklisted(ctx, token)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, errors.AuthFailure("token revoked", nil)
	}
	return claims, nil
}

func (s *Service) issueTokens(user *model.User) (*model.TokenResponse, error) {
	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, errors.Internal(err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &model.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Bos243/appointment-booking-app/internal/model"
	pkgauth "github.com/Bos243/appointment-booking-app/pkg/auth"
	"github.com/Bos243/appointment-booking-app/pkg/errors"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("user", nil)
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.NotFound("user", nil)
}

func (r *fakeUserRepo) UpdateEmailVerified(_ context.Context, id uuid.UUID, v bool) error {
	if u, ok := r.users[id]; ok {
		u.EmailVerified = v
	}
	return nil
}

func (r *fakeUserRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, h string) error {
	if u, ok := r.users[id]; ok {
		u.PasswordHash = h
	}
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, f *model.UserFilters) ([]*model.User, error) {
	var out []*model.User
	for _, u := range r.users {
		if f != nil && f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type fakeTokenRepo struct {
	verification map[string]uuid.UUID
	reset        map[string]uuid.UUID
	blacklisted  map[string]bool
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{
		verification: make(map[string]uuid.UUID),
		reset:        make(map[string]uuid.UUID),
		blacklisted:  make(map[string]bool),
	}
}

func (r *fakeTokenRepo) StoreVerificationToken(_ context.Context, userID uuid.UUID, token string, _ time.Time) error {
	r.verification[token] = userID
	return nil
}

func (r *fakeTokenRepo) ValidateVerificationToken(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := r.verification[token]
	if !ok {
		return uuid.Nil, errors.NotFound("verification token", nil)
	}
	return id, nil
}

func (r *fakeTokenRepo) InvalidateVerificationToken(_ context.Context, token string) error {
	delete(r.verification, token)
	return nil
}

func (r *fakeTokenRepo) StoreResetToken(_ context.Context, userID uuid.UUID, token string, _ time.Time) error {
	r.reset[token] = userID
	return nil
}

func (r *fakeTokenRepo) ValidateResetToken(_ context.Context, token string) (uuid.UUID, error) {
	id, ok := r.reset[token]
	if !ok {
		return uuid.Nil, errors.NotFound("reset token", nil)
	}
	return id, nil
}

func (r *fakeTokenRepo) InvalidateResetToken(_ context.Context, token string) error {
	delete(r.reset, token)
	return nil
}

func (r *fakeTokenRepo) BlacklistToken(_ context.Context, token string, _ time.Time) error {
	r.blacklisted[token] = true
	return nil
}

func (r *fakeTokenRepo) IsBlacklisted(_ context.Context, token string) (bool, error) {
	return r.blacklisted[token], nil
}

type recordingEmail struct {
	verifications []string
	resets        []string
	welcomes      []string
}

func (e *recordingEmail) SendVerification(_ context.Context, email, token string) error {
	e.verifications = append(e.verifications, token)
	return nil
}

func (e *recordingEmail) SendPasswordReset(_ context.Context, email, token string) error {
	e.resets = append(e.resets, token)
	return nil
}

func (e *recordingEmail) SendWelcome(_ context.Context, email, name string) error {
	e.welcomes = append(e.welcomes, email)
	return nil
}

func newTestAuth(users *fakeUserRepo, tokens *fakeTokenRepo, mail *recordingEmail) *Service {
	log := zerolog.Nop()
	jwt := pkgauth.NewJWTService("test-secret", "test-refresh-secret", 15*time.Minute, 24*time.Hour)
	return NewService(users, tokens, jwt, mail, &log)
}

func verifiedUser(email, password string, role model.Role) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &model.User{
		Base:          model.Base{ID: uuid.New()},
		Email:         email,
		Role:          role,
		PasswordHash:  string(hash),
		EmailVerified: true,
	}
}

func TestSignupThenVerifyThenLogin(t *testing.T) {
	users := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	mail := &recordingEmail{}
	svc := newTestAuth(users, tokens, mail)
	ctx := context.Background()

	user, err := svc.Signup(ctx, &model.SignupRequest{
		Email:    "citizen@example.com",
		Password: "hunter2hunter2",
		Role:     model.RoleUser,
	})
	require.NoError(t, err)
	assert.False(t, user.EmailVerified)
	require.Len(t, mail.verifications, 1)

	// Login before verification is refused.
	_, _, err = svc.Login(ctx, &model.LoginRequest{Email: "citizen@example.com", Password: "hunter2hunter2"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuthFailure))

	require.NoError(t, svc.VerifyEmail(ctx, mail.verifications[0]))
	assert.Len(t, mail.welcomes, 1)

	pair, logged, err := svc.Login(ctx, &model.LoginRequest{Email: "citizen@example.com", Password: "hunter2hunter2"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	existing := verifiedUser("taken@example.com", "password123", model.RoleUser)
	svc := newTestAuth(newFakeUserRepo(existing), newFakeTokenRepo(), &recordingEmail{})

	_, err := svc.Signup(context.Background(), &model.SignupRequest{
		Email:    "taken@example.com",
		Password: "password123",
		Role:     model.RoleUser,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	user := verifiedUser("citizen@example.com", "correct-horse", model.RoleUser)
	svc := newTestAuth(newFakeUserRepo(user), newFakeTokenRepo(), &recordingEmail{})

	_, _, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "citizen@example.com",
		Password: "battery-staple",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuthFailure))
}

func TestLogoutBlacklistsToken(t *testing.T) {
	user := verifiedUser("citizen@example.com", "password123", model.RoleUser)
	tokens := newFakeTokenRepo()
	svc := newTestAuth(newFakeUserRepo(user), tokens, &recordingEmail{})
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, &model.LoginRequest{Email: "citizen@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, pair.AccessToken))

	_, err = svc.ValidateToken(ctx, pair.AccessToken)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAuthFailure))
}

func TestForceSignOutRevokesToken(t *testing.T) {
	user := verifiedUser("ghost@example.com", "password123", model.RoleUser)
	tokens := newFakeTokenRepo()
	svc := newTestAuth(newFakeUserRepo(user), tokens, &recordingEmail{})
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, &model.LoginRequest{Email: "ghost@example.com", Password: "password123"})
	require.NoError(t, err)

	svc.ForceSignOut(ctx, pair.AccessToken)

	_, err = svc.ValidateToken(ctx, pair.AccessToken)
	require.Error(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	user := verifiedUser("citizen@example.com", "old-password1", model.RoleUser)
	mail := &recordingEmail{}
	svc := newTestAuth(newFakeUserRepo(user), newFakeTokenRepo(), mail)
	ctx := context.Background()

	require.NoError(t, svc.ForgotPassword(ctx, "citizen@example.com"))
	require.Len(t, mail.resets, 1)

	require.NoError(t, svc.ResetPassword(ctx, mail.resets[0], "new-password1"))

	_, _, err := svc.Login(ctx, &model.LoginRequest{Email: "citizen@example.com", Password: "old-password1"})
	require.Error(t, err)
	_, _, err = svc.Login(ctx, &model.LoginRequest{Email: "citizen@example.com", Password: "new-password1"})
	require.NoError(t, err)

	// The reset token is single use.
	err = svc.ResetPassword(ctx, mail.resets[0], "another-password1")
	require.Error(t, err)
}

func TestForgotPasswordHidesUnknownAddresses(t *testing.T) {
	mail := &recordingEmail{}
	svc := newTestAuth(newFakeUserRepo(), newFakeTokenRepo(), mail)

	require.NoError(t, svc.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, mail.resets)
}

func TestRefreshTokenReResolvesRole(t *testing.T) {
	user := verifiedUser("clerk@example.com", "password123", model.RoleUser)
	users := newFakeUserRepo(user)
	svc := newTestAuth(users, newFakeTokenRepo(), &recordingEmail{})
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, &model.LoginRequest{Email: "clerk@example.com", Password: "password123"})
	require.NoError(t, err)

	user.Role = model.RoleEmployee
	fresh, err := svc.RefreshToken(ctx, pair.RefreshToken)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ctx, fresh.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleEmployee, claims.Role)
}

func TestRefreshTokenFailsWhenUserDeleted(t *testing.T) {
	user := verifiedUser("gone@example.com", "password123", model.RoleUser)
	users := newFakeUserRepo(user)
	svc := newTestAuth(users, newFakeTokenRepo(), &recordingEmail{})
	ctx := context.Background()

	pair, _, err := svc.Login(ctx, &model.LoginRequest{Email: "gone@example.com", Password: "password123"})
	require.NoError(t, err)

	delete(users.users, user.ID)
	_, err = svc.RefreshToken(ctx, pair.RefreshToken)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrRoleNotFound))
}

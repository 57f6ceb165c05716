package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Bos243/appointment-booking-app/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository handles the users collection: written once at signup,
	// read by id for role resolution.
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdateEmailVerified(ctx context.Context, id uuid.UUID, verified bool) error
		UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
		List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
	}

	// AppointmentRepository handles the appointments collection. Writes are
	// single-document partial updates; there is no multi-row transaction and
	// no optimistic-concurrency check (last write wins).
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		SetStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, employeeDone bool) error
		SetEmployeeDone(ctx context.Context, id uuid.UUID, done bool) error
		SetEmployee(ctx context.Context, id uuid.UUID, employeeID *uuid.UUID) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	}

	// TokenRepository stores verification and reset tokens and the sign-out
	// blacklist for forced session termination.
	TokenRepository interface {
		StoreVerificationToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error
		ValidateVerificationToken(ctx context.Context, token string) (uuid.UUID, error)
		InvalidateVerificationToken(ctx context.Context, token string) error
		StoreResetToken(ctx context.Context, userID uuid.UUID, token string, expiry time.Time) error
		ValidateResetToken(ctx context.Context, token string) (uuid.UUID, error)
		InvalidateResetToken(ctx context.Context, token string) error
		BlacklistToken(ctx context.Context, token string, expiry time.Time) error
		IsBlacklisted(ctx context.Context, token string) (bool, error)
	}
)

// Package session decides where an authenticated principal lands. The
// decision is a pure function of the identity and the stored user record;
// it never mutates appointments.
package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Bos243/appointment-booking-app/internal/model"
	"github.com/Bos243/appointment-booking-app/internal/repository"
	"github.com/Bos243/appointment-booking-app/pkg/errors"
)

type RouteName string

const (
	RouteLogin             RouteName = "login"
	RouteVerifyEmail       RouteName = "verify_email"
	RouteUserDashboard     RouteName = "user_dashboard"
	RouteEmployeeDashboard RouteName = "employee_dashboard"
	RouteAdminDashboard    RouteName = "admin_dashboard"
)

// Route is the destination for a session plus the resolved user record,
// when one exists.
type Route struct {
	Name RouteName   `json:"route"`
	User *model.User `json:"user,omitempty"`
}

// Terminator revokes the current session token. Routing calls it when the
// principal has no usable role record, so a broken session cannot linger.
type Terminator interface {
	ForceSignOut(ctx context.Context, token string)
}

type Service struct {
	users      repository.UserRepository
	terminator Terminator
	logger     *zerolog.Logger
}

func NewService(users repository.UserRepository, terminator Terminator, logger *zerolog.Logger) *Service {
	return &Service{users: users, terminator: terminator, logger: logger}
}

// Resolve routes a session. A nil claims means no authenticated principal.
// A principal whose user record is missing or carries no known role is
// force-signed-out and reported as RoleNotFound.
func (s *Service) Resolve(ctx context.Context, claims *model.TokenClaims, token string) (*Route, error) {
	if claims == nil {
		return &Route{Name: RouteLogin}, nil
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if errors.IsCode(err, errors.ErrNotFound) {
			s.logger.Warn().Stringer("user_id", claims.UserID).Msg("authenticated principal has no user record")
			s.terminator.ForceSignOut(ctx, token)
			return nil, errors.RoleNotFound(err)
		}
		return nil, err
	}

	// Verification gates every dashboard, whatever the role says.
	if !user.EmailVerified {
		return &Route{Name: RouteVerifyEmail, User: user}, nil
	}

	switch user.Role {
	case model.RoleUser:
		return &Route{Name: RouteUserDashboard, User: user}, nil
	case model.RoleEmployee:
		return &Route{Name: RouteEmployeeDashboard, User: user}, nil
	case model.RoleAdmin:
		return &Route{Name: RouteAdminDashboard, User: user}, nil
	default:
		s.logger.Warn().Stringer("user_id", user.ID).Str("role", string(user.Role)).Msg("user record carries unknown role")
		s.terminator.ForceSignOut(ctx, token)
		return nil, errors.RoleNotFound(nil)
	}
}

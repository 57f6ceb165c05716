package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/Bos243/appointment-booking-app/internal/handler"
	"github.com/Bos243/appointment-booking-app/internal/model"
	"github.com/Bos243/appointment-booking-app/internal/repository"
	authsvc "github.com/Bos243/appointment-booking-app/internal/service/auth"
	"github.com/Bos243/appointment-booking-app/pkg/errors"
)

const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextUserRole  = "userRole"
	ContextToken     = "token"
)

type AuthMiddleware struct {
	auth  *authsvc.Service
	users repository.UserRepository
	roles *gocache.Cache
}

func NewAuthMiddleware(auth *authsvc.Service, users repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		auth:  auth,
		users: users,
		// Role records change rarely; a short TTL keeps revocations timely.
		roles: gocache.New(time.Minute, 5*time.Minute),
	}
}

// Authenticate validates the bearer token and resolves the caller's role
// against the user store. The role in the token is not trusted on its own:
// a principal whose user record disappeared is signed out on the spot.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("missing or malformed authorization header"))
			return
		}

		claims, err := m.auth.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			return
		}

		user, err := m.resolveUser(c, claims.UserID)
		if err != nil {
			if errors.IsCode(err, errors.ErrNotFound) {
				m.auth.ForceSignOut(c.Request.Context(), token)
				c.AbortWithStatusJSON(http.StatusUnauthorized, handler.NewErrorResponse("no role record for principal"))
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to resolve user"))
			return
		}

		c.Set(ContextUserID, user.ID.String())
		c.Set(ContextUserEmail, user.Email)
		c.Set(ContextUserRole, string(user.Role))
		c.Set(ContextToken, token)
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. It runs after
// Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		current := model.Role(c.GetString(ContextUserRole))
		for _, role := range roles {
			if current == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, handler.NewErrorResponse("insufficient role"))
	}
}

func (m *AuthMiddleware) resolveUser(c *gin.Context, id uuid.UUID) (*model.User, error) {
	if cached, ok := m.roles.Get(id.String()); ok {
		return cached.(*model.User), nil
	}
	user, err := m.users.Get(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	m.roles.SetDefault(id.String(), user)
	return user, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// CurrentActor extracts the authenticated principal set by Authenticate.
func CurrentActor(c *gin.Context) (uuid.UUID, model.Role, error) {
	id, err := uuid.Parse(c.GetString(ContextUserID))
	if err != nil {
		return uuid.Nil, "", errors.Unauthorized(err)
	}
	return id, model.Role(c.GetString(ContextUserRole)), nil
}

package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelfshare/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUser     = "auth_user"
	ContextKeyUserID   = "auth_user_id"
	ContextKeyEmail    = "auth_email"
	ContextKeyRole     = "auth_role"
	ContextKeyAuthType = "auth_type"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeToken   AuthType = "token"
	AuthTypeJWT     AuthType = "jwt"
)

// Middleware identifies the caller of each request.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	jwt            *JWTIssuer
}

// NewMiddleware creates a new authentication middleware. sessionManager and
// jwt may be nil to disable those credentials.
func NewMiddleware(service *Service, sessionManager *SessionManager, jwt *JWTIssuer) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		jwt:            jwt,
	}
}

// Handler resolves the caller from a bearer credential or the session cookie.
// It never rejects a request; RequireAuth does that for protected groups.
// Only approved accounts are attached to the context.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := BearerToken(c); ok {
			if user, authType := m.tryBearer(token); user != nil {
				setUserContext(c, user, authType)
			}
			c.Next()
			return
		}

		if user := m.trySession(c); user != nil {
			setUserContext(c, user, AuthTypeSession)
		}
		c.Next()
	}
}

// BearerToken extracts the credential of an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func (m *Middleware) tryBearer(token string) (*entities.User, AuthType) {
	if IsAPIToken(token) {
		user, err := m.service.ValidateToken(token)
		if err != nil || user.Status != entities.UserStatusApproved {
			return nil, AuthTypeNone
		}
		return user, AuthTypeToken
	}
	if m.jwt == nil {
		return nil, AuthTypeNone
	}
	id, err := m.jwt.Verify(token)
	if err != nil {
		return nil, AuthTypeNone
	}
	user, err := m.service.GetUserByID(id)
	if err != nil || user.Status != entities.UserStatusApproved {
		return nil, AuthTypeNone
	}
	return user, AuthTypeJWT
}

func (m *Middleware) trySession(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}
	userID := m.sessionManager.UserID(c.Request.Context())
	if userID == 0 {
		return nil
	}
	user, err := m.service.GetUserByID(userID)
	if err != nil || user.Status != entities.UserStatusApproved {
		return nil
	}
	return user
}

func setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyEmail, user.Email)
	c.Set(ContextKeyRole, user.Role)
	c.Set(ContextKeyAuthType, authType)
}

// RequireAuth rejects requests without an authenticated caller.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
				"code":  "unauthorized",
			})
			return
		}
		c.Next()
	}
}

// RequireRole returns a middleware that requires one of roles.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	roleSet := make(map[entities.UserRole]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if !roleSet[GetUserRole(c)] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient permissions",
				"code":  "forbidden",
			})
			return
		}
		c.Next()
	}
}

// GetUser returns the authenticated user, or nil.
func GetUser(c *gin.Context) *entities.User {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID retrieves the authenticated user's ID from the context, 0 when anonymous.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ContextKeyEmail)
}

// GetUserRole retrieves the authenticated user's role from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// IsAuthenticated returns true if the request is authenticated.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != 0
}

package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/shelfshare/internal/auth"
	"github.com/mrlokans/shelfshare/internal/entities"
)

// AuthController serves registration, login and credential management.
type AuthController struct {
	service     AccountService
	sessions    *auth.SessionManager
	jwt         *auth.JWTIssuer
	rateLimiter *auth.RateLimiter
	auditor     AuthAuditor
}

// NewAuthController wires the account routes. sessions, jwt, rateLimiter and
// auditor are optional.
func NewAuthController(service AccountService, sessions *auth.SessionManager, jwt *auth.JWTIssuer,
	rateLimiter *auth.RateLimiter, auditor AuthAuditor) *AuthController {
	return &AuthController{
		service:     service,
		sessions:    sessions,
		jwt:         jwt,
		rateLimiter: rateLimiter,
		auditor:     auditor,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name string `json:"name"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	User    *entities.User `json:"user"`
	Message string         `json:"message,omitempty"`
}

// TokenResponse carries a freshly issued credential. The plaintext is only shown once.
type TokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Register handles POST /api/auth/register.
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := ac.service.Register(req.Email, req.Name, req.Password)
	if err != nil {
		respondServiceError(c, err, "register")
		return
	}
	ac.audit(c, user.ID, "register", true)

	if user.Status == entities.UserStatusPending {
		c.JSON(http.StatusAccepted, AuthResponse{User: user, Message: "signup is waiting for admin approval"})
		return
	}
	respondCreated(c, AuthResponse{User: user})
}

// Login handles POST /api/auth/login. The per-IP limiter counts failed
// passwords only; pending and denied accounts had the right password.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	clientIP := c.ClientIP()

	user, err := ac.service.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) && ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP)
		}
		ac.audit(c, 0, "login", false)
		respondServiceError(c, err, "login")
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP)
	}
	if ac.sessions != nil {
		if err := ac.sessions.Login(c.Request.Context(), user); err != nil {
			respondInternalError(c, err, "create session")
			return
		}
	}
	ac.audit(c, user.ID, "login", true)
	c.JSON(http.StatusOK, AuthResponse{User: user})
}

// Logout handles POST /api/auth/logout.
func (ac *AuthController) Logout(c *gin.Context) {
	if ac.sessions != nil && auth.GetAuthType(c) == auth.AuthTypeSession {
		if err := ac.sessions.Logout(c.Request.Context()); err != nil {
			logrus.WithError(err).Warn("failed to destroy session")
		}
	}
	ac.audit(c, currentUserID(c), "logout", true)
	respondSuccess(c, "logged out")
}

// CSRF handles GET /api/auth/csrf, handing browsers the token to echo back.
func (ac *AuthController) CSRF(c *gin.Context) {
	token := auth.GetCSRFToken(c)
	c.Header(auth.CSRFTokenHeader, token)
	c.JSON(http.StatusOK, gin.H{"csrf_token": token})
}

// Me handles GET /api/auth/me.
func (ac *AuthController) Me(c *gin.Context) {
	user := auth.GetUser(c)
	if user == nil {
		respondNotFound(c, "user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PATCH /api/auth/me.
func (ac *AuthController) UpdateMe(c *gin.Context) {
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := ac.service.UpdateProfile(currentUserID(c), req.Name)
	if err != nil {
		respondServiceError(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword handles POST /api/auth/password.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req passwordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ac.service.ChangePassword(currentUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		ac.audit(c, currentUserID(c), "password_change", false)
		respondServiceError(c, err, "change password")
		return
	}
	ac.audit(c, currentUserID(c), "password_change", true)
	respondSuccess(c, "password updated")
}

// GenerateToken handles POST /api/auth/token, replacing any previous token.
func (ac *AuthController) GenerateToken(c *gin.Context) {
	token, err := ac.service.GenerateToken(currentUserID(c))
	if err != nil {
		respondServiceError(c, err, "generate token")
		return
	}
	ac.audit(c, currentUserID(c), "token_generate", true)
	respondCreated(c, TokenResponse{Token: token})
}

// RevokeToken handles DELETE /api/auth/token.
func (ac *AuthController) RevokeToken(c *gin.Context) {
	if err := ac.service.RevokeToken(currentUserID(c)); err != nil {
		respondServiceError(c, err, "revoke token")
		return
	}
	ac.audit(c, currentUserID(c), "token_revoke", true)
	respondSuccess(c, "token revoked")
}

// IssueJWT handles POST /api/auth/jwt.
func (ac *AuthController) IssueJWT(c *gin.Context) {
	if ac.jwt == nil {
		respondNotFound(c, "jwt issuer")
		return
	}
	user := auth.GetUser(c)
	if user == nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	token, expiresAt, err := ac.jwt.Issue(user)
	if err != nil {
		respondInternalError(c, err, "issue jwt")
		return
	}
	respondCreated(c, TokenResponse{Token: token, ExpiresAt: &expiresAt})
}

func (ac *AuthController) audit(c *gin.Context, userID uint, action string, success bool) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), success)
}

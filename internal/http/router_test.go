package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/shelfshare/internal/auth"
	"github.com/mrlokans/shelfshare/internal/config"
	"github.com/mrlokans/shelfshare/internal/database/dbtest"
	"github.com/mrlokans/shelfshare/internal/entities"
	"github.com/mrlokans/shelfshare/internal/services"
)

const testPassword = "correct horse battery"

type fakeLocations struct {
	LocationManager
	created []string
}

func (f *fakeLocations) List(userID uint) ([]entities.Location, error) {
	return []entities.Location{{ID: 1, OwnerID: userID, Name: "Home"}}, nil
}

func (f *fakeLocations) Create(userID uint, name, _ string) (*entities.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", services.ErrInvalidInput)
	}
	f.created = append(f.created, name)
	return &entities.Location{ID: uint(len(f.created)), OwnerID: userID, Name: name}, nil
}

func (f *fakeLocations) Get(_, locationID uint) (*entities.Location, error) {
	return nil, fmt.Errorf("location %w", services.ErrNotFound)
}

type testServer struct {
	router    *gin.Engine
	auth      *auth.Service
	locations *fakeLocations
}

func newTestServer(t *testing.T, mutate func(*RouterConfig)) *testServer {
	t.Helper()
	db := dbtest.Open(t)
	authService := auth.NewService(db, config.Auth{BcryptCost: bcrypt.MinCost}, nil, nil)
	locations := &fakeLocations{}

	cfg := RouterConfig{
		Version:        "test",
		AuthService:    authService,
		AuthMiddleware: auth.NewMiddleware(authService, nil, nil),
		Locations:      locations,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return &testServer{router: NewRouter(cfg), auth: authService, locations: locations}
}

// userToken registers an account and returns an API token for it. The first
// account of a database is an admin.
func (s *testServer) userToken(t *testing.T, email string) string {
	t.Helper()
	user, err := s.auth.Register(email, "Reader", testPassword)
	require.NoError(t, err)
	token, err := s.auth.GenerateToken(user.ID)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func TestRouter_PublicRoutes(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do("GET", "/ping", "", nil)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestRouter_ProtectedRoutesNeedCredentials(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do("GET", "/api/locations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do("GET", "/api/locations", "ss_not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.userToken(t, "owner@example.com")
	w = s.do("GET", "/api/locations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data  []entities.Location `json:"data"`
		Total int                 `json:"total"`
	}
	decodeJSON(t, w, &body)
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "Home", body.Data[0].Name)
}

func TestRouter_ServiceErrorsMapToStatusCodes(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.userToken(t, "owner@example.com")

	w := s.do("POST", "/api/locations", token, map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("POST", "/api/locations", token, map[string]string{"name": "Cabin"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"Cabin"}, s.locations.created)

	w = s.do("GET", "/api/locations/42", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do("GET", "/api/locations/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_AdminRoutesNeedAdminRole(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) {
		cfg.Admin = &fakeAdmin{}
	})
	adminToken := s.userToken(t, "admin@example.com")
	userToken := s.userToken(t, "reader@example.com")

	w := s.do("GET", "/api/admin/settings", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do("GET", "/api/admin/settings", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"signup_approval_required":true}`, w.Body.String())
}

func TestRouter_RegisterAndLogin(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do("POST", "/api/auth/register", "", map[string]string{
		"email": "first@example.com", "name": "First", "password": testPassword,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var registered AuthResponse
	decodeJSON(t, w, &registered)
	assert.Equal(t, entities.RoleAdmin, registered.User.Role)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do("POST", "/api/auth/register", "", map[string]string{
		"email": "FIRST@example.com", "name": "Again", "password": testPassword,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do("POST", "/api/auth/register", "", map[string]string{
		"email": "short@example.com", "name": "Short", "password": "tiny",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("POST", "/api/auth/login", "", map[string]string{
		"email": "first@example.com", "password": testPassword,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do("POST", "/api/auth/login", "", map[string]string{
		"email": "first@example.com", "password": "wrong password!!",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var errBody ErrorResponse
	decodeJSON(t, w, &errBody)
	assert.Equal(t, "unauthorized", errBody.Code)
}

func TestRouter_LoginRateLimitedPerIP(t *testing.T) {
	limiter := auth.NewRateLimiter(auth.RateLimitConfig{MaxAttempts: 2, LockoutDuration: time.Minute})
	t.Cleanup(limiter.Stop)
	s := newTestServer(t, func(cfg *RouterConfig) { cfg.LoginLimiter = limiter })
	s.userToken(t, "first@example.com")

	bad := map[string]string{"email": "first@example.com", "password": "not the password"}
	assert.Equal(t, http.StatusUnauthorized, s.do("POST", "/api/auth/login", "", bad).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do("POST", "/api/auth/login", "", bad).Code)

	good := map[string]string{"email": "first@example.com", "password": testPassword}
	w := s.do("POST", "/api/auth/login", "", good)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRouter_PendingSignupCannotLogin(t *testing.T) {
	db := dbtest.Open(t)
	authService := auth.NewService(db, config.Auth{BcryptCost: bcrypt.MinCost}, approvalRequired{}, nil)
	router := NewRouter(RouterConfig{
		AuthService:    authService,
		AuthMiddleware: auth.NewMiddleware(authService, nil, nil),
	})
	s := &testServer{router: router, auth: authService}

	s.userToken(t, "admin@example.com")
	w := s.do("POST", "/api/auth/register", "", map[string]string{
		"email": "later@example.com", "name": "Later", "password": testPassword,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = s.do("POST", "/api/auth/login", "", map[string]string{
		"email": "later@example.com", "password": testPassword,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	var body ErrorResponse
	decodeJSON(t, w, &body)
	assert.Equal(t, "signup_pending", body.Code)
}

func TestRouter_CSRF(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) {
		cfg.CSRFSecret = []byte("0123456789abcdef0123456789abcdef")
	})
	register := map[string]string{"email": "first@example.com", "name": "First", "password": testPassword}

	t.Run("rejects cookie-less mutation without token", func(t *testing.T) {
		w := s.do("POST", "/api/auth/register", "", register)
		assert.Equal(t, http.StatusForbidden, w.Code)
		var body ErrorResponse
		decodeJSON(t, w, &body)
		assert.Equal(t, "csrf_failed", body.Code)
	})

	t.Run("accepts the token handed out by the csrf route", func(t *testing.T) {
		w := s.do("GET", "/api/auth/csrf", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var tokenBody struct {
			Token string `json:"csrf_token"`
		}
		decodeJSON(t, w, &tokenBody)
		require.NotEmpty(t, tokenBody.Token)

		body, _ := json.Marshal(register)
		req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(auth.CSRFTokenHeader, tokenBody.Token)
		for _, cookie := range w.Result().Cookies() {
			req.AddCookie(cookie)
		}
		w = httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("bearer callers skip the check", func(t *testing.T) {
		token := s.userToken(t, "bearer@example.com")
		w := s.do("POST", "/api/locations", token, map[string]string{"name": "Office"})
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestRouter_IssueJWTAndUseIt(t *testing.T) {
	issuer, err := auth.NewJWTIssuer("jwt-secret-for-tests", time.Minute)
	require.NoError(t, err)
	s := newTestServer(t, func(cfg *RouterConfig) {
		cfg.JWTIssuer = issuer
		cfg.AuthMiddleware = auth.NewMiddleware(cfg.AuthService.(*auth.Service), nil, issuer)
	})
	token := s.userToken(t, "owner@example.com")

	w := s.do("POST", "/api/auth/jwt", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var issued TokenResponse
	decodeJSON(t, w, &issued)
	require.NotEmpty(t, issued.Token)
	require.NotNil(t, issued.ExpiresAt)

	w = s.do("GET", "/api/auth/me", issued.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me entities.User
	decodeJSON(t, w, &me)
	assert.Equal(t, "owner@example.com", me.Email)
}

type approvalRequired struct{}

func (approvalRequired) RequireApproval() (bool, error) { return true, nil }

type fakeAdmin struct {
	AdminManager
}

func (fakeAdmin) Settings() (*services.AdminSettings, error) {
	return &services.AdminSettings{SignupApprovalRequired: true}, nil
}

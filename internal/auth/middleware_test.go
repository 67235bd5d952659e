package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/shelfshare/internal/config"
	"github.com/mrlokans/shelfshare/internal/entities"
)

type middlewareFixture struct {
	router  *gin.Engine
	service *Service
	jwt     *JWTIssuer
	db      *gorm.DB
}

func setupMiddleware(t *testing.T) *middlewareFixture {
	t.Helper()
	sm, db := setupSessionManager(t, config.Auth{})
	svc := NewService(db, config.Auth{BcryptCost: 4}, nil, nil)
	issuer, err := NewJWTIssuer("jwt-secret", time.Minute)
	require.NoError(t, err)
	mw := NewMiddleware(svc, sm, issuer)

	router := gin.New()
	router.Use(sm.SessionLoadSave(), mw.Handler())
	router.GET("/public", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "auth": GetAuthType(c)})
	})
	protected := router.Group("/api", mw.RequireAuth())
	protected.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "email": GetEmail(c), "auth": GetAuthType(c)})
	})
	protected.GET("/admin", mw.RequireRole(entities.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.POST("/login/:id", func(c *gin.Context) {
		user, err := svc.GetUserByID(1)
		require.NoError(t, err)
		require.NoError(t, sm.Login(c.Request.Context(), user))
		c.Status(http.StatusOK)
	})

	return &middlewareFixture{router: router, service: svc, jwt: issuer, db: db}
}

func (f *middlewareFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func bearer(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestMiddleware_AnonymousRequests(t *testing.T) {
	f := setupMiddleware(t)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user_id":0,"auth":"none"}`, rr.Body.String())

	rr = f.do(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"unauthorized"`)
}

func TestMiddleware_APIToken(t *testing.T) {
	f := setupMiddleware(t)
	user, err := f.service.Register("admin@example.com", "Admin", testPassword)
	require.NoError(t, err)
	token, err := f.service.GenerateToken(user.ID)
	require.NoError(t, err)

	rr := f.do(bearer("/api/me", token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user_id":1,"email":"admin@example.com","auth":"token"}`, rr.Body.String())

	rr = f.do(bearer("/api/me", APITokenPrefix+"bogus"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddleware_JWT(t *testing.T) {
	f := setupMiddleware(t)
	user, err := f.service.Register("admin@example.com", "Admin", testPassword)
	require.NoError(t, err)
	token, _, err := f.jwt.Issue(user)
	require.NoError(t, err)

	rr := f.do(bearer("/api/me", token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"auth":"jwt"`)

	rr = f.do(bearer("/api/me", "not.a.jwt"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMiddleware_MalformedAuthorizationHeader(t *testing.T) {
	f := setupMiddleware(t)
	for _, header := range []string{"Basic abc", "Bearer", "Bearer ", "token"} {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, http.StatusUnauthorized, f.do(req).Code, header)
	}
}

func TestMiddleware_Session(t *testing.T) {
	f := setupMiddleware(t)
	_, err := f.service.Register("admin@example.com", "Admin", testPassword)
	require.NoError(t, err)

	rr := f.do(httptest.NewRequest(http.MethodPost, "/login/1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookies[0])
	rr = f.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"auth":"session"`)
}

func TestMiddleware_IgnoresUnapprovedUsers(t *testing.T) {
	f := setupMiddleware(t)
	user, err := f.service.Register("admin@example.com", "Admin", testPassword)
	require.NoError(t, err)
	token, err := f.service.GenerateToken(user.ID)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(user).Update("status", entities.UserStatusDenied).Error)

	assert.Equal(t, http.StatusUnauthorized, f.do(bearer("/api/me", token)).Code)
}

func TestMiddleware_RequireRole(t *testing.T) {
	f := setupMiddleware(t)
	admin, err := f.service.Register("admin@example.com", "Admin", testPassword)
	require.NoError(t, err)
	member, err := f.service.Register("member@example.com", "Member", testPassword)
	require.NoError(t, err)

	adminToken, _, _ := f.jwt.Issue(admin)
	memberToken, _, _ := f.jwt.Issue(member)

	assert.Equal(t, http.StatusNoContent, f.do(bearer("/api/admin", adminToken)).Code)
	rr := f.do(bearer("/api/admin", memberToken))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"forbidden"`)
}

func TestContextHelpers_Anonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Zero(t, GetUserID(c))
	assert.Nil(t, GetUser(c))
	assert.Empty(t, GetEmail(c))
	assert.Empty(t, GetUserRole(c))
	assert.Equal(t, AuthTypeNone, GetAuthType(c))
	assert.False(t, IsAuthenticated(c))
}

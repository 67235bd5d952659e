package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var csrfSecret = []byte("test-secret-key-32-bytes-long!!!")

func csrfRouter(authType AuthType) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if authType != AuthTypeNone {
			c.Set(ContextKeyAuthType, authType)
		}
		c.Next()
	})
	router.Use(CSRFMiddleware(csrfSecret, false, []string{"http://ui.example.com"}))
	router.GET("/api/auth/csrf", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"csrf_token": GetCSRFToken(c)})
	})
	router.POST("/api/things", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return router
}

func TestCSRFMiddleware_BlocksPOSTWithoutToken(t *testing.T) {
	rr := httptest.NewRecorder()
	csrfRouter(AuthTypeNone).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/things", nil))

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t, `{"error":"CSRF token invalid or missing","code":"csrf_failed"}`, rr.Body.String())
}

func TestCSRFMiddleware_SkipsBearerCallers(t *testing.T) {
	for _, authType := range []AuthType{AuthTypeToken, AuthTypeJWT} {
		rr := httptest.NewRecorder()
		csrfRouter(authType).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/things", nil))
		assert.Equal(t, http.StatusCreated, rr.Code, authType)
	}
}

func TestCSRFMiddleware_SessionCallersStillChecked(t *testing.T) {
	rr := httptest.NewRecorder()
	csrfRouter(AuthTypeSession).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/things", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCSRFMiddleware_TokenRoundTrip(t *testing.T) {
	router := csrfRouter(AuthTypeNone)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/auth/csrf", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Token string `json:"csrf_token"`
	}
	require.NoError(t, decodeJSON(rr, &body))
	require.NotEmpty(t, body.Token)

	req := httptest.NewRequest(http.MethodPost, "/api/things", nil)
	req.Header.Set(CSRFTokenHeader, body.Token)
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestGetCSRFToken_Empty(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetCSRFToken(c))
}

func TestOriginHosts(t *testing.T) {
	assert.Equal(t, []string{"ui.example.com", "localhost:5173"},
		originHosts([]string{"https://ui.example.com", "http://localhost:5173", "not a url", ""}))
}

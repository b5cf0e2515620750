package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/vlog-interaction-service/pkg/jwt"
)

func newRouter(t *testing.T) (*gin.Engine, *jwt.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v, err := jwt.NewVerifier("secret", "")
	require.NoError(t, err)
	m := NewAuthMiddleware(v)

	r := gin.New()
	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "admin": HasRole(c, "admin")})
	}
	r.GET("/required", m.RequireAuth(), whoami)
	r.GET("/optional", m.OptionalAuth(), whoami)
	return r, v
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r, v := newRouter(t)

	w := do(r, "/required", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/required", "bogus")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := v.Sign("u1", "alice", []string{"admin"}, time.Minute)
	require.NoError(t, err)
	w = do(r, "/required", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u1","admin":true}`, w.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	r, v := newRouter(t)

	w := do(r, "/optional", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"","admin":false}`, w.Body.String())

	w = do(r, "/optional", "bogus")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"","admin":false}`, w.Body.String())

	token, err := v.Sign("u2", "bob", nil, time.Minute)
	require.NoError(t, err)
	w = do(r, "/optional", token)
	assert.JSONEq(t, `{"user_id":"u2","admin":false}`, w.Body.String())
}

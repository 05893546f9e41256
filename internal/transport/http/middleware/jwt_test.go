package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdesk/internal/pkg/jwtutil"
)

const testSecret = "middleware-test-secret"

func newGuardedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", AuthJWT(testSecret), func(c *gin.Context) {
		userID := c.GetUint(ContextUserIDKey)
		c.String(http.StatusOK, fmt.Sprintf("%d:%s", userID, c.GetString(ContextUsernameKey)))
	})
	return router
}

func requestWithAuth(t *testing.T, router *gin.Engine, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthJWTAcceptsValidToken(t *testing.T) {
	router := newGuardedRouter()

	token, err := jwtutil.GenerateToken(testSecret, time.Hour, 42, "alice")
	require.NoError(t, err)

	rec := requestWithAuth(t, router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42:alice", rec.Body.String())
}

func TestAuthJWTSchemeIsCaseInsensitive(t *testing.T) {
	router := newGuardedRouter()

	token, err := jwtutil.GenerateToken(testSecret, time.Hour, 7, "bob")
	require.NoError(t, err)

	rec := requestWithAuth(t, router, "bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthJWTRejectsBadRequests(t *testing.T) {
	router := newGuardedRouter()

	expired, err := jwtutil.GenerateToken(testSecret, -time.Minute, 42, "alice")
	require.NoError(t, err)

	wrongSecret, err := jwtutil.GenerateToken("another-secret", time.Hour, 42, "alice")
	require.NoError(t, err)

	cases := []struct {
		name          string
		authorization string
	}{
		{"missing header", ""},
		{"no scheme", "token-without-scheme"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer   "},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong secret", "Bearer " + wrongSecret},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := requestWithAuth(t, router, tc.authorization)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

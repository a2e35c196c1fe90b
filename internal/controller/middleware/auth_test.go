package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, role string, ttl time.Duration) string {
	t.Helper()
	claims := AdminClaims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl))},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func adminEngine(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AdminAuth(secret), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAdminAuth(t *testing.T) {
	const secret = "s3cret"

	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{"no header", secret, "", http.StatusUnauthorized},
		{"not bearer", secret, "Basic abc", http.StatusUnauthorized},
		{"garbage token", secret, "Bearer abc", http.StatusUnauthorized},
		{"wrong secret", secret, "Bearer " + signToken(t, "other", RoleAdmin, time.Hour), http.StatusUnauthorized},
		{"expired", secret, "Bearer " + signToken(t, secret, RoleAdmin, -time.Hour), http.StatusUnauthorized},
		{"not admin", secret, "Bearer " + signToken(t, secret, "therapist", time.Hour), http.StatusForbidden},
		{"admin", secret, "Bearer " + signToken(t, secret, RoleAdmin, time.Hour), http.StatusNoContent},
		{"disabled", "", "Bearer " + signToken(t, secret, RoleAdmin, time.Hour), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			adminEngine(tt.secret).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

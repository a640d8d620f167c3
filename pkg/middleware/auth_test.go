package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/auth"
)

func newAuthRouter(m *auth.JWTManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/me", AuthMiddleware(m), RequireRole(auth.RoleIssuer), func(c *gin.Context) {
		email, _ := GetIssuerEmail(c)
		c.String(http.StatusOK, email)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	m := auth.NewJWTManager("secret", time.Minute, time.Hour)
	r := newAuthRouter(m)

	issuerToken, err := m.GenerateAccessToken("kim@x.com", "Kim", auth.RoleIssuer)
	require.NoError(t, err)
	adminToken, err := m.GenerateAccessToken("root@x.com", "Root", auth.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + adminToken, http.StatusForbidden},
		{"issuer", "Bearer " + issuerToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
			if tt.status == http.StatusOK {
				assert.Equal(t, "kim@x.com", w.Body.String())
			}
		})
	}
}

package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/response"
)

const claimsKey = "auth_claims"

// AuthMiddleware requires a valid bearer token and stores its claims on the context.
func AuthMiddleware(jwtManager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		claims, err := jwtManager.ValidateToken(token)
		if err != nil {
			detail := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				detail = "token expired"
			}
			response.Unauthorized(c, detail)
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose token carries none of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			response.Unauthorized(c, "unauthorized")
			c.Abort()
			return
		}
		for _, role := range roles {
			if strings.EqualFold(claims.Role, role) {
				c.Next()
				return
			}
		}
		response.Fail(c, http.StatusForbidden, "forbidden")
		c.Abort()
	}
}

// GetClaims returns the claims set by AuthMiddleware.
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

// GetIssuerEmail returns the authenticated issuer email.
func GetIssuerEmail(c *gin.Context) (string, bool) {
	claims, ok := GetClaims(c)
	if !ok || claims.Email == "" {
		return "", false
	}
	return claims.Email, true
}

func bearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

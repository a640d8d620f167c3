package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

func TestError_MapsDomainErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", domain.NewNotFoundError("Coupon", "7"), http.StatusNotFound, `{"detail":"Coupon 7 not found"}`},
		{"conflict", domain.NewConflictError("issuer already exists"), http.StatusConflict, `{"detail":"issuer already exists"}`},
		{"validation", domain.NewValidationError("name is required"), http.StatusBadRequest, `{"detail":"name is required"}`},
		{"unauthorized", domain.NewUnauthorizedError("invalid issuer credentials"), http.StatusUnauthorized, `{"detail":"invalid issuer credentials"}`},
		{"wrapped", fmt.Errorf("load: %w", domain.NewNotFoundError("Issuer", "a@x.com")), http.StatusNotFound, `{"detail":"Issuer a@x.com not found"}`},
		{"plain", errors.New("pq: connection reset"), http.StatusInternalServerError, `{"detail":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			Error(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

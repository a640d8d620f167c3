// Package response writes JSON bodies in the shape the coupon tracker frontend consumes.
//
// Successful payloads are written as-is. Failures are written as
// {"detail": "..."} so clients can surface the most specific message.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/domain"
)

// ErrorBody is the body of every non-2xx response.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// MessageBody is returned by operations without a resource payload.
type MessageBody struct {
	Message string `json:"message"`
}

// Success writes a 200 with the payload.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created writes a 201 with the payload.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Message writes a 200 with {"message": msg}.
func Message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, MessageBody{Message: msg})
}

// BadRequest writes a 400 with the detail.
func BadRequest(c *gin.Context, detail string) {
	Fail(c, http.StatusBadRequest, detail)
}

// Unauthorized writes a 401 with the detail.
func Unauthorized(c *gin.Context, detail string) {
	Fail(c, http.StatusUnauthorized, detail)
}

// Fail writes the status with the detail.
func Fail(c *gin.Context, status int, detail string) {
	c.JSON(status, ErrorBody{Detail: detail})
}

// Error maps err onto an HTTP status. Errors that are not DomainErrors are
// reported as 500 without leaking their text.
func Error(c *gin.Context, err error) {
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		Fail(c, http.StatusInternalServerError, "internal server error")
		return
	}

	switch {
	case errors.Is(domErr, domain.ErrNotFound):
		Fail(c, http.StatusNotFound, domErr.Message)
	case errors.Is(domErr, domain.ErrConflict):
		Fail(c, http.StatusConflict, domErr.Message)
	case errors.Is(domErr, domain.ErrValidation):
		Fail(c, http.StatusBadRequest, domErr.Message)
	case errors.Is(domErr, domain.ErrUnauthorized):
		Fail(c, http.StatusUnauthorized, domErr.Message)
	default:
		Fail(c, http.StatusInternalServerError, domErr.Message)
	}
}

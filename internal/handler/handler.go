// Package handler provides the HTTP handlers for the Kigogo API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"kigogo-backend/internal/model"
	"kigogo-backend/internal/service"
)

const msgInvalidPayload = "invalid request payload"

// AccountService is the subset of service.AccountService used by the handlers.
type AccountService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.RegisterResult, error)
	Login(ctx context.Context, phone, password string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
}

// WithdrawalService is the subset of service.WithdrawalService used by the handlers.
type WithdrawalService interface {
	Withdraw(ctx context.Context, in service.WithdrawInput) (*model.User, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// messageResponse is the body of most non-2xx responses.
type messageResponse struct {
	Message string `json:"message"`
}

// statusFor maps a service error to an HTTP status and the message shown to
// the client. Storage failures never expose their cause.
func statusFor(err error) (int, string) {
	var (
		validation *service.ValidationError
		conflict   *service.ConflictError
		auth       *service.AuthError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Message
	case errors.As(err, &conflict):
		return http.StatusBadRequest, conflict.Message
	case errors.As(err, &auth):
		return http.StatusUnauthorized, auth.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// writeError responds with {message} and logs unexpected failures.
func writeError(c echo.Context, err error) error {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("path", c.Path()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("Request failed")
	}
	return c.JSON(status, messageResponse{Message: msg})
}

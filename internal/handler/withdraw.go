package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kigogo-backend/internal/service"
)

// HeaderIdempotencyKey lets clients retry a withdrawal safely.
const HeaderIdempotencyKey = "Idempotency-Key"

// WithdrawHandler serves POST /withdraw.
type WithdrawHandler struct {
	withdrawals WithdrawalService
}

// NewWithdrawHandler creates a new WithdrawHandler.
func NewWithdrawHandler(withdrawals WithdrawalService) *WithdrawHandler {
	return &WithdrawHandler{withdrawals: withdrawals}
}

type withdrawRequest struct {
	PhoneNumber string `json:"phone_number"`
	Amount      int64  `json:"amount"`
}

type withdrawResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Withdraw handles POST /withdraw. Rejections carry success=false; storage
// failures use the plain {message} body.
func (h *WithdrawHandler) Withdraw(c echo.Context) error {
	var req withdrawRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, withdrawResponse{Success: false, Message: msgInvalidPayload})
	}

	_, err := h.withdrawals.Withdraw(c.Request().Context(), service.WithdrawInput{
		PhoneNumber:    req.PhoneNumber,
		Amount:         req.Amount,
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		status, msg := statusFor(err)
		if status == http.StatusBadRequest {
			return c.JSON(status, withdrawResponse{Success: false, Message: msg})
		}
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, withdrawResponse{Success: true, Message: "Withdrawal successful."})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kigogo-backend/internal/model"
	"kigogo-backend/internal/service"
)

// AccountHandler serves registration, login and account listing.
type AccountHandler struct {
	accounts AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type registerRequest struct {
	PhoneNumber   string  `json:"phone_number"`
	UserName      string  `json:"user_name"`
	Password      string  `json:"password"`
	TiktokName    *string `json:"tiktok_name"`
	YoutubeName   *string `json:"youtube_name"`
	InstagramName *string `json:"instagram_name"`
	ReferralCode  string  `json:"referral_code"`
}

type registerResponse struct {
	Message      string `json:"message"`
	ReferralCode string `json:"referral_code"`
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type loginResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// Home handles GET /.
func (h *AccountHandler) Home(c echo.Context) error {
	return c.JSON(http.StatusOK, "From Kigogo Backend")
}

// AllUsers handles GET /all-users.
func (h *AccountHandler) AllUsers(c echo.Context) error {
	users, err := h.accounts.ListUsers(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Register handles POST /register.
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: msgInvalidPayload})
	}

	res, err := h.accounts.Register(c.Request().Context(), service.RegisterInput{
		PhoneNumber:   req.PhoneNumber,
		UserName:      req.UserName,
		Password:      req.Password,
		TiktokName:    req.TiktokName,
		YoutubeName:   req.YoutubeName,
		InstagramName: req.InstagramName,
		ReferralCode:  req.ReferralCode,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, registerResponse{
		Message:      "User created successfully.",
		ReferralCode: res.ReferralCode,
	})
}

// Login handles POST /login.
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: msgInvalidPayload})
	}

	user, err := h.accounts.Login(c.Request().Context(), req.PhoneNumber, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, loginResponse{Message: "Login successful.", User: user})
}

package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/SergeiKhy/linktrack/internal/middleware"
	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/SergeiKhy/linktrack/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CookieConfig controls the session cookies set on login and refresh.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type UserHandler struct {
	service service.UserService
	cookies CookieConfig
	logger  *zap.Logger
}

func NewUserHandler(service service.UserService, cookies CookieConfig, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		cookies: cookies,
		logger:  logger,
	}
}

type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
}

type LoginRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UpdateAccountRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phoneNumber"`
	Password    *string `json:"password"`
}

type TokensResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register godoc
// @Summary Register a user
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	user, err := h.service.Register(c.Request.Context(), models.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to register user")
		return
	}

	respond(c, http.StatusCreated, user, "User registered successfully")
}

// Login godoc
// @Summary Log in with email or phone number
// @Tags users
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	session, err := h.service.Login(c.Request.Context(), models.LoginInput{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to log in")
		return
	}

	h.setSessionCookies(c, session)
	respond(c, http.StatusOK, session, "User logged in successfully")
}

// Logout godoc
// @Summary End the current session
// @Tags users
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/logout [post]
func (h *UserHandler) Logout(c *gin.Context, p middleware.Principal) {
	if err := h.service.Logout(c.Request.Context(), p.User, p.Claims); err != nil {
		respondServiceError(c, h.logger, err, "Failed to log out")
		return
	}

	h.clearSessionCookies(c)
	respond(c, http.StatusOK, nil, "User logged out")
}

// RefreshToken godoc
// @Summary Exchange a refresh token for a new token pair
// @Tags users
// @Accept json
// @Produce json
// @Param request body RefreshRequest false "Refresh token, when not sent as a cookie"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/refresh-token [post]
func (h *UserHandler) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(middleware.RefreshTokenCookie)
	if token == "" {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
			return
		}
		token = req.RefreshToken
	}

	session, err := h.service.RefreshSession(c.Request.Context(), token)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to refresh session")
		return
	}

	h.setSessionCookies(c, session)
	respond(c, http.StatusOK, TokensResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	}, "Access token refreshed")
}

// GetAccount godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/user-account [get]
func (h *UserHandler) GetAccount(c *gin.Context, p middleware.Principal) {
	user, err := h.service.GetAccount(c.Request.Context(), p.User.ID)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to fetch user")
		return
	}

	respond(c, http.StatusOK, user, "User fetched successfully")
}

// UpdateAccount godoc
// @Summary Update account details; the session ends and the user must log in again
// @Tags users
// @Accept json
// @Produce json
// @Param request body UpdateAccountRequest true "Fields to change"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/users/update-account [patch]
func (h *UserHandler) UpdateAccount(c *gin.Context, p middleware.Principal) {
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	user, err := h.service.UpdateAccount(c.Request.Context(), p.User, p.Claims, models.UpdateAccountInput{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to update account")
		return
	}

	h.clearSessionCookies(c)
	respond(c, http.StatusOK, user, "Account updated, please log in again")
}

// DeleteAccount godoc
// @Summary Delete the account with all its links and analytics
// @Tags users
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/users/delete-account [delete]
func (h *UserHandler) DeleteAccount(c *gin.Context, p middleware.Principal) {
	if err := h.service.DeleteAccount(c.Request.Context(), p.User); err != nil {
		respondServiceError(c, h.logger, err, "Failed to delete account")
		return
	}

	h.clearSessionCookies(c)
	respond(c, http.StatusOK, nil, "Account deleted successfully")
}

func (h *UserHandler) setSessionCookies(c *gin.Context, session *models.Session) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, session.AccessToken, int(h.cookies.AccessTTL.Seconds()), "/", "", h.cookies.Secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, session.RefreshToken, int(h.cookies.RefreshTTL.Seconds()), "/", "", h.cookies.Secure, true)
}

func (h *UserHandler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", h.cookies.Secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", "", h.cookies.Secure, true)
}

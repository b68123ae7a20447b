package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/SergeiKhy/linktrack/internal/auth"
	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/SergeiKhy/linktrack/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// Authenticator resolves an access token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*models.User, *auth.Claims, error)
}

// Principal is the authenticated caller of a request.
type Principal struct {
	User   *models.User
	Claims *auth.Claims
}

// AuthedHandler is a gin handler that receives the caller explicitly.
type AuthedHandler func(c *gin.Context, p Principal)

type Auth struct {
	authenticator Authenticator
	logger        *zap.Logger
}

func NewAuth(authenticator Authenticator, logger *zap.Logger) *Auth {
	return &Auth{authenticator: authenticator, logger: logger}
}

// Require wraps h so it only runs for requests carrying a valid access token.
func (a *Auth) Require(h AuthedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := AccessTokenFromRequest(c)
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "Access token is required")
			return
		}

		user, claims, err := a.authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUnauthorized) {
				abortWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired access token")
				return
			}
			a.logger.Error("Failed to authenticate request", zap.Error(err))
			abortWithError(c, http.StatusInternalServerError, "internal_error", "Failed to authenticate request")
			return
		}

		h(c, Principal{User: user, Claims: claims})
	}
}

// AccessTokenFromRequest reads the access token from its cookie, falling back
// to an Authorization: Bearer header.
func AccessTokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(AccessTokenCookie); err == nil && token != "" {
		return token
	}

	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

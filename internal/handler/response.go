package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/SergeiKhy/linktrack/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func respond(c *gin.Context, status int, data any, message string) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(status, SuccessResponse{
		Status:  status,
		Data:    data,
		Message: message,
		Success: true,
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Status:  status,
		Error:   code,
		Message: message,
	})
}

// respondServiceError maps a service error kind onto its HTTP status.
// Unclassified errors are logged and reported as internal with fallback.
func respondServiceError(c *gin.Context, logger *zap.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrConflict):
		respondError(c, http.StatusConflict, "conflict", err.Error())
	default:
		logger.Error(fallback,
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "internal_error", fallback)
	}
}

// pageFromQuery reads page and limit; malformed values fall back to defaults.
func pageFromQuery(c *gin.Context) models.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return models.PageRequest{Page: page, Limit: limit}.Normalize()
}

package handler

import (
	"net/http"

	"github.com/SergeiKhy/linktrack/internal/middleware"
	"github.com/SergeiKhy/linktrack/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalyticsHandler struct {
	service service.AnalyticsService
	logger  *zap.Logger
}

func NewAnalyticsHandler(service service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  logger,
	}
}

// Track godoc
// @Summary Record a hit without redirecting
// @Tags analytics
// @Produce json
// @Param shortLink path string true "Short code"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/analytics/track/{shortLink} [get]
func (h *AnalyticsHandler) Track(c *gin.Context) {
	event, err := h.service.Track(c.Request.Context(), c.Param("shortLink"), hitMeta(c))
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to record analytics")
		return
	}

	respond(c, http.StatusOK, event, "Analytics recorded")
}

// ListEvents godoc
// @Summary Hits on the current user's links, newest first
// @Tags analytics
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/analytics [get]
func (h *AnalyticsHandler) ListEvents(c *gin.Context, p middleware.Principal) {
	page, err := h.service.ListEvents(c.Request.Context(), p.User, pageFromQuery(c))
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to fetch analytics")
		return
	}

	respond(c, http.StatusOK, page, "Analytics fetched successfully")
}

// DateWise godoc
// @Summary Daily clicks with a running total
// @Tags analytics
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/analytics/date-wise [get]
func (h *AnalyticsHandler) DateWise(c *gin.Context, p middleware.Principal) {
	days, err := h.service.DateWise(c.Request.Context(), p.User)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to fetch date-wise analytics")
		return
	}

	respond(c, http.StatusOK, days, "Date-wise analytics fetched successfully")
}

// DeviceWise godoc
// @Summary Clicks per device class
// @Tags analytics
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/analytics/device-wise [get]
func (h *AnalyticsHandler) DeviceWise(c *gin.Context, p middleware.Principal) {
	devices, err := h.service.DeviceWise(c.Request.Context(), p.User)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to fetch device-wise analytics")
		return
	}

	respond(c, http.StatusOK, devices, "Device-wise analytics fetched successfully")
}

// Export godoc
// @Summary Download all analytics as an XLSX workbook
// @Tags analytics
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/analytics/export [get]
func (h *AnalyticsHandler) Export(c *gin.Context, p middleware.Principal) {
	data, err := h.service.Export(c.Request.Context(), p.User)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to export analytics")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="analytics.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/SergeiKhy/linktrack/internal/middleware"
	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/SergeiKhy/linktrack/internal/service"
	"github.com/SergeiKhy/linktrack/internal/useragent"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LinkHandler struct {
	links     service.LinkService
	analytics service.AnalyticsService
	logger    *zap.Logger
}

func NewLinkHandler(links service.LinkService, analytics service.AnalyticsService, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		links:     links,
		analytics: analytics,
		logger:    logger,
	}
}

type CreateLinkRequest struct {
	OriginalLink   string     `json:"originalLink"`
	Remarks        string     `json:"remarks"`
	ExpirationDate *time.Time `json:"expirationDate"`
}

type UpdateLinkRequest struct {
	OriginalLink   *string            `json:"originalLink"`
	Remarks        *string            `json:"remarks"`
	ExpirationDate *time.Time         `json:"expirationDate"`
	Status         *models.LinkStatus `json:"status"`
}

type CreateLinkResponse struct {
	ShortLink string       `json:"shortLink"`
	ShortURL  string       `json:"shortUrl"`
	Link      *models.Link `json:"link"`
}

// CreateLink godoc
// @Summary Create a short link
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link details"
// @Success 201 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/links/create-link [post]
func (h *LinkHandler) CreateLink(c *gin.Context, p middleware.Principal) {
	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", zap.Error(err))
		respondError(c, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	link, err := h.links.CreateLink(c.Request.Context(), p.User, models.CreateLinkInput{
		OriginalURL:    req.OriginalLink,
		Remarks:        req.Remarks,
		ExpirationDate: req.ExpirationDate,
	})
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to create short link")
		return
	}

	respond(c, http.StatusCreated, CreateLinkResponse{
		ShortLink: link.ShortCode,
		ShortURL:  h.links.ShortURL(link.ShortCode),
		Link:      link,
	}, "Short link created successfully")
}

// ListLinks godoc
// @Summary Links of the current user, newest first
// @Tags links
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/links/user-links [get]
func (h *LinkHandler) ListLinks(c *gin.Context, p middleware.Principal) {
	page, err := h.links.ListLinks(c.Request.Context(), p.User, pageFromQuery(c))
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to list links")
		return
	}

	respond(c, http.StatusOK, page, "Links fetched successfully")
}

// Redirect godoc
// @Summary Record a hit and redirect to the original URL
// @Tags links
// @Param shortLink path string true "Short code"
// @Success 302
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/r/{shortLink} [get]
func (h *LinkHandler) Redirect(c *gin.Context) {
	code := c.Param("shortLink")
	ctx := c.Request.Context()

	if _, err := h.analytics.Track(ctx, code, hitMeta(c)); err != nil {
		respondServiceError(c, h.logger, err, "Failed to record analytics")
		return
	}

	target, err := h.links.Redirect(ctx, code)
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to resolve short link")
		return
	}

	c.Redirect(http.StatusFound, target)
}

// UpdateLink godoc
// @Summary Update a link owned by the current user
// @Tags links
// @Accept json
// @Produce json
// @Param id path int true "Link ID"
// @Param request body UpdateLinkRequest true "Fields to change"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/update/{id} [patch]
func (h *LinkHandler) UpdateLink(c *gin.Context, p middleware.Principal) {
	id, ok := linkID(c)
	if !ok {
		return
	}

	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	link, err := h.links.UpdateLink(c.Request.Context(), p.User, id, models.UpdateLinkInput{
		OriginalURL:    req.OriginalLink,
		Remarks:        req.Remarks,
		ExpirationDate: req.ExpirationDate,
		Status:         req.Status,
	})
	if err != nil {
		respondServiceError(c, h.logger, err, "Failed to update link")
		return
	}

	respond(c, http.StatusOK, link, "Link updated successfully")
}

// DeleteLink godoc
// @Summary Delete a link and its analytics
// @Tags links
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/links/delete/{id} [delete]
func (h *LinkHandler) DeleteLink(c *gin.Context, p middleware.Principal) {
	id, ok := linkID(c)
	if !ok {
		return
	}

	if err := h.links.DeleteLink(c.Request.Context(), p.User, id); err != nil {
		respondServiceError(c, h.logger, err, "Failed to delete link")
		return
	}

	respond(c, http.StatusOK, nil, "Link deleted successfully")
}

func linkID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		respondError(c, http.StatusBadRequest, "invalid_request", "Link id must be a positive integer")
		return 0, false
	}
	return id, true
}

func hitMeta(c *gin.Context) models.HitMeta {
	ua := c.Request.UserAgent()
	return models.HitMeta{
		IPAddress:  c.ClientIP(),
		UserAgent:  ua,
		DeviceType: useragent.DetectDevice(ua),
	}
}

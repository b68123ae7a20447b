package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/SergeiKhy/linktrack/internal/repository"
	"github.com/SergeiKhy/linktrack/internal/shortcode"
	"go.uber.org/zap"
)

// RedirectPath is the public route prefix a short code is served under.
const RedirectPath = "/api/v1/links/r/"

type LinkService interface {
	CreateLink(ctx context.Context, user *models.User, input models.CreateLinkInput) (*models.Link, error)
	ListLinks(ctx context.Context, user *models.User, page models.PageRequest) (models.Page[models.Link], error)
	UpdateLink(ctx context.Context, user *models.User, linkID int64, input models.UpdateLinkInput) (*models.Link, error)
	DeleteLink(ctx context.Context, user *models.User, linkID int64) error
	ResolveLink(ctx context.Context, code string) (*models.ResolvedLink, error)
	Redirect(ctx context.Context, code string) (string, error)
	ShortURL(code string) string
}

type LinkServiceConfig struct {
	BaseURL  string
	CacheTTL time.Duration
}

type linkService struct {
	tx            repository.Transactor
	linkRepo      repository.LinkRepository
	analyticsRepo repository.AnalyticsRepository
	cacheRepo     repository.CacheRepository
	generator     *shortcode.Generator
	cfg           LinkServiceConfig
	logger        *zap.Logger
	now           func() time.Time
}

func NewLinkService(
	tx repository.Transactor,
	linkRepo repository.LinkRepository,
	analyticsRepo repository.AnalyticsRepository,
	cacheRepo repository.CacheRepository,
	generator *shortcode.Generator,
	cfg LinkServiceConfig,
	logger *zap.Logger,
) LinkService {
	return &linkService{
		tx:            tx,
		linkRepo:      linkRepo,
		analyticsRepo: analyticsRepo,
		cacheRepo:     cacheRepo,
		generator:     generator,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *linkService) CreateLink(ctx context.Context, user *models.User, input models.CreateLinkInput) (*models.Link, error) {
	originalURL, err := validateURL(input.OriginalURL)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	link := &models.Link{
		UserID:         user.ID,
		OriginalURL:    originalURL,
		Remarks:        strings.TrimSpace(input.Remarks),
		Status:         models.StatusFor(input.ExpirationDate, now),
		ExpirationDate: input.ExpirationDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// The existence check and the insert are not atomic; a unique violation
	// on insert counts as one more collision.
	for attempt := 1; attempt <= s.generator.MaxAttempts(); attempt++ {
		code, err := s.generator.Generate(ctx, originalURL, user.ID, s.linkRepo)
		if err != nil {
			if errors.Is(err, shortcode.ErrAttemptsExhausted) {
				s.logger.Error("short code space exhausted", zap.Int64("user_id", user.ID), zap.Error(err))
				return nil, ErrCodeSpaceExhausted
			}
			return nil, err
		}

		link.ShortCode = code
		err = s.linkRepo.Create(ctx, link)
		if err == nil {
			s.logger.Info("link created",
				zap.Int64("link_id", link.ID),
				zap.String("short_code", link.ShortCode),
				zap.String("status", string(link.Status)),
			)
			return link, nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return nil, err
		}

		s.logger.Debug("short code taken on insert, retrying",
			zap.String("short_code", code),
			zap.Int("attempt", attempt),
		)
	}

	return nil, ErrCodeSpaceExhausted
}

func (s *linkService) ListLinks(ctx context.Context, user *models.User, page models.PageRequest) (models.Page[models.Link], error) {
	page = page.Normalize()

	links, total, err := s.linkRepo.ListByUser(ctx, user.ID, page)
	if err != nil {
		return models.Page[models.Link]{}, err
	}

	return models.NewPage(links, total, page), nil
}

// UpdateLink patches a link owned by user. A new expiration date recomputes
// the status and takes precedence over an explicit status.
func (s *linkService) UpdateLink(ctx context.Context, user *models.User, linkID int64, input models.UpdateLinkInput) (*models.Link, error) {
	link, err := s.linkRepo.GetByIDForUser(ctx, linkID, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	now := s.now().UTC()

	if input.OriginalURL != nil {
		originalURL, err := validateURL(*input.OriginalURL)
		if err != nil {
			return nil, err
		}
		link.OriginalURL = originalURL
	}
	if input.Remarks != nil {
		link.Remarks = strings.TrimSpace(*input.Remarks)
	}
	if input.Status != nil {
		if *input.Status != models.LinkStatusActive && *input.Status != models.LinkStatusInactive {
			return nil, ErrInvalidStatus
		}
		link.Status = *input.Status
	}
	if input.ExpirationDate != nil {
		link.ExpirationDate = input.ExpirationDate
		link.Status = models.StatusFor(input.ExpirationDate, now)
	}
	link.UpdatedAt = now

	if err := s.linkRepo.Update(ctx, link); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	s.evict(ctx, link.ShortCode)
	return link, nil
}

// DeleteLink removes a link and its analytics in one transaction.
func (s *linkService) DeleteLink(ctx context.Context, user *models.User, linkID int64) error {
	var code string

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		link, err := s.linkRepo.GetByIDForUser(ctx, linkID, user.ID)
		if err != nil {
			return err
		}
		code = link.ShortCode

		if _, err := s.analyticsRepo.DeleteByLinkIDs(ctx, []int64{link.ID}); err != nil {
			return err
		}
		return s.linkRepo.Delete(ctx, link.ID, user.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return err
	}

	s.evict(ctx, code)
	s.logger.Info("link deleted", zap.Int64("link_id", linkID), zap.String("short_code", code))
	return nil
}

// ResolveLink looks a short code up through the cache. Status is not checked.
func (s *linkService) ResolveLink(ctx context.Context, code string) (*models.ResolvedLink, error) {
	if !shortcode.Valid(code) {
		return nil, ErrLinkNotFound
	}

	cached, err := s.cacheRepo.Get(ctx, code)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		s.logger.Warn("cache read failed", zap.String("short_code", code), zap.Error(err))
	}

	link, err := s.linkRepo.GetByShortCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	resolved := &models.ResolvedLink{
		ID:          link.ID,
		ShortCode:   link.ShortCode,
		OriginalURL: link.OriginalURL,
		Status:      link.Status,
	}
	if err := s.cacheRepo.Set(ctx, resolved, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("cache write failed", zap.String("short_code", code), zap.Error(err))
	}

	return resolved, nil
}

// Redirect returns the target of an active link and counts the click.
// Status is taken as stored; an expired link stays active until its next update.
func (s *linkService) Redirect(ctx context.Context, code string) (string, error) {
	link, err := s.ResolveLink(ctx, code)
	if err != nil {
		return "", err
	}
	if link.Status == models.LinkStatusInactive {
		return "", ErrLinkInactive
	}

	if _, err := s.linkRepo.IncrementClicks(ctx, link.ID); err != nil {
		if !errors.Is(err, repository.ErrLinkNotFound) {
			return "", err
		}
		// The cached view was stale: the link went inactive or was removed.
		s.evict(ctx, code)
		current, lookupErr := s.linkRepo.GetByShortCode(ctx, code)
		if lookupErr != nil {
			if errors.Is(lookupErr, repository.ErrLinkNotFound) {
				return "", ErrLinkNotFound
			}
			return "", lookupErr
		}
		if current.Status == models.LinkStatusInactive {
			return "", ErrLinkInactive
		}
		return "", fmt.Errorf("failed to count click for %q: %w", code, err)
	}

	return link.OriginalURL, nil
}

func (s *linkService) ShortURL(code string) string {
	return s.cfg.BaseURL + RedirectPath + code
}

func (s *linkService) evict(ctx context.Context, code string) {
	if err := s.cacheRepo.Delete(ctx, code); err != nil {
		s.logger.Warn("failed to evict cached link", zap.String("short_code", code), zap.Error(err))
	}
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidURL
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidURL
	}
	return raw, nil
}

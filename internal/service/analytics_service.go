package service

import (
	"context"
	"fmt"
	"time"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/SergeiKhy/linktrack/internal/repository"
	"github.com/SergeiKhy/linktrack/internal/useragent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	maxRecordRetries = 3
	recordBackoff    = 100 * time.Millisecond
)

var analyticsEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "linktrack_analytics_events_total",
		Help: "Analytics events stored, partitioned by device class",
	},
	[]string{"device"},
)

type AnalyticsService interface {
	Track(ctx context.Context, code string, meta models.HitMeta) (*models.AnalyticsEvent, error)
	ListEvents(ctx context.Context, user *models.User, page models.PageRequest) (models.Page[models.EventWithLink], error)
	DateWise(ctx context.Context, user *models.User) ([]models.DailyClicks, error)
	DeviceWise(ctx context.Context, user *models.User) ([]models.DeviceClicks, error)
	Export(ctx context.Context, user *models.User) ([]byte, error)
}

type analyticsService struct {
	links         LinkService
	analyticsRepo repository.AnalyticsRepository
	logger        *zap.Logger
	backoff       time.Duration
	now           func() time.Time
}

func NewAnalyticsService(links LinkService, analyticsRepo repository.AnalyticsRepository, logger *zap.Logger) AnalyticsService {
	return &analyticsService{
		links:         links,
		analyticsRepo: analyticsRepo,
		logger:        logger,
		backoff:       recordBackoff,
		now:           time.Now,
	}
}

// Track stores one event for the link behind code. It fails with
// ErrLinkNotFound when the code is unknown; link status is not consulted.
func (s *analyticsService) Track(ctx context.Context, code string, meta models.HitMeta) (*models.AnalyticsEvent, error) {
	link, err := s.links.ResolveLink(ctx, code)
	if err != nil {
		return nil, err
	}

	event := &models.AnalyticsEvent{
		LinkID:     link.ID,
		IPAddress:  meta.IPAddress,
		DeviceType: meta.DeviceType,
		UserAgent:  useragent.Classify(meta.UserAgent),
		CreatedAt:  s.now().UTC(),
	}
	if event.IPAddress == "" {
		event.IPAddress = useragent.Unknown
	}
	if event.DeviceType == "" {
		event.DeviceType = useragent.DetectDevice(meta.UserAgent)
	}

	if err := s.record(ctx, event); err != nil {
		return nil, err
	}

	analyticsEventsTotal.WithLabelValues(string(event.DeviceType)).Inc()
	return event, nil
}

// record retries the insert with linear backoff.
func (s *analyticsService) record(ctx context.Context, event *models.AnalyticsEvent) error {
	var err error
	for i := 0; i < maxRecordRetries; i++ {
		if err = s.analyticsRepo.Record(ctx, event); err == nil {
			return nil
		}

		if i < maxRecordRetries-1 {
			s.logger.Debug("retrying analytics event",
				zap.Int64("link_id", event.LinkID),
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * s.backoff):
			}
		}
	}

	s.logger.Error("failed to record analytics event after all retries",
		zap.Int64("link_id", event.LinkID),
		zap.Error(err),
	)
	return fmt.Errorf("failed to record analytics event: %w", err)
}

func (s *analyticsService) ListEvents(ctx context.Context, user *models.User, page models.PageRequest) (models.Page[models.EventWithLink], error) {
	page = page.Normalize()

	events, total, err := s.analyticsRepo.ListForUser(ctx, user.ID, page)
	if err != nil {
		return models.Page[models.EventWithLink]{}, err
	}

	return models.NewPage(events, total, page), nil
}

// DateWise returns daily click counts in ascending date order, each with the
// running total up to and including that day.
func (s *analyticsService) DateWise(ctx context.Context, user *models.User) ([]models.DailyClicks, error) {
	days, err := s.analyticsRepo.DailyForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return Cumulate(days), nil
}

func (s *analyticsService) DeviceWise(ctx context.Context, user *models.User) ([]models.DeviceClicks, error) {
	devices, err := s.analyticsRepo.DevicesForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []models.DeviceClicks{}
	}
	return devices, nil
}

// Cumulate fills CumulativeTotal over days, which must already be sorted.
func Cumulate(days []models.DailyClicks) []models.DailyClicks {
	out := make([]models.DailyClicks, len(days))
	var total int64
	for i, d := range days {
		total += d.DailyClicks
		d.CumulativeTotal = total
		out[i] = d
	}
	return out
}

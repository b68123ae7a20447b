package service_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/SergeiKhy/linktrack/internal/service"
	"github.com/SergeiKhy/linktrack/internal/service/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type analyticsEnv struct {
	*linkEnv
	svc service.AnalyticsService
}

func setupAnalyticsService() *analyticsEnv {
	links := setupLinkService(nil)
	svc := service.WithoutBackoff(service.NewAnalyticsService(links.svc, links.analytics, zap.NewNop()))
	return &analyticsEnv{linkEnv: links, svc: svc}
}

const chromeOnMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

func TestAnalyticsService_Track(t *testing.T) {
	env := setupAnalyticsService()
	link := env.links.Put(models.Link{UserID: owner.ID, ShortCode: "track001", OriginalURL: "https://example.com", Status: models.LinkStatusActive})
	before := testutil.ToFloat64(service.AnalyticsEventsTotal.WithLabelValues(string(models.DeviceDesktop)))

	event, err := env.svc.Track(context.Background(), "track001", models.HitMeta{
		IPAddress:  "203.0.113.7",
		UserAgent:  chromeOnMac,
		DeviceType: models.DeviceDesktop,
	})

	require.NoError(t, err)
	assert.Equal(t, link.ID, event.LinkID)
	assert.Equal(t, "Chrome", event.UserAgent)
	assert.Equal(t, models.DeviceDesktop, event.DeviceType)
	assert.Equal(t, "203.0.113.7", event.IPAddress)
	assert.Len(t, env.analytics.Events(), 1)

	after := testutil.ToFloat64(service.AnalyticsEventsTotal.WithLabelValues(string(models.DeviceDesktop)))
	assert.Equal(t, before+1, after)
}

func TestAnalyticsService_Track_Defaults(t *testing.T) {
	env := setupAnalyticsService()
	env.links.Put(models.Link{UserID: owner.ID, ShortCode: "track001", Status: models.LinkStatusActive})

	event, err := env.svc.Track(context.Background(), "track001", models.HitMeta{})

	require.NoError(t, err)
	assert.Equal(t, "unknown", event.IPAddress)
	assert.Equal(t, "unknown", event.UserAgent)
	assert.Equal(t, models.DeviceUnknown, event.DeviceType)
}

func TestAnalyticsService_Track_InactiveLinkStillRecorded(t *testing.T) {
	env := setupAnalyticsService()
	env.links.Put(models.Link{UserID: owner.ID, ShortCode: "inactiv1", Status: models.LinkStatusInactive})

	_, err := env.svc.Track(context.Background(), "inactiv1", models.HitMeta{UserAgent: chromeOnMac})

	require.NoError(t, err)
	assert.Len(t, env.analytics.Events(), 1)
}

func TestAnalyticsService_Track_UnknownLink(t *testing.T) {
	env := setupAnalyticsService()

	_, err := env.svc.Track(context.Background(), "zzzzzzzz", models.HitMeta{})

	assert.ErrorIs(t, err, service.ErrLinkNotFound)
	assert.Empty(t, env.analytics.Events())
	assert.Zero(t, env.analytics.RecordCalls)
}

func TestAnalyticsService_Track_RetriesInsert(t *testing.T) {
	env := setupAnalyticsService()
	env.links.Put(models.Link{UserID: owner.ID, ShortCode: "track001", Status: models.LinkStatusActive})
	env.analytics.RecordErrs = []error{mocks.ErrInjected, mocks.ErrInjected}

	_, err := env.svc.Track(context.Background(), "track001", models.HitMeta{})

	require.NoError(t, err)
	assert.Equal(t, 3, env.analytics.RecordCalls)
	assert.Len(t, env.analytics.Events(), 1)
}

func TestAnalyticsService_Track_GivesUpAfterRetries(t *testing.T) {
	env := setupAnalyticsService()
	env.links.Put(models.Link{UserID: owner.ID, ShortCode: "track001", Status: models.LinkStatusActive})
	env.analytics.RecordErrs = []error{mocks.ErrInjected, mocks.ErrInjected, mocks.ErrInjected}

	_, err := env.svc.Track(context.Background(), "track001", models.HitMeta{})

	assert.ErrorIs(t, err, mocks.ErrInjected)
	assert.Equal(t, 3, env.analytics.RecordCalls)
	assert.Empty(t, env.analytics.Events())
}

func seedEvents(t *testing.T, env *analyticsEnv) (models.Link, models.Link) {
	t.Helper()
	ctx := context.Background()
	mine := env.links.Put(models.Link{UserID: owner.ID, ShortCode: "mine0001", OriginalURL: "https://example.com/mine", Status: models.LinkStatusActive})
	theirs := env.links.Put(models.Link{UserID: owner.ID + 1, ShortCode: "their001", Status: models.LinkStatusActive})

	day1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	seed := []models.AnalyticsEvent{
		{LinkID: mine.ID, DeviceType: models.DeviceMobile, CreatedAt: day1},
		{LinkID: mine.ID, DeviceType: models.DeviceDesktop, CreatedAt: day1.Add(time.Hour)},
		{LinkID: mine.ID, DeviceType: models.DeviceDesktop, CreatedAt: day2},
		{LinkID: mine.ID, DeviceType: models.DeviceDesktop, CreatedAt: day2.Add(time.Hour)},
		{LinkID: mine.ID, DeviceType: models.DeviceTablet, CreatedAt: day2.Add(2 * time.Hour)},
		{LinkID: theirs.ID, DeviceType: models.DeviceMobile, CreatedAt: day2},
	}
	for i := range seed {
		require.NoError(t, env.analytics.Record(ctx, &seed[i]))
	}
	return mine, theirs
}

func TestAnalyticsService_DateWise(t *testing.T) {
	env := setupAnalyticsService()
	seedEvents(t, env)

	days, err := env.svc.DateWise(context.Background(), owner)

	require.NoError(t, err)
	assert.Equal(t, []models.DailyClicks{
		{Date: "2024-01-01", DailyClicks: 2, CumulativeTotal: 2},
		{Date: "2024-01-02", DailyClicks: 3, CumulativeTotal: 5},
	}, days)
}

func TestAnalyticsService_DeviceWise(t *testing.T) {
	env := setupAnalyticsService()
	seedEvents(t, env)

	devices, err := env.svc.DeviceWise(context.Background(), owner)
	require.NoError(t, err)

	counts := map[models.DeviceType]int64{}
	for _, d := range devices {
		counts[d.DeviceType] = d.TotalClicks
	}
	assert.Equal(t, map[models.DeviceType]int64{
		models.DeviceMobile:  1,
		models.DeviceDesktop: 3,
		models.DeviceTablet:  1,
	}, counts)

	empty, err := env.svc.DeviceWise(context.Background(), &models.User{ID: 999})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAnalyticsService_ListEvents(t *testing.T) {
	env := setupAnalyticsService()
	seedEvents(t, env)

	page, err := env.svc.ListEvents(context.Background(), owner, models.PageRequest{Page: 1, Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalDocs)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Docs, 2)
	assert.Equal(t, "mine0001", page.Docs[0].ShortCode)
	assert.Equal(t, "https://example.com/mine", page.Docs[0].OriginalURL)
	assert.Equal(t, models.DeviceTablet, page.Docs[0].DeviceType)
	assert.True(t, page.Docs[0].CreatedAt.After(page.Docs[1].CreatedAt))
}

func TestAnalyticsService_Export(t *testing.T) {
	env := setupAnalyticsService()
	seedEvents(t, env)

	data, err := env.svc.Export(context.Background(), owner)
	require.NoError(t, err)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = xl.Close() }()

	assert.Equal(t, []string{"Events", "Daily", "Devices"}, xl.GetSheetList())

	events, err := xl.GetRows("Events")
	require.NoError(t, err)
	assert.Len(t, events, 6)
	assert.Equal(t, "Short Link", events[0][1])

	daily, err := xl.GetRows("Daily")
	require.NoError(t, err)
	require.Len(t, daily, 3)
	assert.Equal(t, []string{"2024-01-02", "3", "5"}, daily[2])

	devices, err := xl.GetRows("Devices")
	require.NoError(t, err)
	assert.Len(t, devices, 4)
}

func TestCumulate(t *testing.T) {
	in := []models.DailyClicks{
		{Date: "2024-01-01", DailyClicks: 2},
		{Date: "2024-01-02", DailyClicks: 3},
		{Date: "2024-01-05", DailyClicks: 1},
	}

	out := service.Cumulate(in)

	assert.Equal(t, []int64{2, 5, 6}, []int64{out[0].CumulativeTotal, out[1].CumulativeTotal, out[2].CumulativeTotal})
	assert.Zero(t, in[0].CumulativeTotal)
	assert.Empty(t, service.Cumulate(nil))
}

package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/SergeiKhy/linktrack/internal/repository"
	"github.com/SergeiKhy/linktrack/internal/service"
	"github.com/SergeiKhy/linktrack/internal/service/mocks"
	"github.com/SergeiKhy/linktrack/internal/shortcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type linkEnv struct {
	svc       service.LinkService
	tx        *mocks.MockTransactor
	links     *mocks.MockLinkRepository
	analytics *mocks.MockAnalyticsRepository
	cache     *mocks.MockCacheRepository
}

func setupLinkService(gen *shortcode.Generator) *linkEnv {
	if gen == nil {
		gen = shortcode.New(shortcode.DefaultMaxAttempts)
	}
	env := &linkEnv{
		tx:    mocks.NewMockTransactor(),
		links: mocks.NewMockLinkRepository(),
		cache: mocks.NewMockCacheRepository(),
	}
	env.analytics = mocks.NewMockAnalyticsRepository(env.links)
	env.svc = service.NewLinkService(env.tx, env.links, env.analytics, env.cache, gen,
		service.LinkServiceConfig{BaseURL: "https://sho.rt", CacheTTL: time.Hour}, zap.NewNop())
	return env
}

var owner = &models.User{ID: 1, Name: "Owner"}

func TestLinkService_CreateLink_Success(t *testing.T) {
	env := setupLinkService(nil)

	link, err := env.svc.CreateLink(context.Background(), owner, models.CreateLinkInput{
		OriginalURL: "https://example.com/test",
		Remarks:     "  launch  ",
	})

	require.NoError(t, err)
	assert.True(t, shortcode.Valid(link.ShortCode))
	assert.Equal(t, "https://example.com/test", link.OriginalURL)
	assert.Equal(t, "launch", link.Remarks)
	assert.Equal(t, owner.ID, link.UserID)
	assert.Equal(t, models.LinkStatusActive, link.Status)
	assert.Zero(t, link.Clicks)
	assert.False(t, link.CreatedAt.IsZero())
	assert.Equal(t, "https://sho.rt/api/v1/links/r/"+link.ShortCode, env.svc.ShortURL(link.ShortCode))
}

func TestLinkService_CreateLink_StatusFromExpiration(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		expiration *time.Time
		want       models.LinkStatus
	}{
		{"no expiration", nil, models.LinkStatusActive},
		{"future expiration", &future, models.LinkStatusActive},
		{"past expiration", &past, models.LinkStatusInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupLinkService(nil)
			link, err := env.svc.CreateLink(context.Background(), owner, models.CreateLinkInput{
				OriginalURL:    "https://example.com",
				ExpirationDate: tt.expiration,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, link.Status)
		})
	}
}

func TestLinkService_CreateLink_InvalidURL(t *testing.T) {
	invalidURLs := []string{
		"",
		"   ",
		"not-a-url",
		"example.com",
		"ftp://example.com",
		"https://",
	}

	for _, raw := range invalidURLs {
		env := setupLinkService(nil)
		link, err := env.svc.CreateLink(context.Background(), owner, models.CreateLinkInput{OriginalURL: raw})
		assert.ErrorIs(t, err, service.ErrInvalidURL, "url %q", raw)
		assert.ErrorIs(t, err, service.ErrValidation, "url %q", raw)
		assert.Nil(t, link)
	}
}

func TestLinkService_CreateLink_RetriesInsertCollision(t *testing.T) {
	env := setupLinkService(nil)
	env.links.CreateErrs = []error{repository.ErrCodeExists}

	link, err := env.svc.CreateLink(context.Background(), owner, models.CreateLinkInput{OriginalURL: "https://example.com"})

	require.NoError(t, err)
	assert.NotZero(t, link.ID)
}

func TestLinkService_CreateLink_InsertCollisionsExhaustBudget(t *testing.T) {
	env := setupLinkService(shortcode.New(2))
	env.links.CreateErrs = []error{repository.ErrCodeExists, repository.ErrCodeExists}

	_, err := env.svc.CreateLink(context.Background(), owner, models.CreateLinkInput{OriginalURL: "https://example.com"})

	assert.ErrorIs(t, err, service.ErrCodeSpaceExhausted)
}

func TestLinkService_CreateLink_ExistenceCollisionsExhaustBudget(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gen := shortcode.New(3,
		shortcode.WithClock(func() time.Time { return fixed }),
		shortcode.WithSaltSource(func() (string, error) { return "abcdef", nil }),
	)
	env := setupLinkService(gen)

	taken := shortcode.Derive("https://example.com", owner.ID, "abcdef", fixed)
	env.links.Put(models.Link{UserID: 2, ShortCode: taken, Status: models.LinkStatusActive})

	_, err := env.svc.CreateLink(context.Background(), owner, models.CreateLinkInput{OriginalURL: "https://example.com"})

	assert.ErrorIs(t, err, service.ErrCodeSpaceExhausted)
}

func TestLinkService_CreateLink_UniqueCodes(t *testing.T) {
	env := setupLinkService(nil)

	codes := make(map[string]bool)
	for i := 0; i < 100; i++ {
		link, err := env.svc.CreateLink(context.Background(), owner, models.CreateLinkInput{
			OriginalURL: fmt.Sprintf("https://example.com/test/%d", i),
		})
		require.NoError(t, err)
		assert.Len(t, link.ShortCode, shortcode.Length)
		assert.NotContains(t, codes, link.ShortCode)
		codes[link.ShortCode] = true
	}
}

func TestLinkService_CreateLink_Concurrent(t *testing.T) {
	env := setupLinkService(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			link, err := env.svc.CreateLink(context.Background(), owner, models.CreateLinkInput{
				OriginalURL: fmt.Sprintf("https://example.com/test%d", id),
			})
			assert.NoError(t, err)
			assert.NotNil(t, link)
		}(i)
	}
	wg.Wait()

	page, err := env.svc.ListLinks(context.Background(), owner, models.PageRequest{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, int64(10), page.TotalDocs)
}

func TestLinkService_ListLinks_Paginates(t *testing.T) {
	env := setupLinkService(nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		env.links.Put(models.Link{UserID: owner.ID, ShortCode: fmt.Sprintf("code%04d", i), CreatedAt: base.Add(time.Duration(i) * time.Minute)})
	}
	env.links.Put(models.Link{UserID: 99, ShortCode: "otheruse"})

	page, err := env.svc.ListLinks(context.Background(), owner, models.PageRequest{Page: 2, Limit: 5})

	require.NoError(t, err)
	assert.Equal(t, int64(12), page.TotalDocs)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Docs, 5)
	assert.Equal(t, "code0006", page.Docs[0].ShortCode)

	defaults, err := env.svc.ListLinks(context.Background(), owner, models.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 10, defaults.Limit)
	assert.Equal(t, "code0011", defaults.Docs[0].ShortCode)
}

func TestLinkService_UpdateLink(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	inactive := models.LinkStatusInactive
	active := models.LinkStatusActive
	newURL := "https://example.org/new"
	badURL := "mailto:someone"
	badStatus := models.LinkStatus("paused")

	tests := []struct {
		name       string
		start      models.LinkStatus
		input      models.UpdateLinkInput
		wantStatus models.LinkStatus
		wantErr    error
	}{
		{"past expiration deactivates", models.LinkStatusActive, models.UpdateLinkInput{ExpirationDate: &past}, models.LinkStatusInactive, nil},
		{"future expiration reactivates", models.LinkStatusInactive, models.UpdateLinkInput{ExpirationDate: &future}, models.LinkStatusActive, nil},
		{"expiration wins over status", models.LinkStatusActive, models.UpdateLinkInput{ExpirationDate: &future, Status: &inactive}, models.LinkStatusActive, nil},
		{"explicit status", models.LinkStatusInactive, models.UpdateLinkInput{Status: &active}, models.LinkStatusActive, nil},
		{"url only keeps status", models.LinkStatusInactive, models.UpdateLinkInput{OriginalURL: &newURL}, models.LinkStatusInactive, nil},
		{"invalid url", models.LinkStatusActive, models.UpdateLinkInput{OriginalURL: &badURL}, "", service.ErrInvalidURL},
		{"invalid status", models.LinkStatusActive, models.UpdateLinkInput{Status: &badStatus}, "", service.ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupLinkService(nil)
			stored := env.links.Put(models.Link{UserID: owner.ID, ShortCode: "abcd1234", OriginalURL: "https://example.com", Status: tt.start})

			link, err := env.svc.UpdateLink(context.Background(), owner, stored.ID, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, link.Status)

			persisted, _ := env.links.Get(stored.ID)
			assert.Equal(t, tt.wantStatus, persisted.Status)
		})
	}
}

func TestLinkService_UpdateLink_NotOwned(t *testing.T) {
	env := setupLinkService(nil)
	stored := env.links.Put(models.Link{UserID: 2, ShortCode: "abcd1234", Status: models.LinkStatusActive})
	remarks := "mine now"

	_, err := env.svc.UpdateLink(context.Background(), owner, stored.ID, models.UpdateLinkInput{Remarks: &remarks})

	assert.ErrorIs(t, err, service.ErrLinkNotFound)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestLinkService_UpdateLink_EvictsCache(t *testing.T) {
	env := setupLinkService(nil)
	stored := env.links.Put(models.Link{UserID: owner.ID, ShortCode: "abcd1234", OriginalURL: "https://example.com", Status: models.LinkStatusActive})

	_, err := env.svc.ResolveLink(context.Background(), "abcd1234")
	require.NoError(t, err)
	require.True(t, env.cache.Has("abcd1234"))

	inactive := models.LinkStatusInactive
	_, err = env.svc.UpdateLink(context.Background(), owner, stored.ID, models.UpdateLinkInput{Status: &inactive})
	require.NoError(t, err)

	assert.False(t, env.cache.Has("abcd1234"))
	_, err = env.svc.Redirect(context.Background(), "abcd1234")
	assert.ErrorIs(t, err, service.ErrLinkInactive)
}

func TestLinkService_DeleteLink_RemovesOnlyItsAnalytics(t *testing.T) {
	env := setupLinkService(nil)
	ctx := context.Background()
	target := env.links.Put(models.Link{UserID: owner.ID, ShortCode: "target01", Status: models.LinkStatusActive})
	other := env.links.Put(models.Link{UserID: owner.ID, ShortCode: "other001", Status: models.LinkStatusActive})

	for _, id := range []int64{target.ID, target.ID, other.ID} {
		require.NoError(t, env.analytics.Record(ctx, &models.AnalyticsEvent{LinkID: id, DeviceType: models.DeviceDesktop}))
	}

	require.NoError(t, env.svc.DeleteLink(ctx, owner, target.ID))

	_, exists := env.links.Get(target.ID)
	assert.False(t, exists)
	events := env.analytics.Events()
	require.Len(t, events, 1)
	assert.Equal(t, other.ID, events[0].LinkID)
	assert.Equal(t, 1, env.tx.Calls)
}

func TestLinkService_DeleteLink_NotFound(t *testing.T) {
	env := setupLinkService(nil)
	stored := env.links.Put(models.Link{UserID: 2, ShortCode: "abcd1234"})

	err := env.svc.DeleteLink(context.Background(), owner, stored.ID)
	assert.ErrorIs(t, err, service.ErrLinkNotFound)

	err = env.svc.DeleteLink(context.Background(), owner, 404)
	assert.ErrorIs(t, err, service.ErrLinkNotFound)

	_, exists := env.links.Get(stored.ID)
	assert.True(t, exists)
}

func TestLinkService_Redirect(t *testing.T) {
	env := setupLinkService(nil)
	ctx := context.Background()
	active := env.links.Put(models.Link{UserID: owner.ID, ShortCode: "active01", OriginalURL: "https://example.com/a", Status: models.LinkStatusActive})
	inactive := env.links.Put(models.Link{UserID: owner.ID, ShortCode: "inactiv1", OriginalURL: "https://example.com/i", Status: models.LinkStatusInactive})

	t.Run("active link counts exactly one click", func(t *testing.T) {
		target, err := env.svc.Redirect(ctx, "active01")
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a", target)

		stored, _ := env.links.Get(active.ID)
		assert.Equal(t, int64(1), stored.Clicks)
	})

	t.Run("inactive link is forbidden", func(t *testing.T) {
		_, err := env.svc.Redirect(ctx, "inactiv1")
		assert.ErrorIs(t, err, service.ErrLinkInactive)
		assert.ErrorIs(t, err, service.ErrForbidden)

		stored, _ := env.links.Get(inactive.ID)
		assert.Zero(t, stored.Clicks)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := env.svc.Redirect(ctx, "zzzzzzzz")
		assert.ErrorIs(t, err, service.ErrLinkNotFound)

		_, err = env.svc.Redirect(ctx, "not-a-code")
		assert.ErrorIs(t, err, service.ErrLinkNotFound)
	})
}

func TestLinkService_Redirect_ExpiredButUnmodifiedStaysActive(t *testing.T) {
	env := setupLinkService(nil)
	past := time.Now().Add(-24 * time.Hour)
	env.links.Put(models.Link{UserID: owner.ID, ShortCode: "expired1", OriginalURL: "https://example.com", Status: models.LinkStatusActive, ExpirationDate: &past})

	target, err := env.svc.Redirect(context.Background(), "expired1")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com", target)
}

func TestLinkService_Redirect_StaleCache(t *testing.T) {
	env := setupLinkService(nil)
	ctx := context.Background()
	stored := env.links.Put(models.Link{UserID: owner.ID, ShortCode: "stale001", OriginalURL: "https://example.com", Status: models.LinkStatusActive})

	_, err := env.svc.ResolveLink(ctx, "stale001")
	require.NoError(t, err)

	stored.Status = models.LinkStatusInactive
	env.links.Put(stored)

	_, err = env.svc.Redirect(ctx, "stale001")
	assert.ErrorIs(t, err, service.ErrLinkInactive)
	assert.False(t, env.cache.Has("stale001"))
}

func TestLinkService_ResolveLink_CacheFailureFallsBack(t *testing.T) {
	env := setupLinkService(nil)
	env.links.Put(models.Link{UserID: owner.ID, ShortCode: "abcd1234", OriginalURL: "https://example.com", Status: models.LinkStatusActive})
	env.cache.GetErr = mocks.ErrInjected

	link, err := env.svc.ResolveLink(context.Background(), "abcd1234")

	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.OriginalURL)
}

package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/SergeiKhy/linktrack/internal/repository"
)

// MockTransactor implements repository.Transactor by running fn directly.
type MockTransactor struct {
	mu    sync.Mutex
	Calls int
}

func NewMockTransactor() *MockTransactor {
	return &MockTransactor{}
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	return fn(ctx)
}

// MockUserRepository implements repository.UserRepository for testing
type MockUserRepository struct {
	mu     sync.RWMutex
	users  map[int64]models.User
	nextID int64
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[int64]models.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email || u.PhoneNumber == user.PhoneNumber {
			return repository.ErrUserExists
		}
	}

	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (m *MockUserRepository) GetByLogin(ctx context.Context, email, phone string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if (email != "" && u.Email == email) || (phone != "" && u.PhoneNumber == phone) {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *MockUserRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone string, excludeID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for id, u := range m.users {
		if id != excludeID && (u.Email == email || u.PhoneNumber == phone) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserRepository) SetRefreshToken(ctx context.Context, id int64, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if token != nil {
		t := *token
		token = &t
	}
	u.RefreshToken = token
	m.users[id] = u
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

// MockLinkRepository implements repository.LinkRepository for testing.
// CreateErrs are returned, in order, by the next calls to Create.
type MockLinkRepository struct {
	mu         sync.RWMutex
	links      map[int64]models.Link
	nextID     int64
	CreateErrs []error
	Increments int
}

func NewMockLinkRepository() *MockLinkRepository {
	return &MockLinkRepository{
		links:  make(map[int64]models.Link),
		nextID: 1,
	}
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.CreateErrs) > 0 {
		err := m.CreateErrs[0]
		m.CreateErrs = m.CreateErrs[1:]
		if err != nil {
			return err
		}
	}

	for _, l := range m.links {
		if l.ShortCode == link.ShortCode {
			return repository.ErrCodeExists
		}
	}

	link.ID = m.nextID
	m.nextID++
	m.links[link.ID] = *link
	return nil
}

func (m *MockLinkRepository) Exists(ctx context.Context, code string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.links {
		if l.ShortCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockLinkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range m.links {
		if l.ShortCode == code {
			return &l, nil
		}
	}
	return nil, repository.ErrLinkNotFound
}

func (m *MockLinkRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.links[id]
	if !ok || l.UserID != userID {
		return nil, repository.ErrLinkNotFound
	}
	return &l, nil
}

func (m *MockLinkRepository) ListByUser(ctx context.Context, userID int64, page models.PageRequest) ([]models.Link, int64, error) {
	m.mu.RLock()
	owned := m.ownedBy(userID)
	m.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	page = page.Normalize()
	return pageOf(owned, page), int64(len(owned)), nil
}

func (m *MockLinkRepository) Update(ctx context.Context, link *models.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.links[link.ID]
	if !ok || current.UserID != link.UserID {
		return repository.ErrLinkNotFound
	}
	current.OriginalURL = link.OriginalURL
	current.Remarks = link.Remarks
	current.Status = link.Status
	current.ExpirationDate = link.ExpirationDate
	current.UpdatedAt = link.UpdatedAt
	m.links[link.ID] = current
	return nil
}

func (m *MockLinkRepository) IncrementClicks(ctx context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[id]
	if !ok || l.Status != models.LinkStatusActive {
		return 0, repository.ErrLinkNotFound
	}
	l.Clicks++
	m.links[id] = l
	m.Increments++
	return l.Clicks, nil
}

func (m *MockLinkRepository) ResolvedByUser(ctx context.Context, userID int64) ([]models.ResolvedLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.ResolvedLink
	for _, l := range m.ownedBy(userID) {
		out = append(out, models.ResolvedLink{ID: l.ID, ShortCode: l.ShortCode, OriginalURL: l.OriginalURL, Status: l.Status})
	}
	return out, nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.links[id]
	if !ok || l.UserID != userID {
		return repository.ErrLinkNotFound
	}
	delete(m.links, id)
	return nil
}

func (m *MockLinkRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, l := range m.links {
		if l.UserID == userID {
			delete(m.links, id)
			n++
		}
	}
	return n, nil
}

// Get returns a stored link by id, for assertions.
func (m *MockLinkRepository) Get(id int64) (models.Link, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.links[id]
	return l, ok
}

// Put stores link as-is, for arranging state directly.
func (m *MockLinkRepository) Put(link models.Link) models.Link {
	m.mu.Lock()
	defer m.mu.Unlock()
	if link.ID == 0 {
		link.ID = m.nextID
		m.nextID++
	}
	m.links[link.ID] = link
	return link
}

func (m *MockLinkRepository) ownedBy(userID int64) []models.Link {
	var out []models.Link
	for _, l := range m.links {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out
}

// MockAnalyticsRepository implements repository.AnalyticsRepository for
// testing. Events are scoped to users through the link repository.
// RecordErrs are returned, in order, by the next calls to Record.
type MockAnalyticsRepository struct {
	mu          sync.RWMutex
	links       *MockLinkRepository
	events      []models.AnalyticsEvent
	nextID      int64
	RecordErrs  []error
	RecordCalls int
}

func NewMockAnalyticsRepository(links *MockLinkRepository) *MockAnalyticsRepository {
	return &MockAnalyticsRepository{links: links, nextID: 1}
}

func (m *MockAnalyticsRepository) Record(ctx context.Context, event *models.AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordCalls++
	if len(m.RecordErrs) > 0 {
		err := m.RecordErrs[0]
		m.RecordErrs = m.RecordErrs[1:]
		if err != nil {
			return err
		}
	}

	event.ID = m.nextID
	m.nextID++
	m.events = append(m.events, *event)
	return nil
}

func (m *MockAnalyticsRepository) ListForUser(ctx context.Context, userID int64, page models.PageRequest) ([]models.EventWithLink, int64, error) {
	all, err := m.ListAllForUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	page = page.Normalize()
	return pageOf(all, page), int64(len(all)), nil
}

func (m *MockAnalyticsRepository) ListAllForUser(ctx context.Context, userID int64) ([]models.EventWithLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.EventWithLink{}
	for _, e := range m.events {
		l, ok := m.links.Get(e.LinkID)
		if !ok || l.UserID != userID {
			continue
		}
		out = append(out, models.EventWithLink{
			ID:          e.ID,
			IPAddress:   e.IPAddress,
			DeviceType:  e.DeviceType,
			UserAgent:   e.UserAgent,
			CreatedAt:   e.CreatedAt,
			ShortCode:   l.ShortCode,
			OriginalURL: l.OriginalURL,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockAnalyticsRepository) DailyForUser(ctx context.Context, userID int64) ([]models.DailyClicks, error) {
	all, err := m.ListAllForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts := map[string]int64{}
	for _, e := range all {
		counts[e.CreatedAt.UTC().Format(time.DateOnly)]++
	}

	out := make([]models.DailyClicks, 0, len(counts))
	for day, n := range counts {
		out = append(out, models.DailyClicks{Date: day, DailyClicks: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *MockAnalyticsRepository) DevicesForUser(ctx context.Context, userID int64) ([]models.DeviceClicks, error) {
	all, err := m.ListAllForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	counts := map[models.DeviceType]int64{}
	for _, e := range all {
		counts[e.DeviceType]++
	}

	out := make([]models.DeviceClicks, 0, len(counts))
	for device, n := range counts {
		out = append(out, models.DeviceClicks{DeviceType: device, TotalClicks: n})
	}
	return out, nil
}

func (m *MockAnalyticsRepository) DeleteByLinkIDs(ctx context.Context, linkIDs []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	drop := make(map[int64]bool, len(linkIDs))
	for _, id := range linkIDs {
		drop[id] = true
	}

	kept := m.events[:0]
	var n int64
	for _, e := range m.events {
		if drop[e.LinkID] {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return n, nil
}

// Events returns a copy of every stored event.
func (m *MockAnalyticsRepository) Events() []models.AnalyticsEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.AnalyticsEvent(nil), m.events...)
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu     sync.RWMutex
	cache  map[string]models.ResolvedLink
	GetErr error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]models.ResolvedLink),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, code string) (*models.ResolvedLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	link, exists := m.cache[code]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	return &link, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, link *models.ResolvedLink, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[link.ShortCode] = *link
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, code)
	return nil
}

// Has reports whether code is cached.
func (m *MockCacheRepository) Has(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.cache[code]
	return ok
}

// MockTokenRepository implements repository.TokenRepository for testing
type MockTokenRepository struct {
	mu      sync.RWMutex
	revoked map[string]time.Duration
	Err     error
}

func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{revoked: make(map[string]time.Duration)}
}

func (m *MockTokenRepository) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if ttl > 0 {
		m.revoked[tokenID] = ttl
	}
	return nil
}

func (m *MockTokenRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return false, m.Err
	}
	_, ok := m.revoked[tokenID]
	return ok, nil
}

// ErrInjected is a generic failure for arranging error paths.
var ErrInjected = errors.New("injected failure")

func pageOf[T any](items []T, page models.PageRequest) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

var (
	_ repository.Transactor          = (*MockTransactor)(nil)
	_ repository.UserRepository      = (*MockUserRepository)(nil)
	_ repository.LinkRepository      = (*MockLinkRepository)(nil)
	_ repository.AnalyticsRepository = (*MockAnalyticsRepository)(nil)
	_ repository.CacheRepository     = (*MockCacheRepository)(nil)
	_ repository.TokenRepository     = (*MockTokenRepository)(nil)
)

package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SergeiKhy/linktrack/internal/auth"
	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/SergeiKhy/linktrack/internal/repository"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type UserService interface {
	Register(ctx context.Context, input models.RegisterInput) (*models.User, error)
	Login(ctx context.Context, input models.LoginInput) (*models.Session, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, *auth.Claims, error)
	Logout(ctx context.Context, user *models.User, claims *auth.Claims) error
	RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error)
	GetAccount(ctx context.Context, userID int64) (*models.User, error)
	UpdateAccount(ctx context.Context, user *models.User, claims *auth.Claims, input models.UpdateAccountInput) (*models.User, error)
	DeleteAccount(ctx context.Context, user *models.User) error
}

type userService struct {
	tx            repository.Transactor
	userRepo      repository.UserRepository
	linkRepo      repository.LinkRepository
	analyticsRepo repository.AnalyticsRepository
	cacheRepo     repository.CacheRepository
	tokenRepo     repository.TokenRepository
	tokens        *auth.TokenManager
	hasher        *auth.PasswordHasher
	validate      *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

func NewUserService(
	tx repository.Transactor,
	userRepo repository.UserRepository,
	linkRepo repository.LinkRepository,
	analyticsRepo repository.AnalyticsRepository,
	cacheRepo repository.CacheRepository,
	tokenRepo repository.TokenRepository,
	tokens *auth.TokenManager,
	hasher *auth.PasswordHasher,
	logger *zap.Logger,
) UserService {
	return &userService{
		tx:            tx,
		userRepo:      userRepo,
		linkRepo:      linkRepo,
		analyticsRepo: analyticsRepo,
		cacheRepo:     cacheRepo,
		tokenRepo:     tokenRepo,
		tokens:        tokens,
		hasher:        hasher,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger,
		now:           time.Now,
	}
}

func (s *userService) Register(ctx context.Context, input models.RegisterInput) (*models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)

	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	exists, err := s.userRepo.ExistsByEmailOrPhone(ctx, input.Email, input.PhoneNumber, 0)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		PhoneNumber:  input.PhoneNumber,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *userService) Login(ctx context.Context, input models.LoginInput) (*models.Session, error) {
	input.Email = normalizeEmail(input.Email)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)

	if input.Email == "" && input.PhoneNumber == "" {
		return nil, ErrMissingLogin
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	user, err := s.userRepo.GetByLogin(ctx, input.Email, input.PhoneNumber)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password: %w", err)
	}

	return s.issueSession(ctx, user)
}

// Authenticate resolves the owner of a valid, unrevoked access token.
func (s *userService) Authenticate(ctx context.Context, accessToken string) (*models.User, *auth.Claims, error) {
	if accessToken == "" {
		return nil, nil, ErrInvalidAccessToken
	}

	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, nil, ErrInvalidAccessToken
	}

	revoked, err := s.tokenRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, nil, ErrInvalidAccessToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrInvalidAccessToken
		}
		return nil, nil, err
	}

	return user, claims, nil
}

func (s *userService) Logout(ctx context.Context, user *models.User, claims *auth.Claims) error {
	if err := s.userRepo.SetRefreshToken(ctx, user.ID, nil); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return s.revoke(ctx, claims)
}

func (s *userService) RefreshSession(ctx context.Context, refreshToken string) (*models.Session, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	// Only the most recently issued refresh token is accepted.
	if user.RefreshToken == nil ||
		subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, ErrInvalidRefreshToken
	}

	return s.issueSession(ctx, user)
}

func (s *userService) GetAccount(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateAccount applies a partial update and ends the current session.
func (s *userService) UpdateAccount(ctx context.Context, user *models.User, claims *auth.Claims, input models.UpdateAccountInput) (*models.User, error) {
	if input.Name == nil && input.Email == nil && input.PhoneNumber == nil && input.Password == nil {
		return nil, ErrEmptyUpdate
	}

	trim(input.Name)
	trim(input.PhoneNumber)
	if input.Email != nil {
		*input.Email = normalizeEmail(*input.Email)
	}

	if err := s.validate.Struct(input); err != nil {
		return nil, validationError(err)
	}

	updated := *user
	if input.Name != nil {
		updated.Name = *input.Name
	}
	if input.Email != nil {
		updated.Email = *input.Email
	}
	if input.PhoneNumber != nil {
		updated.PhoneNumber = *input.PhoneNumber
	}

	if input.Email != nil || input.PhoneNumber != nil {
		exists, err := s.userRepo.ExistsByEmailOrPhone(ctx, updated.Email, updated.PhoneNumber, user.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrUserExists
		}
	}

	if input.Password != nil {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updated.PasswordHash = hash
	}

	updated.RefreshToken = nil
	updated.UpdatedAt = s.now().UTC()

	if err := s.userRepo.Update(ctx, &updated); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserExists):
			return nil, ErrUserExists
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if err := s.revoke(ctx, claims); err != nil {
		s.logger.Warn("failed to revoke access token after account update",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
	}

	return &updated, nil
}

// DeleteAccount removes the user's analytics, links and account in one
// transaction.
func (s *userService) DeleteAccount(ctx context.Context, user *models.User) error {
	var owned []models.ResolvedLink

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		owned, err = s.linkRepo.ResolvedByUser(ctx, user.ID)
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(owned))
		for _, l := range owned {
			ids = append(ids, l.ID)
		}

		if _, err := s.analyticsRepo.DeleteByLinkIDs(ctx, ids); err != nil {
			return err
		}
		if _, err := s.linkRepo.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		return s.userRepo.Delete(ctx, user.ID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	for _, l := range owned {
		if err := s.cacheRepo.Delete(ctx, l.ShortCode); err != nil {
			s.logger.Warn("failed to evict cached link", zap.String("short_code", l.ShortCode), zap.Error(err))
		}
	}

	s.logger.Info("user deleted", zap.Int64("user_id", user.ID), zap.Int("links", len(owned)))
	return nil
}

func (s *userService) issueSession(ctx context.Context, user *models.User) (*models.Session, error) {
	pair, err := s.tokens.IssuePair(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return nil, err
	}
	user.RefreshToken = &pair.RefreshToken

	return &models.Session{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *userService) revoke(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	return s.tokenRepo.Revoke(ctx, claims.ID, ttl)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

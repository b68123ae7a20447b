package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/jackc/pgx/v5"
)

type LinkRepository interface {
	Create(ctx context.Context, link *models.Link) error
	Exists(ctx context.Context, code string) (bool, error)
	GetByShortCode(ctx context.Context, code string) (*models.Link, error)
	GetByIDForUser(ctx context.Context, id, userID int64) (*models.Link, error)
	ListByUser(ctx context.Context, userID int64, page models.PageRequest) ([]models.Link, int64, error)
	Update(ctx context.Context, link *models.Link) error
	IncrementClicks(ctx context.Context, id int64) (int64, error)
	ResolvedByUser(ctx context.Context, userID int64) ([]models.ResolvedLink, error)
	Delete(ctx context.Context, id, userID int64) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

type linkRepository struct {
	db *PostgresDB
}

func NewLinkRepository(db *PostgresDB) LinkRepository {
	return &linkRepository{db: db}
}

const linkColumns = `id, user_id, original_url, short_code, remarks, status, clicks, expiration_date, created_at, updated_at`

func scanLink(row pgx.Row) (models.Link, error) {
	var link models.Link
	err := row.Scan(
		&link.ID,
		&link.UserID,
		&link.OriginalURL,
		&link.ShortCode,
		&link.Remarks,
		&link.Status,
		&link.Clicks,
		&link.ExpirationDate,
		&link.CreatedAt,
		&link.UpdatedAt,
	)
	return link, err
}

func (r *linkRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (user_id, original_url, short_code, remarks, status, clicks,
			expiration_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.db.conn(ctx).QueryRow(
		ctx,
		query,
		link.UserID,
		link.OriginalURL,
		link.ShortCode,
		link.Remarks,
		link.Status,
		link.Clicks,
		link.ExpirationDate,
		link.CreatedAt,
		link.UpdatedAt,
	).Scan(&link.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeExists
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.conn(ctx).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM links WHERE short_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check short code: %w", err)
	}
	return exists, nil
}

// GetByShortCode returns the link regardless of status or expiration.
func (r *linkRepository) GetByShortCode(ctx context.Context, code string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_code = $1`

	link, err := scanLink(r.db.conn(ctx).QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

func (r *linkRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1 AND user_id = $2`

	link, err := scanLink(r.db.conn(ctx).QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

func (r *linkRepository) ListByUser(ctx context.Context, userID int64, page models.PageRequest) ([]models.Link, int64, error) {
	base := `SELECT ` + linkColumns + ` FROM links WHERE user_id = $1`

	return paginate[models.Link](ctx, r.db.conn(ctx), base, "created_at DESC, id DESC", []any{userID}, page,
		func(row pgx.CollectableRow) (models.Link, error) { return scanLink(row) })
}

// Update writes every mutable column of a link owned by link.UserID.
func (r *linkRepository) Update(ctx context.Context, link *models.Link) error {
	query := `
		UPDATE links
		SET original_url = $3, remarks = $4, status = $5, expiration_date = $6, updated_at = $7
		WHERE id = $1 AND user_id = $2
	`

	tag, err := r.db.conn(ctx).Exec(ctx, query,
		link.ID,
		link.UserID,
		link.OriginalURL,
		link.Remarks,
		link.Status,
		link.ExpirationDate,
		link.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// IncrementClicks bumps the counter of an active link and returns the new
// value. Inactive or missing links report ErrLinkNotFound.
func (r *linkRepository) IncrementClicks(ctx context.Context, id int64) (int64, error) {
	query := `
		UPDATE links
		SET clicks = clicks + 1, updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING clicks
	`

	var clicks int64
	if err := r.db.conn(ctx).QueryRow(ctx, query, id).Scan(&clicks); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrLinkNotFound
		}
		return 0, fmt.Errorf("failed to increment clicks: %w", err)
	}
	return clicks, nil
}

// ResolvedByUser lists the identity of every link owned by userID.
func (r *linkRepository) ResolvedByUser(ctx context.Context, userID int64) ([]models.ResolvedLink, error) {
	query := `SELECT id, short_code, original_url, status FROM links WHERE user_id = $1`

	rows, err := r.db.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user links: %w", err)
	}

	links, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ResolvedLink, error) {
		var l models.ResolvedLink
		err := row.Scan(&l.ID, &l.ShortCode, &l.OriginalURL, &l.Status)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan user links: %w", err)
	}
	return links, nil
}

func (r *linkRepository) Delete(ctx context.Context, id, userID int64) error {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM links WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrLinkNotFound
	}

	return nil
}

func (r *linkRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM links WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user links: %w", err)
	}
	return result.RowsAffected(), nil
}

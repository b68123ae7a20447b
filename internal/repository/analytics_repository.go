package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/jackc/pgx/v5"
)

type AnalyticsRepository interface {
	Record(ctx context.Context, event *models.AnalyticsEvent) error
	ListForUser(ctx context.Context, userID int64, page models.PageRequest) ([]models.EventWithLink, int64, error)
	ListAllForUser(ctx context.Context, userID int64) ([]models.EventWithLink, error)
	DailyForUser(ctx context.Context, userID int64) ([]models.DailyClicks, error)
	DevicesForUser(ctx context.Context, userID int64) ([]models.DeviceClicks, error)
	DeleteByLinkIDs(ctx context.Context, linkIDs []int64) (int64, error)
}

type analyticsRepository struct {
	db *PostgresDB
}

func NewAnalyticsRepository(db *PostgresDB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

const eventWithLinkQuery = `
	SELECT a.id, a.ip_address, a.device_type, a.user_agent, a.created_at, l.short_code, l.original_url
	FROM analytics a
	JOIN links l ON l.id = a.link_id
	WHERE l.user_id = $1
`

func scanEventWithLink(row pgx.CollectableRow) (models.EventWithLink, error) {
	var e models.EventWithLink
	err := row.Scan(
		&e.ID,
		&e.IPAddress,
		&e.DeviceType,
		&e.UserAgent,
		&e.CreatedAt,
		&e.ShortCode,
		&e.OriginalURL,
	)
	return e, err
}

func (r *analyticsRepository) Record(ctx context.Context, event *models.AnalyticsEvent) error {
	query := `
		INSERT INTO analytics (link_id, ip_address, device_type, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.conn(ctx).QueryRow(ctx, query,
		event.LinkID,
		event.IPAddress,
		event.DeviceType,
		event.UserAgent,
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to record analytics event: %w", err)
	}
	return nil
}

func (r *analyticsRepository) ListForUser(ctx context.Context, userID int64, page models.PageRequest) ([]models.EventWithLink, int64, error) {
	return paginate[models.EventWithLink](ctx, r.db.conn(ctx), eventWithLinkQuery, "created_at DESC, id DESC", []any{userID}, page, scanEventWithLink)
}

func (r *analyticsRepository) ListAllForUser(ctx context.Context, userID int64) ([]models.EventWithLink, error) {
	rows, err := r.db.conn(ctx).Query(ctx, eventWithLinkQuery+` ORDER BY a.created_at DESC, a.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analytics: %w", err)
	}

	events, err := pgx.CollectRows(rows, scanEventWithLink)
	if err != nil {
		return nil, fmt.Errorf("failed to scan analytics: %w", err)
	}
	return events, nil
}

// DailyForUser groups events by UTC calendar day, oldest first. The
// cumulative total is left for the caller to fill.
func (r *analyticsRepository) DailyForUser(ctx context.Context, userID int64) ([]models.DailyClicks, error) {
	query := `
		SELECT to_char(a.created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM analytics a
		JOIN links l ON l.id = a.link_id
		WHERE l.user_id = $1
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily clicks: %w", err)
	}

	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DailyClicks, error) {
		var d models.DailyClicks
		err := row.Scan(&d.Date, &d.DailyClicks)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan daily clicks: %w", err)
	}
	return days, nil
}

func (r *analyticsRepository) DevicesForUser(ctx context.Context, userID int64) ([]models.DeviceClicks, error) {
	query := `
		SELECT a.device_type, COUNT(*)
		FROM analytics a
		JOIN links l ON l.id = a.link_id
		WHERE l.user_id = $1
		GROUP BY a.device_type
	`

	rows, err := r.db.conn(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate device clicks: %w", err)
	}

	devices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DeviceClicks, error) {
		var d models.DeviceClicks
		err := row.Scan(&d.DeviceType, &d.TotalClicks)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan device clicks: %w", err)
	}
	return devices, nil
}

func (r *analyticsRepository) DeleteByLinkIDs(ctx context.Context, linkIDs []int64) (int64, error) {
	if len(linkIDs) == 0 {
		return 0, nil
	}

	result, err := r.db.conn(ctx).Exec(ctx, `DELETE FROM analytics WHERE link_id = ANY($1)`, linkIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete analytics: %w", err)
	}
	return result.RowsAffected(), nil
}

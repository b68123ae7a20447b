package repository

import (
	"context"
	"fmt"

	"github.com/SergeiKhy/linktrack/internal/models"
	"github.com/jackc/pgx/v5"
)

// paginate runs baseQuery twice: once wrapped in COUNT(*) for the total and
// once with orderBy, LIMIT and OFFSET appended for the requested page.
// baseQuery must not carry its own ORDER BY or LIMIT.
func paginate[T any](
	ctx context.Context,
	q querier,
	baseQuery string,
	orderBy string,
	args []any,
	page models.PageRequest,
	scan pgx.RowToFunc[T],
) ([]T, int64, error) {
	page = page.Normalize()

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM (%s) AS page_src", baseQuery)
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count rows: %w", err)
	}
	if total == 0 {
		return []T{}, 0, nil
	}

	n := len(args)
	pageQuery := fmt.Sprintf("%s ORDER BY %s LIMIT $%d OFFSET $%d", baseQuery, orderBy, n+1, n+2)
	pageArgs := append(append([]any{}, args...), page.Limit, page.Offset())

	rows, err := q.Query(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query page: %w", err)
	}
	defer rows.Close()

	items := make([]T, 0, page.Limit)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, total, nil
}

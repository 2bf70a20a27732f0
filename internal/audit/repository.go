package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stockdesk/stockdesk/internal/platform/db"
)

// Repository menyediakan akses baca ke tabel audit_log.
type Repository interface {
	Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error)
	All(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	exec *db.Executor
}

// NewRepository membuat repository audit berbasis executor.
func NewRepository(exec *db.Executor) Repository {
	return &repository{exec: exec}
}

const timelineColumns = `occurred_at, actor, action, detail, COALESCE(meta::text, '') AS meta`

// buildWhere menyusun klausa WHERE dari filter aktif. Fragmen klausa
// statis; nilai hanya lewat daftar parameter.
func buildWhere(filters TimelineFilters) (string, []any) {
	clauses := []string{}
	params := []any{}
	if !filters.From.IsZero() {
		params = append(params, filters.From.UTC())
		clauses = append(clauses, fmt.Sprintf("occurred_at >= $%d", len(params)))
	}
	if !filters.To.IsZero() {
		params = append(params, filters.To.UTC().Add(24*time.Hour))
		clauses = append(clauses, fmt.Sprintf("occurred_at < $%d", len(params)))
	}
	if actor := strings.TrimSpace(filters.Actor); actor != "" {
		params = append(params, actor)
		clauses = append(clauses, fmt.Sprintf("actor = $%d", len(params)))
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		params = append(params, action)
		clauses = append(clauses, fmt.Sprintf("action = $%d", len(params)))
	}
	if len(clauses) == 0 {
		return "TRUE", params
	}
	return strings.Join(clauses, " AND "), params
}

func (r *repository) Window(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	where, params := buildWhere(filters)
	params = append(params, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM audit_log WHERE %s ORDER BY occurred_at DESC LIMIT $%d OFFSET $%d`,
		timelineColumns, where, len(params)-1, len(params))
	rows, err := r.exec.SelectAll(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	return mapRows(rows), nil
}

func (r *repository) All(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	where, params := buildWhere(filters)
	query := fmt.Sprintf(`SELECT %s FROM audit_log WHERE %s ORDER BY occurred_at DESC`, timelineColumns, where)
	rows, err := r.exec.SelectAll(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	return mapRows(rows), nil
}

// DeleteBefore menghapus baris audit yang lebih tua dari cutoff.
func (r *repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.exec.Delete(ctx, "audit_log", "occurred_at < $1", cutoff.UTC())
}

func mapRows(rows []db.Row) []TimelineRow {
	result := make([]TimelineRow, 0, len(rows))
	for _, row := range rows {
		entry := TimelineRow{}
		if at, ok := row["occurred_at"].(time.Time); ok {
			entry.At = at
		}
		if actor, ok := row["actor"].(string); ok {
			entry.Actor = actor
		}
		if action, ok := row["action"].(string); ok {
			entry.Action = action
		}
		if detail, ok := row["detail"].(string); ok {
			entry.Detail = detail
		}
		if meta, ok := row["meta"].(string); ok {
			entry.Meta = meta
		}
		result = append(result, entry)
	}
	return result
}

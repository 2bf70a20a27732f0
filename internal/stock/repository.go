package stock

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockdesk/stockdesk/internal/platform/db"
)

// TxRepository exposes the row operations available inside a bulk
// transaction.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, tagID string) (*Item, error)
	DeleteItem(ctx context.Context, tagID string) (int64, error)
}

// Repository persists inventory items through the query executor.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Item, int, error)
	GetItem(ctx context.Context, tagID string) (*Item, error)
}

type repository struct {
	pool *pgxpool.Pool
	exec *db.Executor
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, exec *db.Executor) Repository {
	return &repository{pool: pool, exec: exec}
}

type txRepository struct {
	exec *db.Executor
}

// WithTx executes fn inside a single transaction. Begin/commit failures come
// back as shared.TransactionError; anything fn returns passes through
// unchanged and triggers rollback.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{exec: r.exec.WithQuerier(tx)})
	})
}

const itemColumns = `tag_id, item_code, qty_on_hand, qty_allocated, location_id`

func (r *repository) GetItem(ctx context.Context, tagID string) (*Item, error) {
	row, err := r.exec.SelectOne(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE tag_id = $1`, tagID)
	if err != nil {
		return nil, err
	}
	return itemFromRow(row), nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	search := "%" + filter.Search + "%"

	countRow, err := r.exec.SelectOne(ctx, `SELECT COUNT(*)::bigint AS total
FROM inventory_items
WHERE ($1 = '%%' OR tag_id ILIKE $1 OR item_code ILIKE $1)
AND ($2 = '' OR location_id = $2)`, search, filter.Location)
	if err != nil {
		return nil, 0, err
	}
	total := 0
	if countRow != nil {
		if n, ok := countRow["total"].(int64); ok {
			total = int(n)
		}
	}

	rows, err := r.exec.SelectAll(ctx, `SELECT `+itemColumns+`
FROM inventory_items
WHERE ($1 = '%%' OR tag_id ILIKE $1 OR item_code ILIKE $1)
AND ($2 = '' OR location_id = $2)
ORDER BY tag_id ASC
LIMIT $3 OFFSET $4`, search, filter.Location, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		if item := itemFromRow(row); item != nil {
			items = append(items, *item)
		}
	}
	return items, total, nil
}

// GetItemForUpdate locks the row for the duration of the transaction so a
// concurrent allocation check cannot race the delete decision.
func (r *txRepository) GetItemForUpdate(ctx context.Context, tagID string) (*Item, error) {
	row, err := r.exec.SelectOne(ctx, `SELECT `+itemColumns+` FROM inventory_items WHERE tag_id = $1 FOR UPDATE`, tagID)
	if err != nil {
		return nil, err
	}
	return itemFromRow(row), nil
}

func (r *txRepository) DeleteItem(ctx context.Context, tagID string) (int64, error) {
	return r.exec.Delete(ctx, "inventory_items", "tag_id = $1", tagID)
}

func itemFromRow(row db.Row) *Item {
	if row == nil {
		return nil
	}
	item := &Item{}
	if v, ok := row["tag_id"].(string); ok {
		item.TagID = v
	}
	if v, ok := row["item_code"].(string); ok {
		item.ItemCode = v
	}
	if v, ok := row["qty_on_hand"].(int64); ok {
		item.QtyOnHand = v
	}
	if v, ok := row["qty_allocated"].(int64); ok {
		item.QtyAllocated = v
	}
	if v, ok := row["location_id"].(string); ok {
		item.LocationID = v
	}
	return item
}

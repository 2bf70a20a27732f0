package clients

import (
	"context"

	"github.com/stockdesk/stockdesk/internal/platform/db"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Repository reads client rows through the query executor.
type Repository interface {
	Get(ctx context.Context, id int64) (Client, error)
	List(ctx context.Context) ([]Client, error)
}

type repository struct {
	exec *db.Executor
}

// NewRepository constructs a Repository.
func NewRepository(exec *db.Executor) Repository {
	return &repository{exec: exec}
}

func (r *repository) Get(ctx context.Context, id int64) (Client, error) {
	row, err := r.exec.SelectOne(ctx, `SELECT id, client_name FROM clients WHERE id = $1`, id)
	if err != nil {
		return Client{}, err
	}
	if row == nil {
		return Client{}, shared.ErrNotFound
	}
	return fromRow(row), nil
}

func (r *repository) List(ctx context.Context) ([]Client, error) {
	rows, err := r.exec.SelectAll(ctx, `SELECT id, client_name FROM clients ORDER BY client_name ASC`)
	if err != nil {
		return nil, err
	}
	result := make([]Client, 0, len(rows))
	for _, row := range rows {
		result = append(result, fromRow(row))
	}
	return result, nil
}

func fromRow(row db.Row) Client {
	c := Client{}
	if id, ok := row["id"].(int64); ok {
		c.ID = id
	}
	if name, ok := row["client_name"].(string); ok {
		c.ClientName = name
	}
	return c
}

package sku

import (
	"context"
	"time"

	"github.com/stockdesk/stockdesk/internal/platform/db"
)

// Repository persists SKU records through the query executor. Every query is
// a fixed template; values only travel through the parameter list.
type Repository interface {
	FindByCode(ctx context.Context, itemCode string) (*Record, error)
	InventorySummary(ctx context.Context, itemCode string) (InventorySummary, error)
	UpdateFields(ctx context.Context, itemCode string, in UpdateInput) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]Record, int, error)
}

type repository struct {
	exec *db.Executor
}

// NewRepository constructs a Repository.
func NewRepository(exec *db.Executor) Repository {
	return &repository{exec: exec}
}

const recordColumns = `s.item_code, s.description, s.pack_config, s.ean, s.serial_number,
s.origin, s.dimension, s.product_group, s.client_id, c.client_name, s.fragile,
s.high_security, s.unit_weight, s.each_weight, s.packed_weight, s.last_updated`

func (r *repository) FindByCode(ctx context.Context, itemCode string) (*Record, error) {
	row, err := r.exec.SelectOne(ctx, `SELECT `+recordColumns+`
FROM sku_records s
JOIN clients c ON c.id = s.client_id
WHERE s.item_code = $1`, itemCode)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	rec := recordFromRow(row)
	return &rec, nil
}

func (r *repository) InventorySummary(ctx context.Context, itemCode string) (InventorySummary, error) {
	row, err := r.exec.SelectOne(ctx, `SELECT
COALESCE(SUM(qty_on_hand), 0)::bigint AS total_on_hand,
COALESCE(SUM(qty_allocated), 0)::bigint AS total_allocated,
COALESCE(SUM(qty_on_hand - qty_allocated), 0)::bigint AS total_available,
COUNT(DISTINCT location_id)::bigint AS location_count
FROM inventory_items
WHERE item_code = $1`, itemCode)
	if err != nil {
		return InventorySummary{}, err
	}
	summary := InventorySummary{}
	if row == nil {
		return summary, nil
	}
	summary.TotalOnHand = asInt64(row["total_on_hand"])
	summary.TotalAllocated = asInt64(row["total_allocated"])
	summary.TotalAvailable = asInt64(row["total_available"])
	summary.LocationCount = asInt64(row["location_count"])
	return summary, nil
}

func (r *repository) UpdateFields(ctx context.Context, itemCode string, in UpdateInput) (int64, error) {
	fields := []db.Field{
		{Column: "description", Value: in.Description},
		{Column: "pack_config", Value: in.PackConfig},
		{Column: "ean", Value: in.EAN},
		{Column: "serial_number", Value: in.SerialNumber},
		{Column: "origin", Value: in.Origin},
		{Column: "dimension", Value: in.Dimension},
		{Column: "product_group", Value: in.ProductGroup},
		{Column: "client_id", Value: in.ClientID},
		{Column: "fragile", Value: in.Fragile},
		{Column: "high_security", Value: in.HighSecurity},
		{Column: "unit_weight", Value: in.UnitWeight},
		{Column: "each_weight", Value: in.EachWeight},
		{Column: "packed_weight", Value: in.PackedWeight},
		{Column: "last_updated", Value: time.Now().UTC()},
	}
	return r.exec.Update(ctx, "sku_records", fields, "item_code = $1", itemCode)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Record, int, error) {
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	search := "%" + filter.Search + "%"

	countRow, err := r.exec.SelectOne(ctx, `SELECT COUNT(*)::bigint AS total
FROM sku_records s
WHERE ($1 = '%%' OR s.item_code ILIKE $1 OR s.description ILIKE $1)
AND ($2 = 0 OR s.client_id = $2)`, search, filter.ClientID)
	if err != nil {
		return nil, 0, err
	}
	total := int(asInt64(countRow["total"]))

	rows, err := r.exec.SelectAll(ctx, `SELECT `+recordColumns+`
FROM sku_records s
JOIN clients c ON c.id = s.client_id
WHERE ($1 = '%%' OR s.item_code ILIKE $1 OR s.description ILIKE $1)
AND ($2 = 0 OR s.client_id = $2)
ORDER BY s.item_code ASC
LIMIT $3 OFFSET $4`, search, filter.ClientID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromRow(row))
	}
	return records, total, nil
}

func recordFromRow(row db.Row) Record {
	rec := Record{
		ItemCode:     asString(row["item_code"]),
		Description:  asString(row["description"]),
		PackConfig:   asString(row["pack_config"]),
		EAN:          asString(row["ean"]),
		SerialNumber: asString(row["serial_number"]),
		Origin:       asString(row["origin"]),
		Dimension:    asString(row["dimension"]),
		ProductGroup: asString(row["product_group"]),
		ClientID:     asInt64(row["client_id"]),
		ClientName:   asString(row["client_name"]),
		UnitWeight:   asFloat64(row["unit_weight"]),
		EachWeight:   asFloat64(row["each_weight"]),
		PackedWeight: asFloat64(row["packed_weight"]),
	}
	if v, ok := row["fragile"].(bool); ok {
		rec.Fragile = v
	}
	if v, ok := row["high_security"].(bool); ok {
		rec.HighSecurity = v
	}
	if v, ok := row["last_updated"].(time.Time); ok {
		rec.LastUpdated = v
	}
	return rec
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int32:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

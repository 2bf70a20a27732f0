// Package stock manages inventory line items, including the transactional
// bulk delete staff use to retire tags.
package stock

// Item models a row in inventory_items. One item is one physical tag.
type Item struct {
	TagID        string
	ItemCode     string
	QtyOnHand    int64
	QtyAllocated int64
	LocationID   string
}

// Deletable reports whether the business rule permits deletion. Allocated
// stock is reserved against outstanding demand and must never disappear;
// on-hand quantity alone does not block deletion.
func (i Item) Deletable() bool {
	return i.QtyAllocated <= 0
}

// BulkDeleteInput carries a delete batch.
type BulkDeleteInput struct {
	TagIDs []string
	Actor  string
}

// BulkDeleteResult reports per-row outcomes. Deleted == 0 with non-empty
// RowErrors means nothing succeeded; both non-zero means partial success.
type BulkDeleteResult struct {
	Deleted   int
	RowErrors []string
}

// ListFilter narrows the inventory list page.
type ListFilter struct {
	Search   string
	Location string
	Page     int
	PerPage  int
}

// Package sku manages SKU master records: JSON lookup for integrations and
// the staff edit form.
package sku

import "time"

// Record models a row in sku_records joined with its owning client.
type Record struct {
	ItemCode     string
	Description  string
	PackConfig   string
	EAN          string
	SerialNumber string
	Origin       string
	Dimension    string
	ProductGroup string
	ClientID     int64
	ClientName   string
	Fragile      bool
	HighSecurity bool
	UnitWeight   float64
	EachWeight   float64
	PackedWeight float64
	LastUpdated  time.Time
}

// InventorySummary aggregates stock per SKU. Absent rows sum to typed zeros,
// never null.
type InventorySummary struct {
	TotalOnHand    int64 `json:"total_on_hand"`
	TotalAllocated int64 `json:"total_allocated"`
	TotalAvailable int64 `json:"total_available"`
	LocationCount  int64 `json:"location_count"`
}

// LookupResult is the wire shape of the SKU lookup endpoint.
type LookupResult struct {
	SkuID        string            `json:"sku_id"`
	Description  string            `json:"description"`
	PackConfig   string            `json:"pack_config"`
	ClientID     int64             `json:"client_id"`
	ClientName   string            `json:"client_name"`
	ProductGroup string            `json:"product_group"`
	EAN          string            `json:"ean"`
	Fragile      bool              `json:"fragile"`
	HighSecurity bool              `json:"high_security"`
	EachWeight   float64           `json:"each_weight"`
	PackedWeight float64           `json:"packed_weight"`
	Found        bool              `json:"found"`
	Timestamp    time.Time         `json:"timestamp"`
	APIVersion   string            `json:"api_version"`
	Inventory    *InventorySummary `json:"inventory,omitempty"`
}

// UpdateInput carries the editable fields of a SKU record. The field set is
// the update allow-list; anything else on the form is ignored at the type
// level.
type UpdateInput struct {
	Description  string  `validate:"required,max=255"`
	PackConfig   string  `validate:"max=64"`
	EAN          string  `validate:"max=32"`
	SerialNumber string  `validate:"max=64"`
	Origin       string  `validate:"max=64"`
	Dimension    string  `validate:"max=64"`
	ProductGroup string  `validate:"max=64"`
	ClientID     int64   `validate:"required,gt=0"`
	Fragile      bool
	HighSecurity bool
	UnitWeight   float64 `validate:"gte=0"`
	EachWeight   float64 `validate:"gte=0"`
	PackedWeight float64 `validate:"gte=0"`
}

// ListFilter narrows the SKU list page.
type ListFilter struct {
	Search   string
	ClientID int64
	Page     int
	PerPage  int
}

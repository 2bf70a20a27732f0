// Package clients holds the client master data referenced by SKU records and
// inventory items. Clients are read here, never created or deleted.
package clients

// Client represents an owning client account.
type Client struct {
	ID         int64  `json:"id"`
	ClientName string `json:"client_name"`
}

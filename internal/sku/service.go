package sku

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stockdesk/stockdesk/internal/clients"
	"github.com/stockdesk/stockdesk/internal/input"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// APIVersion is reported on every lookup response.
const APIVersion = "2.0"

// Lookup rate limit policy: general API reads.
const (
	lookupRateMax    = 60
	lookupRateWindow = 300 * time.Second
)

// LimiterPort abstracts the rate limiter.
type LimiterPort interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) error
}

// ClientPort resolves client references during updates.
type ClientPort interface {
	Get(ctx context.Context, id int64) (clients.Client, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service coordinates SKU lookups and updates.
type Service struct {
	repo    Repository
	clients ClientPort
	limiter LimiterPort
	audit   AuditPort
	lookups singleflight.Group
}

// NewService builds a Service.
func NewService(repo Repository, clients ClientPort, limiter LimiterPort, audit AuditPort) *Service {
	return &Service{repo: repo, clients: clients, limiter: limiter, audit: audit}
}

// Lookup applies the read rate limit for identity, validates the code and
// returns the lookup payload. The limiter runs first so malformed requests
// consume budget like any other. An unknown but well-formed code yields
// Found=false, not an error. Concurrent identical lookups are collapsed.
func (s *Service) Lookup(ctx context.Context, identity, rawCode string, includeInventory bool) (LookupResult, error) {
	if s.limiter != nil {
		if err := s.limiter.Allow(ctx, "sku_lookup:"+identity, lookupRateMax, lookupRateWindow); err != nil {
			return LookupResult{}, err
		}
	}
	code, err := input.ValidateItemCode(rawCode)
	if err != nil {
		return LookupResult{}, err
	}

	key := fmt.Sprintf("%s:%t", code, includeInventory)
	v, err, _ := s.lookups.Do(key, func() (any, error) {
		return s.buildLookup(ctx, code, includeInventory)
	})
	if err != nil {
		return LookupResult{}, err
	}
	result := v.(LookupResult)
	result.Timestamp = time.Now().UTC()
	return result, nil
}

func (s *Service) buildLookup(ctx context.Context, code string, includeInventory bool) (LookupResult, error) {
	rec, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return LookupResult{}, err
	}
	result := LookupResult{SkuID: code, APIVersion: APIVersion}
	if rec == nil {
		return result, nil
	}
	result.Found = true
	result.Description = rec.Description
	result.PackConfig = rec.PackConfig
	result.ClientID = rec.ClientID
	result.ClientName = rec.ClientName
	result.ProductGroup = rec.ProductGroup
	result.EAN = rec.EAN
	result.Fragile = rec.Fragile
	result.HighSecurity = rec.HighSecurity
	result.EachWeight = rec.EachWeight
	result.PackedWeight = rec.PackedWeight

	if includeInventory {
		summary, err := s.repo.InventorySummary(ctx, code)
		if err != nil {
			return LookupResult{}, err
		}
		result.Inventory = &summary
	}
	return result, nil
}

// Get returns the record for the edit form.
func (s *Service) Get(ctx context.Context, rawCode string) (*Record, error) {
	code, err := input.ValidateItemCode(rawCode)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

// Update applies an allow-listed field update and returns the affected row
// count. Zero affected rows is a valid outcome the handler reports
// distinctly; it is not an error.
func (s *Service) Update(ctx context.Context, identity, rawCode string, in UpdateInput) (int64, error) {
	code, err := input.ValidateItemCode(rawCode)
	if err != nil {
		return 0, err
	}
	desc, err := input.RequireString("description", in.Description, 255)
	if err != nil {
		return 0, err
	}
	in.Description = desc
	if in.UnitWeight < 0 || in.EachWeight < 0 || in.PackedWeight < 0 {
		return 0, shared.NewValidationError("weight", "must be zero or positive")
	}
	if in.ClientID <= 0 {
		return 0, shared.NewValidationError("client_id", "must reference a client")
	}
	var clientName string
	if s.clients != nil {
		client, err := s.clients.Get(ctx, in.ClientID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return 0, shared.NewValidationError("client_id", "unknown client")
			}
			return 0, err
		}
		clientName = client.ClientName
	}

	affected, err := s.repo.UpdateFields(ctx, code, in)
	if err != nil {
		return 0, err
	}
	if affected > 0 && s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditEntry{
			Actor:  identity,
			Action: "sku:update",
			Detail: "updated SKU " + code,
			Meta:   map[string]any{"item_code": code, "client_id": in.ClientID, "client": clientName},
		})
	}
	return affected, nil
}

// List returns records for the SKU list page.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Record, int, error) {
	filter.Search = input.SanitizeString(filter.Search, 64)
	return s.repo.List(ctx, filter)
}

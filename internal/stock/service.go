package stock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/stockdesk/stockdesk/internal/input"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Bulk destructive operations above this batch size consume the bulk rate
// budget.
const bulkThreshold = 10

// Bulk delete rate limit policy.
const (
	bulkRateMax    = 3
	bulkRateWindow = 3600 * time.Second
)

// LimiterPort abstracts the rate limiter.
type LimiterPort interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// Service coordinates inventory item operations.
type Service struct {
	repo    Repository
	limiter LimiterPort
	audit   AuditPort
	logger  *slog.Logger
}

// NewService builds a Service.
func NewService(repo Repository, limiter LimiterPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, limiter: limiter, audit: audit, logger: logger}
}

// BulkDelete removes many items as one unit of work with per-row outcome
// reporting. Business-rule rejections are recovered locally as row errors;
// infrastructure failures during commit abort the whole batch and nothing is
// durable.
func (s *Service) BulkDelete(ctx context.Context, in BulkDeleteInput) (BulkDeleteResult, error) {
	tagIDs := dedupeValid(in.TagIDs)
	if len(tagIDs) == 0 {
		return BulkDeleteResult{}, shared.NewValidationError("tag_ids", "no valid items")
	}

	if len(tagIDs) > bulkThreshold && s.limiter != nil {
		if err := s.limiter.Allow(ctx, "bulk_delete:"+in.Actor, bulkRateMax, bulkRateWindow); err != nil {
			return BulkDeleteResult{}, err
		}
	}

	result := BulkDeleteResult{RowErrors: []string{}}
	var entries []shared.AuditEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, tagID := range tagIDs {
			if err := s.deleteOne(ctx, tx, tagID, in.Actor, &result, &entries); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var txErr *shared.TransactionError
		if !errors.As(err, &txErr) {
			err = &shared.TransactionError{Err: err}
		}
		s.logger.Error("bulk delete aborted", slog.Any("error", err), slog.Int("batch", len(tagIDs)))
		return BulkDeleteResult{}, err
	}
	// Audit rows must describe durable deletions only, so they are written
	// after the commit. A rolled-back batch leaves no trail.
	if s.audit != nil {
		for _, entry := range entries {
			if err := s.audit.Record(ctx, entry); err != nil {
				s.logger.Warn("audit write failed", slog.Any("error", err))
			}
		}
	}
	return result, nil
}

// deleteOne handles a single tag inside the batch loop. Row-level outcomes
// land in result; only failures that must abort the transaction are returned.
func (s *Service) deleteOne(ctx context.Context, tx TxRepository, tagID, actor string, result *BulkDeleteResult, entries *[]shared.AuditEntry) error {
	item, err := tx.GetItemForUpdate(ctx, tagID)
	if err != nil {
		// A failed row read inside an open transaction usually means the
		// connection itself is gone; keep going so healthy rows still
		// resolve, commit decides the final outcome.
		s.logger.Warn("bulk delete row lookup failed", slog.String("tag_id", tagID), slog.Any("error", err))
		result.RowErrors = append(result.RowErrors, tagID+" error")
		return nil
	}
	if item == nil {
		result.RowErrors = append(result.RowErrors, tagID+" not found")
		return nil
	}
	if !item.Deletable() {
		result.RowErrors = append(result.RowErrors, tagID+" blocked: allocated quantity")
		return nil
	}
	affected, err := tx.DeleteItem(ctx, tagID)
	if err != nil {
		s.logger.Warn("bulk delete row failed", slog.String("tag_id", tagID), slog.Any("error", err))
		result.RowErrors = append(result.RowErrors, tagID+" error")
		return nil
	}
	if affected == 0 {
		result.RowErrors = append(result.RowErrors, tagID+" not found")
		return nil
	}
	result.Deleted++
	*entries = append(*entries, shared.AuditEntry{
		Actor:  actor,
		Action: "stock:bulk_delete",
		Detail: "deleted inventory tag " + tagID,
		Meta:   map[string]any{"tag_id": tagID, "item_code": item.ItemCode},
	})
	return nil
}

// List returns inventory items for the stock page.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	filter.Search = input.SanitizeString(filter.Search, 64)
	filter.Location = input.SanitizeString(filter.Location, 32)
	return s.repo.List(ctx, filter)
}

// dedupeValid validates every supplied identifier and silently drops
// malformed or duplicate ones, preserving first-seen order.
func dedupeValid(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, candidate := range raw {
		tagID, err := input.ValidateTagID(candidate)
		if err != nil {
			continue
		}
		if seen[tagID] {
			continue
		}
		seen[tagID] = true
		out = append(out, tagID)
	}
	return out
}

package stock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/stockdesk/stockdesk/internal/ratelimit"
	"github.com/stockdesk/stockdesk/internal/shared"
)

type memoryRepo struct {
	items     map[string]Item
	commitErr error
	rowErr    map[string]error
}

type memoryTx struct {
	repo   *memoryRepo
	staged map[string]Item
}

func newMemoryRepo(items ...Item) *memoryRepo {
	repo := &memoryRepo{items: make(map[string]Item), rowErr: make(map[string]error)}
	for _, item := range items {
		repo.items[item.TagID] = item
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := make(map[string]Item, len(r.items))
	for k, v := range r.items {
		staged[k] = v
	}
	tx := &memoryTx{repo: r, staged: staged}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if r.commitErr != nil {
		return &shared.TransactionError{Err: r.commitErr}
	}
	r.items = staged
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	out := make([]Item, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, len(out), nil
}

func (r *memoryRepo) GetItem(ctx context.Context, tagID string) (*Item, error) {
	if item, ok := r.items[tagID]; ok {
		return &item, nil
	}
	return nil, nil
}

func (tx *memoryTx) GetItemForUpdate(ctx context.Context, tagID string) (*Item, error) {
	if err := tx.repo.rowErr[tagID]; err != nil {
		return nil, err
	}
	if item, ok := tx.staged[tagID]; ok {
		return &item, nil
	}
	return nil, nil
}

func (tx *memoryTx) DeleteItem(ctx context.Context, tagID string) (int64, error) {
	if _, ok := tx.staged[tagID]; !ok {
		return 0, nil
	}
	delete(tx.staged, tagID)
	return 1, nil
}

type memoryAudit struct {
	entries []shared.AuditEntry
	err     error
}

func (a *memoryAudit) Record(ctx context.Context, entry shared.AuditEntry) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, entry)
	return nil
}

func newLimiter(t *testing.T) *ratelimit.Limiter {
	t.Helper()
	mr := miniredis.RunT(t)
	return ratelimit.NewLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestBulkDeletePartialSuccess(t *testing.T) {
	repo := newMemoryRepo(
		Item{TagID: "T1", ItemCode: "SKU1", QtyOnHand: 4, QtyAllocated: 0},
		Item{TagID: "T2", ItemCode: "SKU2", QtyOnHand: 9, QtyAllocated: 5},
	)
	audit := &memoryAudit{}
	svc := NewService(repo, newLimiter(t), audit, nil)

	result, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: []string{"T1", "T2", "T3"}, Actor: "7"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Deleted)
	require.Equal(t, []string{"T2 blocked: allocated quantity", "T3 not found"}, result.RowErrors)

	// T1 durably gone, T2 untouched.
	gone, err := repo.GetItem(context.Background(), "T1")
	require.NoError(t, err)
	require.Nil(t, gone)
	kept, err := repo.GetItem(context.Background(), "T2")
	require.NoError(t, err)
	require.NotNil(t, kept)

	require.Len(t, audit.entries, 1)
	require.Equal(t, "stock:bulk_delete", audit.entries[0].Action)
	require.Equal(t, "7", audit.entries[0].Actor)
}

func TestAllocatedItemNeverDeleted(t *testing.T) {
	for _, order := range [][]string{
		{"A1", "A2", "A3"},
		{"A3", "A2", "A1"},
		{"A2", "A1", "A3"},
	} {
		repo := newMemoryRepo(
			Item{TagID: "A1", QtyOnHand: 0, QtyAllocated: 1},
			Item{TagID: "A2", QtyOnHand: 100, QtyAllocated: 100},
			Item{TagID: "A3", QtyOnHand: 10, QtyAllocated: 0},
		)
		svc := NewService(repo, nil, nil, nil)

		result, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: order, Actor: "1"})
		require.NoError(t, err)
		require.Equal(t, 1, result.Deleted)

		for _, tagID := range []string{"A1", "A2"} {
			item, err := repo.GetItem(context.Background(), tagID)
			require.NoError(t, err)
			require.NotNil(t, item, "allocated item %s must survive", tagID)
		}
	}
}

func TestBulkDeleteAccountingIdentity(t *testing.T) {
	repo := newMemoryRepo(
		Item{TagID: "B1", QtyAllocated: 0},
		Item{TagID: "B2", QtyAllocated: 3},
		Item{TagID: "B3", QtyAllocated: 0},
	)
	svc := NewService(repo, nil, nil, nil)

	batch := []string{"B1", "B2", "B3", "B4", "B1", "bad id!", "B2"}
	result, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: batch, Actor: "1"})
	require.NoError(t, err)

	// Deduplicated, validated batch is B1..B4.
	require.Equal(t, 4, result.Deleted+len(result.RowErrors))
	require.Equal(t, 2, result.Deleted)
}

func TestBulkDeleteNoValidItems(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, nil)

	for _, batch := range [][]string{nil, {}, {"", "   ", "a b", "x;y"}} {
		_, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: batch, Actor: "1"})
		require.Error(t, err)
		require.True(t, shared.IsValidation(err))
	}
}

func TestBulkDeleteRateLimitAboveThreshold(t *testing.T) {
	limiter := newLimiter(t)
	batch := make([]string, 11)
	for i := range batch {
		batch[i] = "T" + string(rune('A'+i))
	}

	for i := 0; i < 3; i++ {
		repo := newMemoryRepo()
		for _, tagID := range batch {
			repo.items[tagID] = Item{TagID: tagID}
		}
		svc := NewService(repo, limiter, nil, nil)
		_, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: batch, Actor: "7"})
		require.NoError(t, err)
	}

	repo := newMemoryRepo(Item{TagID: "TA"})
	svc := NewService(repo, limiter, nil, nil)
	_, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: batch, Actor: "7"})
	require.True(t, shared.IsRateLimited(err))

	// No row was touched after the limit rejection.
	item, getErr := repo.GetItem(context.Background(), "TA")
	require.NoError(t, getErr)
	require.NotNil(t, item)

	// Small batches never consume the bulk budget.
	_, err = svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: []string{"TA"}, Actor: "7"})
	require.NoError(t, err)
}

func TestBulkDeleteCommitFailureIsAtomic(t *testing.T) {
	repo := newMemoryRepo(
		Item{TagID: "C1", QtyAllocated: 0},
		Item{TagID: "C2", QtyAllocated: 0},
	)
	repo.commitErr = errors.New("connection reset during commit")
	svc := NewService(repo, nil, nil, nil)

	result, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: []string{"C1", "C2"}, Actor: "1"})
	var txErr *shared.TransactionError
	require.ErrorAs(t, err, &txErr)
	require.Zero(t, result.Deleted)

	// Rows that appeared deleted during the loop are still present.
	for _, tagID := range []string{"C1", "C2"} {
		item, err := repo.GetItem(context.Background(), tagID)
		require.NoError(t, err)
		require.NotNil(t, item)
	}
}

func TestBulkDeleteCommitFailureWritesNoAudit(t *testing.T) {
	repo := newMemoryRepo(Item{TagID: "P1", QtyAllocated: 0})
	repo.commitErr = errors.New("connection reset during commit")
	audit := &memoryAudit{}
	svc := NewService(repo, nil, audit, nil)

	_, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: []string{"P1"}, Actor: "1"})
	var txErr *shared.TransactionError
	require.ErrorAs(t, err, &txErr)

	// The rolled-back deletion must leave no trail claiming P1 was removed.
	item, getErr := repo.GetItem(context.Background(), "P1")
	require.NoError(t, getErr)
	require.NotNil(t, item)
	require.Empty(t, audit.entries)
}

func TestBulkDeleteIdempotentRedelete(t *testing.T) {
	repo := newMemoryRepo(Item{TagID: "D1", QtyAllocated: 0})
	svc := NewService(repo, nil, nil, nil)

	first, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: []string{"D1"}, Actor: "1"})
	require.NoError(t, err)
	require.Equal(t, 1, first.Deleted)

	second, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: []string{"D1"}, Actor: "1"})
	require.NoError(t, err)
	require.Zero(t, second.Deleted)
	require.Equal(t, []string{"D1 not found"}, second.RowErrors)
}

func TestBulkDeleteRowStorageFailureContinues(t *testing.T) {
	repo := newMemoryRepo(
		Item{TagID: "E1", QtyAllocated: 0},
		Item{TagID: "E2", QtyAllocated: 0},
	)
	repo.rowErr["E1"] = &shared.StorageError{Op: "select one", Err: errors.New("row read failed")}
	svc := NewService(repo, nil, nil, nil)

	result, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: []string{"E1", "E2"}, Actor: "1"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Deleted)
	require.Equal(t, []string{"E1 error"}, result.RowErrors)
}

func TestAuditFailureDoesNotAbortDeletion(t *testing.T) {
	repo := newMemoryRepo(Item{TagID: "F1", QtyAllocated: 0})
	audit := &memoryAudit{err: errors.New("audit sink down")}
	svc := NewService(repo, nil, audit, nil)

	result, err := svc.BulkDelete(context.Background(), BulkDeleteInput{TagIDs: []string{"F1"}, Actor: "1"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Deleted)
}

func TestBulkRateWindowExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter := ratelimit.NewLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	require.NoError(t, limiter.Allow(context.Background(), "bulk_delete:9", 1, time.Hour))
	require.True(t, shared.IsRateLimited(limiter.Allow(context.Background(), "bulk_delete:9", 1, time.Hour)))

	mr.FastForward(time.Hour + time.Second)
	require.NoError(t, limiter.Allow(context.Background(), "bulk_delete:9", 1, time.Hour))
}

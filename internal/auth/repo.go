package auth

import (
	"context"
	"time"

	"github.com/stockdesk/stockdesk/internal/platform/db"
	"github.com/stockdesk/stockdesk/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// PGRepository implements Repository on PostgreSQL through the query
// executor.
type PGRepository struct {
	exec *db.Executor
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(exec *db.Executor) *PGRepository {
	return &PGRepository{exec: exec}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row, err := r.exec.SelectOne(ctx, `SELECT id, email, password_hash, is_active, created_at, updated_at
FROM users
WHERE email = $1`, email)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, shared.ErrNotFound
	}
	user := &User{}
	if id, ok := row["id"].(int64); ok {
		user.ID = id
	}
	if email, ok := row["email"].(string); ok {
		user.Email = email
	}
	if hash, ok := row["password_hash"].(string); ok {
		user.PasswordHash = hash
	}
	if active, ok := row["is_active"].(bool); ok {
		user.IsActive = active
	}
	if created, ok := row["created_at"].(time.Time); ok {
		user.CreatedAt = created
	}
	if updated, ok := row["updated_at"].(time.Time); ok {
		user.UpdatedAt = updated
	}
	return user, nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	var ipVal, uaVal any
	if ip != "" {
		ipVal = ip
	}
	if ua != "" {
		uaVal = ua
	}
	_, err := r.exec.Exec(ctx, `INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
VALUES ($1, $2, $3, $4, $5, $6)`, id, userID, time.Now().UTC(), expiresAt.UTC(), ipVal, uaVal)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.exec.Delete(ctx, "sessions", "id = $1", id)
	return err
}

// DeleteExpiredSessions prunes session rows whose expiry has passed. Used by
// the maintenance worker.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return r.exec.Delete(ctx, "sessions", "expires_at < $1", before.UTC())
}

var _ Repository = (*PGRepository)(nil)

package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotInitialized is returned by repositories built without a database handle.
var ErrNotInitialized = errors.New("repository not initialized")

// SessionRepository defines decoupled operations for session persistence.
type SessionRepository interface {
	// Upsert writes or overwrites the record for rec.UserID.
	Upsert(ctx context.Context, rec *TokenRecord) error
	// ListByUser returns the records of userID, most recent first.
	ListByUser(ctx context.Context, userID string) ([]TokenRecord, error)
	// ListExpiring returns records with a provider refresh token whose access
	// token expires at or before before.
	ListExpiring(ctx context.Context, before time.Time) ([]TokenRecord, error)
	// DeleteByUser removes every record of userID.
	DeleteByUser(ctx context.Context, userID string) error
}

// gormSessionRepo is a GORM-backed implementation of SessionRepository.
// Use constructor NewSessionRepository to obtain an instance.
type gormSessionRepo struct{ db *gorm.DB }

// NewSessionRepository creates a SessionRepository. Accepts *gorm.DB to avoid global access.
func NewSessionRepository(db *gorm.DB) SessionRepository { return &gormSessionRepo{db: db} }

func (r *gormSessionRepo) Upsert(ctx context.Context, rec *TokenRecord) error {
	if r.db == nil {
		return ErrNotInitialized
	}
	if rec == nil || rec.UserID == "" {
		return fmt.Errorf("session record requires a user id")
	}

	now := time.Now().UTC()
	row := *rec
	row.ID = 0
	row.ExpiresAt = row.ExpiresAt.UTC()
	row.CreatedAt = now
	row.UpdatedAt = now

	set := clause.AssignmentColumns([]string{"email", "access_token", "refresh_token", "session_refresh_token", "expires_at"})
	// updated_at never moves backwards, even if the wall clock does.
	set = append(set, clause.Assignment{
		Column: clause.Column{Name: "updated_at"},
		Value:  gorm.Expr("MAX(excluded.updated_at, sessions.updated_at)"),
	})

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: set,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to upsert session for user %s: %w", rec.UserID, err)
	}

	rec.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *gormSessionRepo) ListByUser(ctx context.Context, userID string) ([]TokenRecord, error) {
	if r.db == nil {
		return nil, ErrNotInitialized
	}
	records := []TokenRecord{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for user %s: %w", userID, err)
	}
	return records, nil
}

func (r *gormSessionRepo) ListExpiring(ctx context.Context, before time.Time) ([]TokenRecord, error) {
	if r.db == nil {
		return nil, ErrNotInitialized
	}
	records := []TokenRecord{}
	err := r.db.WithContext(ctx).
		Where("expires_at <= ? AND session_refresh_token <> ''", before.UTC()).
		Order("expires_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring sessions: %w", err)
	}
	return records, nil
}

func (r *gormSessionRepo) DeleteByUser(ctx context.Context, userID string) error {
	if r.db == nil {
		return ErrNotInitialized
	}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&TokenRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete sessions for user %s: %w", userID, err)
	}
	return nil
}

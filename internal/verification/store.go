package verification

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/homegrid/homegrid/internal/models"
)

// Store persists verification codes. All lookups scope to a single
// (user, channel) pair; at most one record per pair is active at a time,
// which the service guarantees by superseding before every insert.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a database handle in a code store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a store bound to the given transaction handle.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{db: tx}
}

// Create inserts a fresh code record.
func (s *Store) Create(ctx context.Context, rec *models.OTPCode) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return &StorageError{Op: "create", Err: err}
	}
	return nil
}

// Active returns the current record for the pair, or nil when none exists:
// the latest row that was neither consumed nor superseded. Expiry is not a
// storage concern; the policy judges it so an expired code is rejected with
// its real reason instead of looking like it never existed.
func (s *Store) Active(ctx context.Context, userID string, channel Channel) (*models.OTPCode, error) {
	var rec models.OTPCode
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND channel = ? AND consumed = ? AND superseded_at IS NULL",
			userID, channel.String(), false).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "active", Err: err}
	}
	return &rec, nil
}

// SupersedeActive retires every live record for the pair so a newly issued
// code becomes the only one that can validate. Returns how many rows were
// retired.
func (s *Store) SupersedeActive(ctx context.Context, userID string, channel Channel, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.OTPCode{}).
		Where("user_id = ? AND channel = ? AND consumed = ? AND superseded_at IS NULL",
			userID, channel.String(), false).
		Update("superseded_at", now)
	if res.Error != nil {
		return 0, &StorageError{Op: "supersede", Err: res.Error}
	}
	return res.RowsAffected, nil
}

// MarkDispatched stamps a record as handed to the delivery provider.
func (s *Store) MarkDispatched(ctx context.Context, id string, now time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.OTPCode{}).
		Where("id = ?", id).
		Update("dispatched_at", now)
	if res.Error != nil {
		return &StorageError{Op: "mark_dispatched", Err: res.Error}
	}
	return nil
}

// Consume flips the consumed flag exactly once. The conditional update is
// the single-winner gate for concurrent confirmations: only the call whose
// update actually changed a row wins, everyone else gets ErrNoActiveCode.
func (s *Store) Consume(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&models.OTPCode{}).
		Where("id = ? AND consumed = ?", id, false).
		Update("consumed", true)
	if res.Error != nil {
		return &StorageError{Op: "consume", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return ErrNoActiveCode
	}
	return nil
}

// DeleteExpired removes rows whose expiry passed before the cutoff, plus
// consumed and superseded rows, which are dead regardless of age. Used by
// the periodic hygiene sweep; correctness never depends on it since reads
// filter by liveness.
func (s *Store) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at < ? OR consumed = ? OR superseded_at IS NOT NULL", cutoff, true).
		Delete(&models.OTPCode{})
	if res.Error != nil {
		return 0, &StorageError{Op: "delete_expired", Err: res.Error}
	}
	return res.RowsAffected, nil
}

package verification

import (
	"time"

	"gorm.io/gorm"

	"github.com/homegrid/homegrid/internal/models"
)

// State is the verification status of one (user, channel) pair. It is
// derived from durable facts rather than stored as its own column: the
// user's verified-at stamp and the presence of a live, dispatched code.
type State string

const (
	// StateUnverified means the channel has never been confirmed and no
	// code is currently in flight.
	StateUnverified State = "unverified"

	// StatePendingCode means a code was generated and handed to the
	// delivery provider, and has not yet been consumed or retired.
	StatePendingCode State = "pending_code"

	// StateVerified is terminal. Once a channel is confirmed it never
	// leaves this state.
	StateVerified State = "verified"
)

// StateMachine derives states and applies the single legal transition into
// StateVerified. All other movement happens implicitly through code
// records coming and going.
type StateMachine struct{}

// Current computes the state for a channel given the user row and the
// current code record, if any. Two kinds of record do not count as pending:
// one that was generated but never dispatched (the attempt failed before
// the user could have seen a code), and one whose expiry has passed.
func (StateMachine) Current(user *models.User, channel Channel, active *models.OTPCode, now time.Time) State {
	if channel.VerifiedAt(user) != nil {
		return StateVerified
	}
	if active != nil && active.DispatchedAt != nil && active.Active(now) {
		return StatePendingCode
	}
	return StateUnverified
}

// EnsureRequestable rejects new code requests for already verified
// channels. Requests from Unverified and PendingCode are both legal; the
// fresh code simply supersedes whatever was live.
func (StateMachine) EnsureRequestable(state State) error {
	if state == StateVerified {
		return ErrAlreadyVerified
	}
	return nil
}

// EnsureResendable requires an in-flight verification. Resending from
// Unverified has nothing to resend and from Verified nothing left to prove.
func (StateMachine) EnsureResendable(state State) error {
	switch state {
	case StateVerified:
		return ErrAlreadyVerified
	case StateUnverified:
		return ErrNothingPending
	}
	return nil
}

// EnsureConfirmable rejects confirmation attempts against a channel that
// already reached the terminal state. Attempts without a live code are not
// caught here; they surface as ErrNoActiveCode during code validation.
func (StateMachine) EnsureConfirmable(state State) error {
	if state == StateVerified {
		return ErrAlreadyVerified
	}
	return nil
}

// MarkVerified performs the PendingCode to Verified transition by stamping
// the channel's verified-at column. Runs inside the same transaction that
// consumes the winning code so the flag and the consumption commit
// together.
func (StateMachine) MarkVerified(tx *gorm.DB, user *models.User, channel Channel, now time.Time) error {
	column := "email_verified_at"
	if channel.RequiresPhone() {
		column = "phone_verified_at"
	}

	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Update(column, now).Error; err != nil {
		return &StorageError{Op: "mark_verified", Err: err}
	}

	stamp := now
	if channel.RequiresPhone() {
		user.PhoneVerifiedAt = &stamp
	} else {
		user.EmailVerifiedAt = &stamp
	}
	return nil
}

package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/homegrid/homegrid/internal/models"
)

func TestStateCurrent(t *testing.T) {
	var sm StateMachine
	now := time.Now().UTC()
	user := &models.User{Email: "u@example.com", Phone: "+34600111222"}

	require.Equal(t, StateUnverified, sm.Current(user, ChannelEmail, nil, now))

	undelivered := &models.OTPCode{ExpiresAt: now.Add(10 * time.Minute)}
	require.Equal(t, StateUnverified, sm.Current(user, ChannelEmail, undelivered, now))

	dispatched := &models.OTPCode{ExpiresAt: now.Add(10 * time.Minute), DispatchedAt: &now}
	require.Equal(t, StatePendingCode, sm.Current(user, ChannelEmail, dispatched, now))

	// An expired record does not count as pending even though it was
	// delivered.
	expired := &models.OTPCode{ExpiresAt: now.Add(-time.Millisecond), DispatchedAt: &now}
	require.Equal(t, StateUnverified, sm.Current(user, ChannelEmail, expired, now))

	user.EmailVerifiedAt = &now
	require.Equal(t, StateVerified, sm.Current(user, ChannelEmail, dispatched, now))

	// Channels are independent: verified email says nothing about sms.
	require.Equal(t, StatePendingCode, sm.Current(user, ChannelSMS, dispatched, now))
}

func TestStateGuards(t *testing.T) {
	var sm StateMachine

	require.NoError(t, sm.EnsureRequestable(StateUnverified))
	require.NoError(t, sm.EnsureRequestable(StatePendingCode))
	require.ErrorIs(t, sm.EnsureRequestable(StateVerified), ErrAlreadyVerified)

	require.ErrorIs(t, sm.EnsureResendable(StateUnverified), ErrNothingPending)
	require.NoError(t, sm.EnsureResendable(StatePendingCode))
	require.ErrorIs(t, sm.EnsureResendable(StateVerified), ErrAlreadyVerified)

	require.NoError(t, sm.EnsureConfirmable(StateUnverified))
	require.NoError(t, sm.EnsureConfirmable(StatePendingCode))
	require.ErrorIs(t, sm.EnsureConfirmable(StateVerified), ErrAlreadyVerified)
}

func TestMarkVerified(t *testing.T) {
	db := newStoreTestDB(t)
	user := seedStoreUser(t, db)
	user.Phone = "+34600111222"
	require.NoError(t, db.Save(user).Error)

	var sm StateMachine
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, sm.MarkVerified(db, user, ChannelEmail, now))
	require.NotNil(t, user.EmailVerifiedAt)
	require.Nil(t, user.PhoneVerifiedAt)

	var stored models.User
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	require.NotNil(t, stored.EmailVerifiedAt)
	require.True(t, stored.EmailVerifiedAt.Equal(now))
	require.Nil(t, stored.PhoneVerifiedAt)

	require.NoError(t, sm.MarkVerified(db, user, ChannelWhatsApp, now))
	require.NoError(t, db.First(&stored, "id = ?", user.ID).Error)
	require.NotNil(t, stored.PhoneVerifiedAt)
}

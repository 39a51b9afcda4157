package verification

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/homegrid/homegrid/internal/models"
)

var storeDBSeq int

func newStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	storeDBSeq++
	dsn := fmt.Sprintf("file:otpstore%d?mode=memory&cache=shared", storeDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.OTPCode{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Serialise writers at the pool so concurrent tests never trip
	// SQLITE_BUSY.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func seedStoreUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Email: "buyer@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestStoreCreateAndActive(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewStore(db)
	user := seedStoreUser(t, db)
	now := time.Now().UTC()

	rec := &models.OTPCode{
		UserID:    user.ID,
		Channel:   ChannelEmail.String(),
		Code:      "123456",
		ExpiresAt: now.Add(10 * time.Minute),
	}
	require.NoError(t, store.Create(context.Background(), rec))
	require.NotEmpty(t, rec.ID)

	got, err := store.Active(context.Background(), user.ID, ChannelEmail)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, rec.ID, got.ID)

	// Different channel sees nothing.
	got, err = store.Active(context.Background(), user.ID, ChannelSMS)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStoreActiveReturnsExpiredRows(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewStore(db)
	user := seedStoreUser(t, db)
	now := time.Now().UTC()

	rec := &models.OTPCode{
		UserID:    user.ID,
		Channel:   ChannelEmail.String(),
		Code:      "123456",
		ExpiresAt: now.Add(-time.Second),
	}
	require.NoError(t, store.Create(context.Background(), rec))

	// The store does not judge expiry; the record comes back so the policy
	// can reject it with the expired verdict instead of "no code".
	got, err := store.Active(context.Background(), user.ID, ChannelEmail)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, rec.ID, got.ID)
	require.False(t, got.Active(now))
}

func TestStoreSupersedeActive(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewStore(db)
	user := seedStoreUser(t, db)
	now := time.Now().UTC()

	for i := 0; i < 2; i++ {
		rec := &models.OTPCode{
			UserID:    user.ID,
			Channel:   ChannelWhatsApp.String(),
			Code:      fmt.Sprintf("10000%d", i),
			ExpiresAt: now.Add(10 * time.Minute),
		}
		require.NoError(t, store.Create(context.Background(), rec))
	}

	retired, err := store.SupersedeActive(context.Background(), user.ID, ChannelWhatsApp, now)
	require.NoError(t, err)
	require.EqualValues(t, 2, retired)

	got, err := store.Active(context.Background(), user.ID, ChannelWhatsApp)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestStoreConsumeSingleWinner(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewStore(db)
	user := seedStoreUser(t, db)
	now := time.Now().UTC()

	rec := &models.OTPCode{
		UserID:    user.ID,
		Channel:   ChannelEmail.String(),
		Code:      "123456",
		ExpiresAt: now.Add(10 * time.Minute),
	}
	require.NoError(t, store.Create(context.Background(), rec))

	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan struct{}, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Consume(context.Background(), rec.ID); err == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for range wins {
		winners++
	}
	require.Equal(t, 1, winners)

	// A second pass on an already consumed row fails deterministically.
	require.ErrorIs(t, store.Consume(context.Background(), rec.ID), ErrNoActiveCode)
}

func TestStoreDeleteExpired(t *testing.T) {
	db := newStoreTestDB(t)
	store := NewStore(db)
	user := seedStoreUser(t, db)
	now := time.Now().UTC()

	live := &models.OTPCode{
		UserID:    user.ID,
		Channel:   ChannelEmail.String(),
		Code:      "111111",
		ExpiresAt: now.Add(10 * time.Minute),
	}
	expired := &models.OTPCode{
		UserID:    user.ID,
		Channel:   ChannelSMS.String(),
		Code:      "222222",
		ExpiresAt: now.Add(-time.Hour),
	}
	consumed := &models.OTPCode{
		UserID:    user.ID,
		Channel:   ChannelWhatsApp.String(),
		Code:      "333333",
		ExpiresAt: now.Add(10 * time.Minute),
		Consumed:  true,
	}
	for _, rec := range []*models.OTPCode{live, expired, consumed} {
		require.NoError(t, store.Create(context.Background(), rec))
	}

	removed, err := store.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	var remaining []models.OTPCode
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, live.ID, remaining[0].ID)
}

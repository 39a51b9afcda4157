package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openModelTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&User{}, &Session{}, &OTPCode{}, &NotificationLog{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}

func TestUserGetsUUIDOnCreate(t *testing.T) {
	db := openModelTestDB(t)

	user := User{Email: "agent@example.com", Password: "hashed"}
	require.NoError(t, db.Create(&user).Error)
	require.NotEmpty(t, user.ID)
	require.False(t, user.EmailVerified())
	require.False(t, user.PhoneVerified())
}

func TestOTPCodeActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	code := OTPCode{ExpiresAt: now.Add(10 * time.Minute)}
	require.True(t, code.Active(now))
	require.True(t, code.Active(now.Add(10*time.Minute)))
	require.False(t, code.Active(now.Add(10*time.Minute+time.Millisecond)))

	code.Consumed = true
	require.False(t, code.Active(now))

	superseded := OTPCode{ExpiresAt: now.Add(10 * time.Minute), SupersededAt: &now}
	require.False(t, superseded.Active(now))
}

func TestNotificationLogPersistsDetail(t *testing.T) {
	db := openModelTestDB(t)

	entry := NotificationLog{
		UserID:    "user-1",
		Channel:   "email",
		Recipient: "a***@example.com",
		Status:    NotificationStatusSent,
		Detail:    []byte(`{"provider":"smtp"}`),
	}
	require.NoError(t, db.Create(&entry).Error)

	var stored NotificationLog
	require.NoError(t, db.First(&stored, "user_id = ?", "user-1").Error)
	require.Equal(t, NotificationStatusSent, stored.Status)
	require.JSONEq(t, `{"provider":"smtp"}`, string(stored.Detail))
}

package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	iauth "github.com/homegrid/homegrid/internal/auth"
	"github.com/homegrid/homegrid/internal/models"
	"github.com/homegrid/homegrid/internal/verification"
)

type noopSender struct{}

func (noopSender) Send(context.Context, verification.Dispatch) error { return nil }

func newCleanupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:maintenance?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Session{}, &models.OTPCode{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestCleanerRunOnce(t *testing.T) {
	db := newCleanupTestDB(t)
	now := time.Now().UTC()

	user := &models.User{Email: "owner@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "maintenance-secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)

	expiredSession := &models.Session{
		UserID:       user.ID,
		RefreshToken: "stale",
		ExpiresAt:    now.Add(-time.Hour),
	}
	require.NoError(t, db.Create(expiredSession).Error)

	expiredCode := &models.OTPCode{
		UserID:    user.ID,
		Channel:   verification.ChannelEmail.String(),
		Code:      "123456",
		ExpiresAt: now.Add(-time.Hour),
	}
	require.NoError(t, db.Create(expiredCode).Error)

	verifier := verification.NewService(db, noopSender{}, verification.NewPolicy(0))
	cleaner := NewCleaner(sessions, verifier)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	var sessionCount, codeCount int64
	require.NoError(t, db.Model(&models.Session{}).Count(&sessionCount).Error)
	require.NoError(t, db.Model(&models.OTPCode{}).Count(&codeCount).Error)
	require.Zero(t, sessionCount)
	require.Zero(t, codeCount)
}

func TestCleanerStartRegistersJobs(t *testing.T) {
	db := newCleanupTestDB(t)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "maintenance-secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)
	verifier := verification.NewService(db, noopSender{}, verification.NewPolicy(0))

	cleaner := NewCleaner(sessions, verifier)
	require.NoError(t, cleaner.Start())
	<-cleaner.Stop().Done()
}

func TestCleanerRejectsBadSchedule(t *testing.T) {
	db := newCleanupTestDB(t)
	verifier := verification.NewService(db, noopSender{}, verification.NewPolicy(0))

	cleaner := NewCleaner(nil, verifier, WithCodeSchedule("not-a-spec"))
	require.Error(t, cleaner.Start())
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/homegrid/homegrid/internal/models"
)

func openSessionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Session{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

func newSessionService(t *testing.T, db *gorm.DB, clock func() time.Time) *SessionService {
	t.Helper()

	jwtSvc, err := NewJWTService(JWTConfig{Secret: "test-secret", Clock: clock})
	require.NoError(t, err)

	svc, err := NewSessionService(db, jwtSvc, SessionConfig{Clock: clock})
	require.NoError(t, err)
	return svc
}

func TestCreateSessionIssuesTokenPair(t *testing.T) {
	db := openSessionTestDB(t)
	svc := newSessionService(t, db, nil)

	pair, session, err := svc.CreateSession("user-1", SessionMetadata{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "user-1", session.UserID)
	require.Equal(t, "10.0.0.1", session.IPAddress)
}

func TestRefreshSessionRotatesToken(t *testing.T) {
	db := openSessionTestDB(t)
	svc := newSessionService(t, db, nil)

	pair, _, err := svc.CreateSession("user-1", SessionMetadata{})
	require.NoError(t, err)

	rotated, session, err := svc.RefreshSession(pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	require.Equal(t, "user-1", session.UserID)

	// The old token is no longer usable.
	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRefreshSessionRejectsExpired(t *testing.T) {
	db := openSessionTestDB(t)
	current := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newSessionService(t, db, func() time.Time { return current })

	pair, _, err := svc.CreateSession("user-1", SessionMetadata{})
	require.NoError(t, err)

	current = current.Add(DefaultRefreshTokenTTL + time.Hour)

	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestRevokeSession(t *testing.T) {
	db := openSessionTestDB(t)
	svc := newSessionService(t, db, nil)

	pair, session, err := svc.CreateSession("user-1", SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeSession(session.ID))

	_, _, err = svc.RefreshSession(pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionRevoked)

	// Revoking twice reports not found (already revoked).
	require.ErrorIs(t, svc.RevokeSession(session.ID), ErrSessionNotFound)
}

func TestCleanupExpiredRemovesStaleSessions(t *testing.T) {
	db := openSessionTestDB(t)
	current := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := newSessionService(t, db, func() time.Time { return current })

	_, session, err := svc.CreateSession("user-1", SessionMetadata{})
	require.NoError(t, err)
	require.NoError(t, svc.RevokeSession(session.ID))

	_, _, err = svc.CreateSession("user-2", SessionMetadata{})
	require.NoError(t, err)

	removed, err := svc.CleanupExpired(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	var remaining int64
	require.NoError(t, db.Model(&models.Session{}).Count(&remaining).Error)
	require.EqualValues(t, 1, remaining)
}

package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/homegrid/homegrid/internal/models"
)

func TestGenerateCodeShape(t *testing.T) {
	p := NewPolicy(0)
	for i := 0; i < 200; i++ {
		code, err := p.GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, CodeLength)
		require.True(t, p.WellFormed(code))
		require.NotEqual(t, byte('0'), code[0])
	}
}

func TestGenerateCodeDistribution(t *testing.T) {
	// Count digit occurrences per position over a large sample. Positions
	// after the first draw from all ten digits; a badly skewed generator
	// would leave some bucket far from the expected share.
	const samples = 20000
	p := NewPolicy(0)

	var counts [CodeLength][10]int
	for i := 0; i < samples; i++ {
		code, err := p.GenerateCode()
		require.NoError(t, err)
		for pos := 0; pos < CodeLength; pos++ {
			counts[pos][code[pos]-'0']++
		}
	}

	for pos := 1; pos < CodeLength; pos++ {
		for digit := 0; digit < 10; digit++ {
			got := counts[pos][digit]
			// Expected 2000 per bucket; allow a generous 30% band.
			require.Greater(t, got, 1400, "position %d digit %d", pos, digit)
			require.Less(t, got, 2600, "position %d digit %d", pos, digit)
		}
	}
	// First digit never zero.
	require.Zero(t, counts[0][0])
}

func TestGenerateCodeUniqueness(t *testing.T) {
	p := NewPolicy(0)
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := p.GenerateCode()
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	// With 900k possible codes, 1000 draws colliding down to fewer than
	// 990 distinct values would be a red flag.
	require.Greater(t, len(seen), 990)
}

func TestWellFormed(t *testing.T) {
	p := NewPolicy(0)
	require.True(t, p.WellFormed("123456"))
	require.False(t, p.WellFormed("12345"))
	require.False(t, p.WellFormed("1234567"))
	require.False(t, p.WellFormed("12345a"))
	require.False(t, p.WellFormed(""))
	require.False(t, p.WellFormed("12 456"))
}

func TestExpiresAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, now.Add(10*time.Minute), NewPolicy(0).ExpiresAt(now))
	require.Equal(t, now.Add(5*time.Minute), NewPolicy(5*time.Minute).ExpiresAt(now))
}

func TestValidate(t *testing.T) {
	p := NewPolicy(0)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fresh := func() *models.OTPCode {
		return &models.OTPCode{Code: "654321", ExpiresAt: now.Add(10 * time.Minute)}
	}

	require.Equal(t, VerdictOK, p.Validate(fresh(), "654321", now))
	require.Equal(t, VerdictMismatch, p.Validate(fresh(), "654320", now))

	rec := fresh()
	rec.Consumed = true
	require.Equal(t, VerdictConsumed, p.Validate(rec, "654321", now))

	rec = fresh()
	superseded := now.Add(-time.Minute)
	rec.SupersededAt = &superseded
	require.Equal(t, VerdictSuperseded, p.Validate(rec, "654321", now))
}

func TestValidateExpiryBoundary(t *testing.T) {
	p := NewPolicy(0)
	expiry := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)
	rec := &models.OTPCode{Code: "111222", ExpiresAt: expiry}

	// Exactly at expiry the code still validates.
	require.Equal(t, VerdictOK, p.Validate(rec, "111222", expiry))
	// One millisecond later it does not.
	require.Equal(t, VerdictExpired, p.Validate(rec, "111222", expiry.Add(time.Millisecond)))
}

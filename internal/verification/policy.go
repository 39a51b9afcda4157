package verification

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"github.com/homegrid/homegrid/internal/models"
)

const (
	// CodeLength is the number of digits in a verification code.
	CodeLength = 6

	// DefaultTTL is how long a code stays valid after generation.
	DefaultTTL = 10 * time.Minute

	codeMin  = 100000
	codeSpan = 900000
)

// Policy owns code generation and validation rules. It performs no I/O and
// holds no mutable state, so a single value can be shared freely.
type Policy struct {
	TTL time.Duration
}

// NewPolicy returns a policy with the given code lifetime. A non-positive
// ttl falls back to DefaultTTL.
func NewPolicy(ttl time.Duration) Policy {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return Policy{TTL: ttl}
}

// GenerateCode produces a uniformly distributed six digit numeric code
// using the operating system CSPRNG. Leading digits are never zero so the
// code always renders as six characters.
func (Policy) GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// ExpiresAt computes the expiry instant for a code generated at now.
func (p Policy) ExpiresAt(now time.Time) time.Time {
	return now.Add(p.TTL)
}

// WellFormed reports whether supplied input even looks like a code. This is
// a cheap syntactic gate applied before any storage lookups.
func (Policy) WellFormed(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// Verdict is the outcome of validating a supplied code against a stored
// record. Only VerdictOK accepts; the others exist so callers can log the
// precise rejection reason while reporting a uniform failure upstream.
type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictConsumed
	VerdictSuperseded
	VerdictExpired
	VerdictMismatch
)

func (v Verdict) String() string {
	switch v {
	case VerdictOK:
		return "ok"
	case VerdictConsumed:
		return "consumed"
	case VerdictSuperseded:
		return "superseded"
	case VerdictExpired:
		return "expired"
	default:
		return "mismatch"
	}
}

// Validate checks a supplied code against a stored record at the given
// instant. The code comparison is constant time and runs even for records
// that already failed a liveness check, keeping timing uniform.
func (Policy) Validate(rec *models.OTPCode, supplied string, now time.Time) Verdict {
	match := subtle.ConstantTimeCompare([]byte(rec.Code), []byte(supplied)) == 1

	switch {
	case rec.Consumed:
		return VerdictConsumed
	case rec.SupersededAt != nil:
		return VerdictSuperseded
	case now.After(rec.ExpiresAt):
		return VerdictExpired
	case !match:
		return VerdictMismatch
	}
	return VerdictOK
}

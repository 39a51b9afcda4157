package verification

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the verification service. Handlers map these
// onto API error responses; the service itself never speaks HTTP.
var (
	ErrInvalidChannel  = errors.New("verification channel is not supported")
	ErrPhoneMissing    = errors.New("account has no phone number on record")
	ErrAlreadyVerified = errors.New("channel is already verified")
	ErrNothingPending  = errors.New("no verification is pending for this channel")
	ErrCooldown        = errors.New("a code was sent recently, wait before requesting another")
	ErrUserNotFound    = errors.New("user not found")
	ErrMalformedCode   = errors.New("code must be exactly six digits")

	// ErrNoActiveCode and ErrCodeRejected are deliberately collapsed into a
	// single client-facing message by the handler layer so responses do not
	// reveal whether a code ever existed.
	ErrNoActiveCode = errors.New("no active verification code")
	ErrCodeRejected = errors.New("verification code rejected")
)

// DispatchError wraps a provider failure during code delivery. The generated
// record is kept, so a later resend can replace it.
type DispatchError struct {
	Channel Channel
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch over %s failed: %v", e.Channel, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// StorageError wraps a database failure inside the code store so callers can
// distinguish infrastructure faults from domain rejections.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("otp store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

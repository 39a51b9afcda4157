package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/homegrid/homegrid/internal/verification"
	appErrors "github.com/homegrid/homegrid/pkg/errors"
	appValidator "github.com/homegrid/homegrid/pkg/validator"
)

func TestMapVerificationError(t *testing.T) {
	cases := []struct {
		in   error
		want *appErrors.AppError
	}{
		{verification.ErrInvalidChannel, appErrors.ErrInvalidChannel},
		{verification.ErrPhoneMissing, appErrors.ErrPhoneMissing},
		{verification.ErrAlreadyVerified, appErrors.ErrAlreadyVerified},
		{verification.ErrNothingPending, appErrors.ErrNothingPending},
		{verification.ErrCooldown, appErrors.ErrCodeCooldown},
		{verification.ErrUserNotFound, appErrors.ErrNotFound},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, mapVerificationError(tc.in))
	}
}

func TestMapVerificationErrorCollapsesCodeFailures(t *testing.T) {
	// Malformed, missing, and rejected codes must be indistinguishable to
	// the client.
	for _, err := range []error{
		verification.ErrMalformedCode,
		verification.ErrNoActiveCode,
		verification.ErrCodeRejected,
	} {
		require.Equal(t, appErrors.ErrCodeInvalid, mapVerificationError(err))
	}
}

func TestMapVerificationErrorDispatchAndUnknown(t *testing.T) {
	dispatch := &verification.DispatchError{Channel: verification.ChannelSMS, Err: errors.New("sns down")}
	mapped := appErrors.FromError(mapVerificationError(dispatch))
	require.Equal(t, appErrors.ErrDispatchFailed.Code, mapped.Code)

	mapped = appErrors.FromError(mapVerificationError(errors.New("boom")))
	require.Equal(t, appErrors.ErrInternalServer.Code, mapped.Code)
}

func TestFormatValidationError(t *testing.T) {
	type payload struct {
		Email string `json:"email" validate:"required,email"`
		Code  string `json:"code" validate:"required,len=6"`
	}

	msg := formatValidationError(appValidator.ValidateStruct(payload{}))
	require.Contains(t, msg, "email is required")
	require.Contains(t, msg, "code is required")

	msg = formatValidationError(appValidator.ValidateStruct(payload{Email: "nope", Code: "123"}))
	require.Contains(t, msg, "email must be a valid email address")
	require.Contains(t, msg, "code must be exactly 6 characters")
}

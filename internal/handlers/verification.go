package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/homegrid/homegrid/internal/verification"
	appErrors "github.com/homegrid/homegrid/pkg/errors"
	"github.com/homegrid/homegrid/pkg/response"
)

// VerificationHandler exposes the account verification workflow.
type VerificationHandler struct {
	service *verification.Service
}

func NewVerificationHandler(service *verification.Service) *VerificationHandler {
	return &VerificationHandler{service: service}
}

type requestVerificationRequest struct {
	Channel string `json:"channel" validate:"required"`
}

type confirmVerificationRequest struct {
	Channel string `json:"channel" validate:"required"`
	Code    string `json:"code" validate:"required,len=6,numeric"`
}

// POST /api/verification/request
func (h *VerificationHandler) Request(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req requestVerificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Request(requestContext(c), userID, req.Channel)
	if err != nil {
		response.Error(c, mapVerificationError(err))
		return
	}

	response.Success(c, http.StatusAccepted, result)
}

// POST /api/verification/resend
func (h *VerificationHandler) Resend(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req requestVerificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Resend(requestContext(c), userID, req.Channel)
	if err != nil {
		response.Error(c, mapVerificationError(err))
		return
	}

	response.Success(c, http.StatusAccepted, result)
}

// POST /api/verification/confirm
func (h *VerificationHandler) Confirm(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req confirmVerificationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Confirm(requestContext(c), userID, req.Channel, req.Code)
	if err != nil {
		response.Error(c, mapVerificationError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"channel":     result.Channel,
		"state":       result.State,
		"verified_at": result.VerifiedAt,
		"user":        userPayload(result.User),
	})
}

// GET /api/verification/status
func (h *VerificationHandler) Status(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	statuses, err := h.service.Status(requestContext(c), userID)
	if err != nil {
		response.Error(c, mapVerificationError(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{"channels": statuses})
}

// mapVerificationError translates service errors into API errors. The
// distinct no-active-code, mismatch, and expired cases all collapse into
// ErrCodeInvalid so the response does not leak code state.
func mapVerificationError(err error) error {
	var dispatchErr *verification.DispatchError
	switch {
	case errors.Is(err, verification.ErrInvalidChannel):
		return appErrors.ErrInvalidChannel
	case errors.Is(err, verification.ErrPhoneMissing):
		return appErrors.ErrPhoneMissing
	case errors.Is(err, verification.ErrAlreadyVerified):
		return appErrors.ErrAlreadyVerified
	case errors.Is(err, verification.ErrNothingPending):
		return appErrors.ErrNothingPending
	case errors.Is(err, verification.ErrCooldown):
		return appErrors.ErrCodeCooldown
	case errors.Is(err, verification.ErrMalformedCode),
		errors.Is(err, verification.ErrNoActiveCode),
		errors.Is(err, verification.ErrCodeRejected):
		return appErrors.ErrCodeInvalid
	case errors.Is(err, verification.ErrUserNotFound):
		return appErrors.ErrNotFound
	case errors.As(err, &dispatchErr):
		return appErrors.ErrDispatchFailed.WithInternal(err)
	default:
		return appErrors.ErrInternalServer.WithInternal(err)
	}
}

package verification

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/homegrid/homegrid/internal/cache"
	"github.com/homegrid/homegrid/internal/models"
	"github.com/homegrid/homegrid/pkg/logger"
	"github.com/homegrid/homegrid/pkg/metrics"
)

// Sender delivers a generated code to its recipient. Implementations live
// in the notify package; the service only cares that delivery either
// happened or returned an error.
type Sender interface {
	Send(ctx context.Context, d Dispatch) error
}

// Dispatch carries everything a sender needs for one delivery.
type Dispatch struct {
	UserID    string
	Channel   Channel
	Recipient string
	Code      string
	ExpiresAt time.Time
}

// RequestResult reports the outcome of a successful request or resend.
type RequestResult struct {
	Channel   Channel   `json:"channel"`
	Recipient string    `json:"recipient"`
	State     State     `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`

	// DebugCode is only populated when code echo is enabled, which must
	// never happen outside development environments.
	DebugCode string `json:"debug_code,omitempty"`
}

// ConfirmResult reports a completed verification. User carries the updated
// account so callers can return it without a second lookup; the HTTP layer
// decides how it is rendered.
type ConfirmResult struct {
	Channel    Channel      `json:"channel"`
	State      State        `json:"state"`
	VerifiedAt time.Time    `json:"verified_at"`
	User       *models.User `json:"-"`
}

// ChannelStatus is one row of the per-user status summary.
type ChannelStatus struct {
	Channel   Channel    `json:"channel"`
	State     State      `json:"state"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

const cooldownKeyPrefix = "verify:cooldown:"

// Service orchestrates the verification workflow: issuing codes,
// dispatching them, and confirming them against the state machine.
type Service struct {
	db     *gorm.DB
	store  *Store
	policy Policy
	sm     StateMachine
	sender Sender

	cooldown       cache.Store
	cooldownWindow time.Duration
	echoCodes      bool

	now   func() time.Time
	log   *zap.Logger
	locks [64]sync.Mutex
}

// Option customises service construction.
type Option func(*Service)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCooldown enables a per-(user, channel) minimum interval between
// dispatches, backed by the shared cache.
func WithCooldown(store cache.Store, window time.Duration) Option {
	return func(s *Service) {
		s.cooldown = store
		s.cooldownWindow = window
	}
}

// WithCodeEcho includes generated codes in request responses. Development
// only; the config layer refuses to enable it in production.
func WithCodeEcho(enabled bool) Option {
	return func(s *Service) { s.echoCodes = enabled }
}

// NewService wires a verification service.
func NewService(db *gorm.DB, sender Sender, policy Policy, opts ...Option) *Service {
	s := &Service{
		db:     db,
		store:  NewStore(db),
		policy: policy,
		sender: sender,
		now:    func() time.Time { return time.Now().UTC() },
		log:    logger.WithModule("verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request issues a fresh code for the channel and dispatches it. Any
// previously live code for the pair is superseded first, so exactly one
// code can ever validate.
func (s *Service) Request(ctx context.Context, userID, rawChannel string) (*RequestResult, error) {
	return s.issue(ctx, userID, rawChannel, false)
}

// Resend replaces an in-flight code with a fresh one. It requires that a
// verification attempt already exists for the pair.
func (s *Service) Resend(ctx context.Context, userID, rawChannel string) (*RequestResult, error) {
	return s.issue(ctx, userID, rawChannel, true)
}

func (s *Service) issue(ctx context.Context, userID, rawChannel string, resend bool) (*RequestResult, error) {
	channel, err := ParseChannel(rawChannel)
	if err != nil {
		return nil, err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	recipient, err := channel.Recipient(user)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(userID, channel)
	defer unlock()

	now := s.now()
	active, err := s.store.Active(ctx, userID, channel)
	if err != nil {
		return nil, err
	}

	state := s.sm.Current(user, channel, active, now)
	if resend {
		// A code that was generated but never delivered still represents an
		// attempt worth retrying, so it satisfies the resend precondition.
		if state == StateUnverified && active != nil && active.Active(now) {
			state = StatePendingCode
		}
		if err := s.sm.EnsureResendable(state); err != nil {
			return nil, err
		}
	} else if err := s.sm.EnsureRequestable(state); err != nil {
		return nil, err
	}

	if err := s.reserveCooldown(ctx, userID, channel); err != nil {
		return nil, err
	}

	code, err := s.policy.GenerateCode()
	if err != nil {
		return nil, err
	}
	expiresAt := s.policy.ExpiresAt(now)

	rec := &models.OTPCode{
		UserID:    userID,
		Channel:   channel.String(),
		Code:      code,
		ExpiresAt: expiresAt,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txStore := s.store.WithTx(tx)
		if _, err := txStore.SupersedeActive(ctx, userID, channel, now); err != nil {
			return err
		}
		return txStore.Create(ctx, rec)
	})
	if err != nil {
		s.releaseCooldown(ctx, userID, channel)
		return nil, err
	}

	dispatch := Dispatch{
		UserID:    userID,
		Channel:   channel,
		Recipient: recipient,
		Code:      code,
		ExpiresAt: expiresAt,
	}
	if err := s.sender.Send(ctx, dispatch); err != nil {
		// The record stays: the code is valid, only delivery failed. The
		// cooldown is released so the user can retry immediately.
		s.releaseCooldown(ctx, userID, channel)
		metrics.VerificationRequests.WithLabelValues(channel.String(), "dispatch_failed").Inc()
		s.log.Warn("code dispatch failed",
			zap.String("user_id", userID),
			zap.String("channel", channel.String()),
			zap.Error(err))
		return nil, &DispatchError{Channel: channel, Err: err}
	}

	if err := s.store.MarkDispatched(ctx, rec.ID, s.now()); err != nil {
		return nil, err
	}

	metrics.VerificationRequests.WithLabelValues(channel.String(), "dispatched").Inc()
	s.log.Info("verification code dispatched",
		zap.String("user_id", userID),
		zap.String("channel", channel.String()),
		zap.Bool("resend", resend),
		zap.Time("expires_at", expiresAt))

	result := &RequestResult{
		Channel:   channel,
		Recipient: MaskRecipient(channel, recipient),
		State:     StatePendingCode,
		ExpiresAt: expiresAt,
	}
	if s.echoCodes {
		result.DebugCode = code
	}
	return result, nil
}

// Confirm validates a supplied code and, on success, atomically consumes
// it and moves the channel to StateVerified. All rejection reasons are
// logged precisely but reported to callers through the collapsed
// ErrNoActiveCode / ErrCodeRejected pair.
func (s *Service) Confirm(ctx context.Context, userID, rawChannel, code string) (*ConfirmResult, error) {
	channel, err := ParseChannel(rawChannel)
	if err != nil {
		return nil, err
	}

	if !s.policy.WellFormed(code) {
		return nil, ErrMalformedCode
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlock := s.lock(userID, channel)
	defer unlock()

	now := s.now()
	active, err := s.store.Active(ctx, userID, channel)
	if err != nil {
		return nil, err
	}

	if err := s.sm.EnsureConfirmable(s.sm.Current(user, channel, active, now)); err != nil {
		return nil, err
	}
	if active == nil {
		metrics.VerificationConfirms.WithLabelValues(channel.String(), "invalid").Inc()
		s.log.Info("confirmation without active code",
			zap.String("user_id", userID),
			zap.String("channel", channel.String()))
		return nil, ErrNoActiveCode
	}

	if verdict := s.policy.Validate(active, code, now); verdict != VerdictOK {
		metrics.VerificationConfirms.WithLabelValues(channel.String(), "invalid").Inc()
		s.log.Info("confirmation rejected",
			zap.String("user_id", userID),
			zap.String("channel", channel.String()),
			zap.String("reason", verdict.String()))
		return nil, ErrCodeRejected
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.store.WithTx(tx).Consume(ctx, active.ID); err != nil {
			return err
		}
		return s.sm.MarkVerified(tx, user, channel, now)
	})
	if err != nil {
		if errors.Is(err, ErrNoActiveCode) {
			metrics.VerificationConfirms.WithLabelValues(channel.String(), "invalid").Inc()
		}
		return nil, err
	}

	metrics.VerificationConfirms.WithLabelValues(channel.String(), "verified").Inc()
	s.log.Info("channel verified",
		zap.String("user_id", userID),
		zap.String("channel", channel.String()))

	return &ConfirmResult{
		Channel:    channel,
		State:      StateVerified,
		VerifiedAt: now,
		User:       user,
	}, nil
}

// Status summarises the verification state of every channel for a user.
func (s *Service) Status(ctx context.Context, userID string) ([]ChannelStatus, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	statuses := make([]ChannelStatus, 0, len(Channels()))
	for _, channel := range Channels() {
		active, err := s.store.Active(ctx, userID, channel)
		if err != nil {
			return nil, err
		}

		status := ChannelStatus{Channel: channel, State: s.sm.Current(user, channel, active, now)}
		if status.State == StatePendingCode {
			expires := active.ExpiresAt
			status.ExpiresAt = &expires
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// PurgeExpired removes dead code rows. Called by the maintenance sweeper.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpired(ctx, s.now())
}

func (s *Service) loadUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, &StorageError{Op: "load_user", Err: err}
	}
	return &user, nil
}

func (s *Service) reserveCooldown(ctx context.Context, userID string, channel Channel) error {
	if s.cooldown == nil || s.cooldownWindow <= 0 {
		return nil
	}

	ok, err := s.cooldown.SetNX(ctx, cooldownKey(userID, channel), []byte("1"), s.cooldownWindow)
	if err != nil {
		// A broken cache must not block verification; log and continue.
		s.log.Warn("cooldown check unavailable", zap.Error(err))
		return nil
	}
	if !ok {
		return ErrCooldown
	}
	return nil
}

func (s *Service) releaseCooldown(ctx context.Context, userID string, channel Channel) {
	if s.cooldown == nil || s.cooldownWindow <= 0 {
		return
	}
	if err := s.cooldown.Delete(ctx, cooldownKey(userID, channel)); err != nil {
		s.log.Warn("cooldown release failed", zap.Error(err))
	}
}

func cooldownKey(userID string, channel Channel) string {
	return fmt.Sprintf("%s%s:%s", cooldownKeyPrefix, userID, channel)
}

// lock serialises work per (user, channel) pair with a striped mutex, so
// two in-flight requests for the same pair cannot interleave between the
// supersede and insert steps.
func (s *Service) lock(userID string, channel Channel) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	_, _ = h.Write([]byte(channel))
	mu := &s.locks[h.Sum32()%uint32(len(s.locks))]
	mu.Lock()
	return mu.Unlock
}

// MaskRecipient obscures an address for responses and logs. Emails keep
// their first letter and domain, phone numbers their last three digits.
func MaskRecipient(channel Channel, recipient string) string {
	if channel.RequiresPhone() {
		digits := strings.TrimSpace(recipient)
		if len(digits) <= 3 {
			return "***"
		}
		return strings.Repeat("*", len(digits)-3) + digits[len(digits)-3:]
	}

	at := strings.IndexByte(recipient, '@')
	if at <= 0 {
		return "***"
	}
	return recipient[:1] + "***" + recipient[at:]
}

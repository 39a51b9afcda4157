package models

import "time"

// OTPCode stores one-time verification codes issued per user and channel.
//
// At most one row per (user, channel) may be active at a time: unconsumed,
// unsuperseded, and not past ExpiresAt. Supersession and consumption are
// terminal; rows are kept for audit until maintenance sweeps them.
type OTPCode struct {
	BaseModel

	UserID  string `gorm:"type:uuid;not null;index:idx_otp_user_channel" json:"user_id"`
	Channel string `gorm:"size:16;not null;index:idx_otp_user_channel" json:"channel"`
	Code    string `gorm:"size:8;not null" json:"-"`

	ExpiresAt    time.Time  `gorm:"index" json:"expires_at"`
	Consumed     bool       `gorm:"default:false" json:"consumed"`
	SupersededAt *time.Time `json:"superseded_at"`

	// DispatchedAt is set once the code was handed to the notification
	// provider. A record without it was generated but never delivered.
	DispatchedAt *time.Time `json:"dispatched_at"`
}

// Active reports whether the code can still be matched at the given instant.
func (o *OTPCode) Active(now time.Time) bool {
	return !o.Consumed && o.SupersededAt == nil && !now.After(o.ExpiresAt)
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User describes marketplace accounts: buyers, sellers, and agents.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Phone    string `gorm:"index" json:"phone,omitempty"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	IsAgent  bool `gorm:"default:false" json:"is_agent"`
	IsActive bool `gorm:"default:true" json:"is_active"`

	// Verification timestamps are owned by the verification state machine.
	// A nil value means the channel has never been confirmed.
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	PhoneVerifiedAt *time.Time `json:"phone_verified_at"`

	Sessions []Session `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`
	LastLoginIP string     `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// EmailVerified reports whether the email channel has been confirmed.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// PhoneVerified reports whether a phone-based channel has been confirmed.
func (u *User) PhoneVerified() bool {
	return u.PhoneVerifiedAt != nil
}

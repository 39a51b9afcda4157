package verification

import (
	"strings"
	"time"

	"github.com/homegrid/homegrid/internal/models"
)

// Channel identifies a delivery route for verification codes.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// Channels lists every supported channel in a stable order.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelWhatsApp, ChannelSMS}
}

// ParseChannel normalises raw input into a Channel.
func ParseChannel(raw string) (Channel, error) {
	switch Channel(strings.ToLower(strings.TrimSpace(raw))) {
	case ChannelEmail:
		return ChannelEmail, nil
	case ChannelWhatsApp:
		return ChannelWhatsApp, nil
	case ChannelSMS:
		return ChannelSMS, nil
	default:
		return "", ErrInvalidChannel
	}
}

func (c Channel) String() string {
	return string(c)
}

// RequiresPhone reports whether the channel delivers to a phone number.
func (c Channel) RequiresPhone() bool {
	return c == ChannelWhatsApp || c == ChannelSMS
}

// Recipient resolves the address a code for this channel is sent to.
func (c Channel) Recipient(user *models.User) (string, error) {
	if c.RequiresPhone() {
		if strings.TrimSpace(user.Phone) == "" {
			return "", ErrPhoneMissing
		}
		return user.Phone, nil
	}
	return user.Email, nil
}

// VerifiedAt returns the verification timestamp column for this channel.
func (c Channel) VerifiedAt(user *models.User) *time.Time {
	if c.RequiresPhone() {
		return user.PhoneVerifiedAt
	}
	return user.EmailVerifiedAt
}

package app

import (
	"time"

	"github.com/homegrid/homegrid/internal/notify"
	"github.com/homegrid/homegrid/internal/verification"
)

const defaultCooldown = 60 * time.Second

// WhatsAppSenderConfig converts WhatsAppConfig to the notify package representation.
func (c WhatsAppConfig) WhatsAppSenderConfig() notify.WhatsAppConfig {
	return notify.WhatsAppConfig{
		BaseURL:       c.BaseURL,
		PhoneNumberID: c.PhoneNumberID,
		AccessToken:   c.AccessToken,
		Timeout:       c.Timeout,
	}
}

// Policy converts VerificationConfig into the code policy.
func (c VerificationConfig) Policy() verification.Policy {
	return verification.NewPolicy(c.CodeTTL)
}

// CooldownWindow returns the minimum interval between dispatches for one
// (user, channel) pair.
func (c VerificationConfig) CooldownWindow() time.Duration {
	if c.Cooldown <= 0 {
		return defaultCooldown
	}
	return c.Cooldown
}

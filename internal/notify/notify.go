// Package notify delivers verification codes over the supported channels
// and records every dispatch attempt.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/homegrid/homegrid/internal/verification"
)

// ChannelSender delivers to exactly one channel. The router picks one per
// dispatch based on the requested channel.
type ChannelSender interface {
	Send(ctx context.Context, d verification.Dispatch) error
}

// Router fans dispatches out to per-channel senders. It satisfies
// verification.Sender.
type Router struct {
	senders map[verification.Channel]ChannelSender
}

// NewRouter returns an empty router. Channels without a registered sender
// reject dispatches, so a deployment can run with any subset configured.
func NewRouter() *Router {
	return &Router{senders: make(map[verification.Channel]ChannelSender)}
}

// Register attaches a sender for a channel, replacing any previous one.
func (r *Router) Register(channel verification.Channel, sender ChannelSender) {
	r.senders[channel] = sender
}

// Send routes the dispatch to the channel's sender.
func (r *Router) Send(ctx context.Context, d verification.Dispatch) error {
	sender, ok := r.senders[d.Channel]
	if !ok {
		return fmt.Errorf("no sender configured for channel %s", d.Channel)
	}
	return sender.Send(ctx, d)
}

// codeText is the short message used by the phone channels.
func codeText(d verification.Dispatch) string {
	return fmt.Sprintf("Your HomeGrid verification code is %s. It expires in %s. Never share this code.",
		d.Code, formatTTL(d.ExpiresAt))
}

func formatTTL(expiresAt time.Time) string {
	ttl := time.Until(expiresAt).Round(time.Minute)
	if ttl <= time.Minute {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", int(ttl.Minutes()))
}

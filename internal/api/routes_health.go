package api

import (
	"github.com/gin-gonic/gin"

	"github.com/homegrid/homegrid/internal/app"
	"github.com/homegrid/homegrid/internal/handlers"
	"github.com/homegrid/homegrid/internal/verification"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config) {
	if !cfg.Monitoring.Health.Enabled {
		return
	}
	r.GET("/health", handlers.Health(deliverableChannels(cfg)))
}

// deliverableChannels lists the channels whose sender is configured, in the
// canonical channel order.
func deliverableChannels(cfg *app.Config) []string {
	enabled := map[verification.Channel]bool{
		verification.ChannelEmail:    cfg.Email.SMTP.Enabled,
		verification.ChannelWhatsApp: cfg.WhatsApp.Enabled,
		verification.ChannelSMS:      cfg.SMS.Enabled,
	}

	channels := make([]string, 0, len(enabled))
	for _, channel := range verification.Channels() {
		if enabled[channel] {
			channels = append(channels, channel.String())
		}
	}
	return channels
}

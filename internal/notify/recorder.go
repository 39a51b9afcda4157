package notify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/homegrid/homegrid/internal/models"
	"github.com/homegrid/homegrid/internal/verification"
	"github.com/homegrid/homegrid/pkg/logger"
	"github.com/homegrid/homegrid/pkg/metrics"
)

// Recorder wraps a sender and writes a NotificationLog row for every
// dispatch attempt. Recipients are stored masked and the code never
// touches the log. A failing audit write is logged but does not turn a
// delivered notification into an error.
type Recorder struct {
	db   *gorm.DB
	next verification.Sender
	log  *zap.Logger
}

// NewRecorder wraps next with dispatch auditing.
func NewRecorder(db *gorm.DB, next verification.Sender) *Recorder {
	return &Recorder{
		db:   db,
		next: next,
		log:  logger.WithModule("notify"),
	}
}

// Send forwards the dispatch and records its outcome.
func (r *Recorder) Send(ctx context.Context, d verification.Dispatch) error {
	sendErr := r.next.Send(ctx, d)

	entry := &models.NotificationLog{
		UserID:    d.UserID,
		Channel:   d.Channel.String(),
		Recipient: verification.MaskRecipient(d.Channel, d.Recipient),
		Status:    models.NotificationStatusSent,
	}
	if sendErr != nil {
		entry.Status = models.NotificationStatusFailed
		if raw, err := json.Marshal(map[string]string{"error": sendErr.Error()}); err == nil {
			entry.Detail = datatypes.JSON(raw)
		}
	}
	metrics.NotificationsSent.WithLabelValues(entry.Channel, entry.Status).Inc()

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		r.log.Error("notification log write failed",
			zap.String("user_id", d.UserID),
			zap.String("channel", entry.Channel),
			zap.Error(err))
	}

	return sendErr
}

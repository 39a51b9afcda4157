package models

import "gorm.io/datatypes"

// Notification delivery outcomes.
const (
	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)

// NotificationLog records every outbound verification dispatch attempt.
// Recipient addresses are stored masked and the code itself is never logged.
type NotificationLog struct {
	BaseModel

	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Channel   string         `gorm:"size:16;not null" json:"channel"`
	Recipient string         `gorm:"size:128" json:"recipient"`
	Status    string         `gorm:"size:16;not null;index" json:"status"`
	Detail    datatypes.JSON `json:"detail,omitempty"`
}

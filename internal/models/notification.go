package models

import "time"

// NotificationType classifies what event a queued notification carries.
type NotificationType string

const (
	NotificationSubscriptionConfirm NotificationType = "subscription_confirmation"
	NotificationIncidentCreated     NotificationType = "incident_created"
	NotificationIncidentUpdate      NotificationType = "incident_update"
	NotificationIncidentResolved    NotificationType = "incident_resolved"
	NotificationStatusChange        NotificationType = "status_change"
)

// NotificationStatus is the delivery state of a queued notification.
// "pending" is the only retryable state, "sent" and "failed" are terminal.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// QueuedNotificationModel is a durable outbox record for one recipient.
// Records are never deleted by the queue, they remain as a delivery audit
// trail.
type QueuedNotificationModel struct {
	Base
	SubscriberID string             `json:"subscriber_id" gorm:"type:char(36);index"`
	Type         NotificationType   `json:"type"          gorm:"type:varchar(32);not null"`
	Subject      string             `json:"subject"`
	Payload      string             `json:"payload"       gorm:"type:text"`
	Status       NotificationStatus `json:"status"        gorm:"type:varchar(16);index;default:pending"`
	Attempts     int                `json:"attempts"      gorm:"default:0"`
	SentAt       *time.Time         `json:"sent_at"`
	LastError    string             `json:"last_error"`
}

func (QueuedNotificationModel) TableName() string { return "queued_notifications" }

// Mail-capable channel types understood by the transport selector.
const (
	ChannelTypeSMTP   = "smtp"
	ChannelTypeResend = "resend"
)

// NotificationChannelModel is a configured outbound-mail channel. Config is
// a JSON blob whose shape depends on Type (host/port/user/pass for smtp,
// api_key for resend).
type NotificationChannelModel struct {
	Base
	Name      string `json:"name"       gorm:"not null"`
	Type      string `json:"type"       gorm:"type:varchar(32);not null"`
	IsDefault bool   `json:"is_default" gorm:"default:false"`
	Config    string `json:"config"     gorm:"type:text"`
}

func (NotificationChannelModel) TableName() string { return "notification_channels" }

// IsMailCapable reports whether the channel type can deliver subscriber email.
func (c *NotificationChannelModel) IsMailCapable() bool {
	return c.Type == ChannelTypeSMTP || c.Type == ChannelTypeResend
}

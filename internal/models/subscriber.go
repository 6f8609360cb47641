package models

// SubscriberModel is an email address with an account-wide unsubscribe
// capability. Rows are kept after unsubscribe as an audit record, only the
// subscriptions are removed.
type SubscriberModel struct {
	Base
	Email            string `json:"email" gorm:"uniqueIndex;not null"`
	UnsubscribeToken string `json:"-"     gorm:"uniqueIndex;not null"`
}

func (SubscriberModel) TableName() string { return "subscribers" }

// SubscriptionModel is a subscriber's opt-in to one status page, optionally
// scoped to a single monitor (empty MonitorID means all components). At most
// one row may exist per (subscriber, page, monitor) triple.
type SubscriptionModel struct {
	Base
	SubscriberID        string `json:"subscriber_id"         gorm:"type:char(36);uniqueIndex:uniq_sub_page_monitor;not null"`
	StatusPageID        string `json:"status_page_id"        gorm:"type:char(36);uniqueIndex:uniq_sub_page_monitor;index;not null"`
	MonitorID           string `json:"monitor_id"            gorm:"type:char(36);uniqueIndex:uniq_sub_page_monitor;default:''"`
	NotifyIncidents     bool   `json:"notify_incidents"`
	NotifyMaintenance   bool   `json:"notify_maintenance"`
	NotifyStatusChanges bool   `json:"notify_status_changes"`
	Verified            bool   `json:"verified"`
	VerificationToken   string `json:"-"                     gorm:"uniqueIndex;not null"`
}

func (SubscriptionModel) TableName() string { return "subscriptions" }

package config

// SiteConfig is the DB-persisted site settings blob, managed by the configs
// service and editable over the admin API.
type SiteConfig struct {
	URL         URLOptions   `json:"url"`
	SEO         SEOOptions   `json:"seo"`
	MailOptions MailOptions  `json:"mail_options"`
	Queue       QueueOptions `json:"queue"`
}

// URLOptions carries the public base URL used to build verify/unsubscribe
// links. When PrimaryBaseURL is empty, subscriber email for page events is
// skipped rather than sent with broken links.
type URLOptions struct {
	PrimaryBaseURL string `json:"primary_base_url"`
}

type SEOOptions struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// MailOptions carries sender identity shared by all channels. Channel
// credentials live in the notification_channels table.
type MailOptions struct {
	From    string `json:"from"`
	ReplyTo string `json:"reply_to"`
}

// QueueOptions tunes the delivery queue.
type QueueOptions struct {
	BatchSize     int `json:"batch_size"`
	MaxAttempts   int `json:"max_attempts"`
	DrainInterval int `json:"drain_interval_seconds"`
}

// DefaultSiteConfig returns the settings used before the owner configures
// anything.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		SEO: SEOOptions{
			Title: "Status",
		},
		Queue: QueueOptions{
			BatchSize:     50,
			MaxAttempts:   5,
			DrainInterval: 60,
		},
	}
}

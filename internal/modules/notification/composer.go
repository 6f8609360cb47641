package notification

import (
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/modules/system/configs"
	"github.com/statuskit/core/internal/pkg/markdown"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrBaseURLUnset is returned by the confirmation path when the public base
// URL has not been configured yet. Page-event paths skip silently instead,
// links built from an unset base URL would be broken.
var ErrBaseURLUnset = errors.New("primary base url is not configured")

// Composer turns application events into per-recipient queued messages. It
// never sends mail itself and never blocks on transport availability.
type Composer struct {
	db     *gorm.DB
	cfgSvc *configs.Service
	queue  *Queue
	log    *zap.Logger
}

func NewComposer(db *gorm.DB, cfgSvc *configs.Service, queue *Queue, log *zap.Logger) *Composer {
	return &Composer{db: db, cfgSvc: cfgSvc, queue: queue, log: log}
}

// pageEvent is the shared shape every page-scoped event reduces to: a
// notification type, an eligibility predicate over subscriptions, and a
// renderer producing subject + body for one recipient.
type pageEvent struct {
	Type     models.NotificationType
	Eligible func(sub *models.SubscriptionModel) bool
	Render   func(unsubscribeURL string) (subject, html string, err error)
	Context  map[string]string
}

func (c *Composer) OnIncidentCreated(incidentID string) error {
	return c.incidentEvent(incidentID, models.NotificationIncidentCreated, "New incident")
}

func (c *Composer) OnIncidentUpdated(incidentID string) error {
	return c.incidentEvent(incidentID, models.NotificationIncidentUpdate, "Incident update")
}

func (c *Composer) OnIncidentResolved(incidentID string) error {
	return c.incidentEvent(incidentID, models.NotificationIncidentResolved, "Incident resolved")
}

func (c *Composer) incidentEvent(incidentID string, t models.NotificationType, eventLabel string) error {
	var incident models.IncidentModel
	if err := c.db.First(&incident, "id = ?", incidentID).Error; err != nil {
		return fmt.Errorf("load incident: %w", err)
	}
	page, err := c.loadPage(incident.StatusPageID)
	if err != nil {
		return err
	}

	contentHTML := template.HTML(markdown.RenderHTML(incident.Content))
	subject := fmt.Sprintf("[%s] %s: %s", page.Title, eventLabel, incident.Title)
	accent := incidentAccentColor(incident.Style)
	if t == models.NotificationIncidentResolved {
		accent = models.MonitorStatusColor(models.MonitorStatusUp)
	}
	timestamp := incident.UpdatedAt.Format(time.RFC1123)

	return c.composeForPage(page, pageEvent{
		Type: t,
		Eligible: func(sub *models.SubscriptionModel) bool {
			return sub.NotifyIncidents
		},
		Render: func(unsubscribeURL string) (string, string, error) {
			html, err := renderTemplate(incidentTpl, incidentData{
				PageTitle:      page.Title,
				EventLabel:     eventLabel,
				Title:          incident.Title,
				ContentHTML:    contentHTML,
				AccentColor:    accent,
				Timestamp:      timestamp,
				PageURL:        c.pageURL(page),
				UnsubscribeURL: unsubscribeURL,
			})
			return subject, html, err
		},
		Context: map[string]string{
			"incident_id": incident.ID,
			"event":       string(t),
		},
	})
}

// OnMonitorStatusChanged notifies page subscribers that a monitor flipped to
// its current status. A flip into maintenance is gated by the maintenance
// flag, every other flip by the status-change flag.
func (c *Composer) OnMonitorStatusChanged(monitorID string) error {
	var monitor models.MonitorModel
	if err := c.db.First(&monitor, "id = ?", monitorID).Error; err != nil {
		return fmt.Errorf("load monitor: %w", err)
	}
	page, err := c.loadPage(monitor.StatusPageID)
	if err != nil {
		return err
	}

	label := models.MonitorStatusLabel(monitor.Status)
	color := models.MonitorStatusColor(monitor.Status)
	subject := fmt.Sprintf("[%s] %s is %s", page.Title, monitor.Name, label)
	timestamp := time.Now().Format(time.RFC1123)
	maintenance := monitor.Status == models.MonitorStatusMaintenance

	return c.composeForPage(page, pageEvent{
		Type: models.NotificationStatusChange,
		Eligible: func(sub *models.SubscriptionModel) bool {
			if sub.MonitorID != "" && sub.MonitorID != monitor.ID {
				return false
			}
			if maintenance {
				return sub.NotifyMaintenance
			}
			return sub.NotifyStatusChanges
		},
		Render: func(unsubscribeURL string) (string, string, error) {
			html, err := renderTemplate(statusChangeTpl, statusChangeData{
				PageTitle:      page.Title,
				MonitorName:    monitor.Name,
				StatusLabel:    label,
				StatusColor:    color,
				Timestamp:      timestamp,
				PageURL:        c.pageURL(page),
				UnsubscribeURL: unsubscribeURL,
			})
			return subject, html, err
		},
		Context: map[string]string{
			"monitor_id": monitor.ID,
			"status":     label,
		},
	})
}

// composeForPage is the one driver behind every page-scoped event: resolve
// the base URL, select eligible verified subscriptions, render one message
// per recipient and enqueue it.
func (c *Composer) composeForPage(page *models.StatusPageModel, ev pageEvent) error {
	baseURL, err := c.cfgSvc.BaseURL()
	if err != nil {
		return err
	}
	if baseURL == "" {
		c.log.Info("primary base url unset, skipping subscriber notifications",
			zap.String("type", string(ev.Type)),
			zap.String("page", page.Slug),
		)
		return nil
	}

	var subs []models.SubscriptionModel
	err = c.db.Where("status_page_id = ? AND verified = ?", page.ID, true).Find(&subs).Error
	if err != nil {
		return err
	}

	enqueued := 0
	for i := range subs {
		sub := &subs[i]
		if !ev.Eligible(sub) {
			continue
		}

		var subscriber models.SubscriberModel
		if err := c.db.First(&subscriber, "id = ?", sub.SubscriberID).Error; err != nil {
			c.log.Warn("subscription without subscriber, skipping",
				zap.String("subscription", sub.ID), zap.Error(err))
			continue
		}

		unsubscribeURL := fmt.Sprintf("%s/api/status-page/%s/unsubscribe/%s",
			baseURL, page.Slug, subscriber.UnsubscribeToken)
		subject, html, err := ev.Render(unsubscribeURL)
		if err != nil {
			c.log.Error("render notification", zap.String("type", string(ev.Type)), zap.Error(err))
			continue
		}

		payload := QueuePayload{
			Message: EmailMessage{To: subscriber.Email, Subject: subject, HTML: html},
			Context: ev.Context,
		}
		if _, err := c.queue.Enqueue(subscriber.ID, ev.Type, payload); err != nil {
			c.log.Error("enqueue notification", zap.String("to", subscriber.Email), zap.Error(err))
			continue
		}
		enqueued++
	}

	c.log.Info("notifications enqueued",
		zap.String("type", string(ev.Type)),
		zap.String("page", page.Slug),
		zap.Int("count", enqueued),
	)
	return nil
}

// SendSubscriptionConfirmation enqueues the verification email for a fresh
// subscription. Unlike page events this fails loudly when the base URL is
// unset: skipping would leave the subscriber permanently unverifiable.
func (c *Composer) SendSubscriptionConfirmation(subscriber *models.SubscriberModel, sub *models.SubscriptionModel) error {
	page, err := c.loadPage(sub.StatusPageID)
	if err != nil {
		return err
	}

	baseURL, err := c.cfgSvc.BaseURL()
	if err != nil {
		return err
	}
	if baseURL == "" {
		return ErrBaseURLUnset
	}

	verifyURL := fmt.Sprintf("%s/api/status-page/%s/verify/%s", baseURL, page.Slug, sub.VerificationToken)
	html, err := renderTemplate(confirmTpl, confirmData{
		PageTitle: page.Title,
		VerifyURL: verifyURL,
	})
	if err != nil {
		return err
	}

	payload := QueuePayload{
		Message: EmailMessage{
			To:      subscriber.Email,
			Subject: fmt.Sprintf("[%s] Please confirm your subscription", page.Title),
			HTML:    html,
		},
		Context: map[string]string{"subscription_id": sub.ID},
	}
	_, err = c.queue.Enqueue(subscriber.ID, models.NotificationSubscriptionConfirm, payload)
	return err
}

func (c *Composer) loadPage(pageID string) (*models.StatusPageModel, error) {
	var page models.StatusPageModel
	if err := c.db.First(&page, "id = ?", pageID).Error; err != nil {
		return nil, fmt.Errorf("load status page: %w", err)
	}
	return &page, nil
}

func (c *Composer) pageURL(page *models.StatusPageModel) string {
	baseURL, err := c.cfgSvc.BaseURL()
	if err != nil || baseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/status/%s", baseURL, page.Slug)
}

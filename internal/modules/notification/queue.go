package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/modules/system/configs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	fallbackSubject       = "Status page notification"
	invalidFormatError    = "Invalid message format"
	defaultQueueBatchSize = 50
	defaultMaxAttempts    = 5
)

// EmailMessage is the rendered message embedded in a queue payload.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// QueuePayload is what gets serialized into a QueuedNotificationModel:
// the fully rendered message plus enough event context for auditing.
type QueuePayload struct {
	Message EmailMessage      `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// Valid reports whether the payload carries a well-formed message.
func (p *QueuePayload) Valid() bool {
	return p.Message.To != "" && p.Message.Subject != "" && p.Message.HTML != ""
}

// Queue is the durable at-least-once delivery queue. Enqueue inserts
// pending rows; Drain is invoked by the scheduler and mutates only rows it
// selected. Records are retained in terminal states as an audit trail.
type Queue struct {
	db     *gorm.DB
	sender EmailSender
	cfgSvc *configs.Service
	log    *zap.Logger
}

func NewQueue(db *gorm.DB, sender EmailSender, cfgSvc *configs.Service, log *zap.Logger) *Queue {
	return &Queue{db: db, sender: sender, cfgSvc: cfgSvc, log: log}
}

// Enqueue appends a pending notification for one recipient. The subject
// falls back to a fixed string when the rendered message has none.
func (q *Queue) Enqueue(subscriberID string, t models.NotificationType, payload QueuePayload) (*models.QueuedNotificationModel, error) {
	subject := payload.Message.Subject
	if subject == "" {
		subject = fallbackSubject
		payload.Message.Subject = fallbackSubject
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	rec := models.QueuedNotificationModel{
		SubscriberID: subscriberID,
		Type:         t,
		Subject:      subject,
		Payload:      string(data),
		Status:       models.NotificationPending,
		Attempts:     0,
	}
	if err := q.db.Create(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// Drain selects the oldest pending records still under the attempt ceiling
// and processes each independently; one record's failure never aborts the
// rest of the batch. With nothing pending it performs no writes.
func (q *Queue) Drain(ctx context.Context) error {
	batchSize, maxAttempts := q.limits()

	var batch []models.QueuedNotificationModel
	err := q.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", models.NotificationPending, maxAttempts).
		Order("created_at ASC").
		Limit(batchSize).
		Find(&batch).Error
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	sent, failed := 0, 0
	for i := range batch {
		switch q.process(ctx, &batch[i], maxAttempts) {
		case models.NotificationSent:
			sent++
		case models.NotificationFailed:
			failed++
		}
	}
	q.log.Info("notification queue drained",
		zap.Int("batch", len(batch)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	return nil
}

// process attempts delivery of one record and returns its resulting status.
func (q *Queue) process(ctx context.Context, rec *models.QueuedNotificationModel, maxAttempts int) models.NotificationStatus {
	var payload QueuePayload
	if err := json.Unmarshal([]byte(rec.Payload), &payload); err != nil || !payload.Valid() {
		// Structurally broken payloads are terminal right away; retrying
		// cannot fix them and attempts stay untouched.
		q.update(ctx, rec, map[string]interface{}{
			"status":     models.NotificationFailed,
			"last_error": invalidFormatError,
		})
		return models.NotificationFailed
	}

	delivered, err := q.sender.SendEmail(payload.Message.To, payload.Message.Subject, payload.Message.HTML)
	if err != nil {
		attempts := rec.Attempts + 1
		updates := map[string]interface{}{
			"attempts":   attempts,
			"last_error": err.Error(),
		}
		status := models.NotificationPending
		if attempts >= maxAttempts {
			status = models.NotificationFailed
			updates["status"] = status
		}
		q.update(ctx, rec, updates)
		return status
	}

	if !delivered {
		// No transport configured. Treated as terminal success rather than a
		// retryable failure so the queue cannot grow without bound against a
		// permanently missing configuration.
		q.log.Warn("no mail transport configured, marking notification sent",
			zap.String("id", rec.ID),
			zap.String("to", payload.Message.To),
		)
	}

	now := time.Now()
	q.update(ctx, rec, map[string]interface{}{
		"status":     models.NotificationSent,
		"sent_at":    &now,
		"last_error": "",
	})
	return models.NotificationSent
}

func (q *Queue) update(ctx context.Context, rec *models.QueuedNotificationModel, updates map[string]interface{}) {
	err := q.db.WithContext(ctx).
		Model(&models.QueuedNotificationModel{}).
		Where("id = ?", rec.ID).
		Updates(updates).Error
	if err != nil {
		q.log.Error("queue record update failed", zap.String("id", rec.ID), zap.Error(err))
	}
}

func (q *Queue) limits() (batchSize, maxAttempts int) {
	batchSize, maxAttempts = defaultQueueBatchSize, defaultMaxAttempts
	cfg, err := q.cfgSvc.Get()
	if err != nil {
		return
	}
	if cfg.Queue.BatchSize > 0 {
		batchSize = cfg.Queue.BatchSize
	}
	if cfg.Queue.MaxAttempts > 0 {
		maxAttempts = cfg.Queue.MaxAttempts
	}
	return
}

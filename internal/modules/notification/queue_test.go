package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/statuskit/core/internal/database"
	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/modules/system/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// fakeSender records sends and answers with a scripted outcome.
type fakeSender struct {
	delivered bool
	err       error
	calls     []string
}

func (f *fakeSender) SendEmail(to, subject, html string) (bool, error) {
	f.calls = append(f.calls, to)
	if f.err != nil {
		return false, f.err
	}
	return f.delivered, nil
}

func newTestQueue(t *testing.T, db *gorm.DB, sender *fakeSender) *Queue {
	t.Helper()
	return NewQueue(db, sender, configs.NewService(db), zap.NewNop())
}

func validPayload(to string) QueuePayload {
	return QueuePayload{
		Message: EmailMessage{To: to, Subject: "Test", HTML: "<p>hello</p>"},
	}
}

func fetchRecord(t *testing.T, db *gorm.DB, id string) models.QueuedNotificationModel {
	t.Helper()
	var rec models.QueuedNotificationModel
	require.NoError(t, db.First(&rec, "id = ?", id).Error)
	return rec
}

func TestEnqueueDefaultsSubjectAndState(t *testing.T) {
	db := newTestDB(t)
	q := newTestQueue(t, db, &fakeSender{delivered: true})

	rec, err := q.Enqueue("sub-1", models.NotificationIncidentCreated, QueuePayload{
		Message: EmailMessage{To: "a@x.com", HTML: "<p>hi</p>"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Status page notification", rec.Subject)
	assert.Equal(t, models.NotificationPending, rec.Status)
	assert.Equal(t, 0, rec.Attempts)

	var payload QueuePayload
	require.NoError(t, json.Unmarshal([]byte(rec.Payload), &payload))
	assert.Equal(t, "Status page notification", payload.Message.Subject)
}

func TestDrainDeliversPending(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{delivered: true}
	q := newTestQueue(t, db, sender)

	rec, err := q.Enqueue("sub-1", models.NotificationIncidentCreated, validPayload("a@x.com"))
	require.NoError(t, err)

	require.NoError(t, q.Drain(context.Background()))

	got := fetchRecord(t, db, rec.ID)
	assert.Equal(t, models.NotificationSent, got.Status)
	assert.NotNil(t, got.SentAt)
	assert.Empty(t, got.LastError)
	assert.Equal(t, []string{"a@x.com"}, sender.calls)
}

func TestDrainRetriesUntilAttemptCeiling(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{err: fmt.Errorf("smtp connect refused")}
	q := newTestQueue(t, db, sender)

	rec, err := q.Enqueue("sub-1", models.NotificationIncidentCreated, validPayload("a@x.com"))
	require.NoError(t, err)

	for i := 1; i < 5; i++ {
		require.NoError(t, q.Drain(context.Background()))
		got := fetchRecord(t, db, rec.ID)
		assert.Equal(t, i, got.Attempts)
		assert.Equal(t, models.NotificationPending, got.Status, "attempt %d should stay pending", i)
		assert.Equal(t, "smtp connect refused", got.LastError)
	}

	// fifth failure is terminal
	require.NoError(t, q.Drain(context.Background()))
	got := fetchRecord(t, db, rec.ID)
	assert.Equal(t, 5, got.Attempts)
	assert.Equal(t, models.NotificationFailed, got.Status)

	// failed records are never picked up again
	require.NoError(t, q.Drain(context.Background()))
	assert.Len(t, sender.calls, 5)
}

func TestDrainInvalidPayloadFailsWithoutRetry(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{delivered: true}
	q := newTestQueue(t, db, sender)

	rec := models.QueuedNotificationModel{
		SubscriberID: "sub-1",
		Type:         models.NotificationIncidentCreated,
		Payload:      "{not json",
		Status:       models.NotificationPending,
	}
	require.NoError(t, db.Create(&rec).Error)

	require.NoError(t, q.Drain(context.Background()))

	got := fetchRecord(t, db, rec.ID)
	assert.Equal(t, models.NotificationFailed, got.Status)
	assert.Equal(t, "Invalid message format", got.LastError)
	assert.Equal(t, 0, got.Attempts)
	assert.Empty(t, sender.calls)
}

func TestDrainMissingRecipientFailsWithoutRetry(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{delivered: true}
	q := newTestQueue(t, db, sender)

	rec, err := q.Enqueue("sub-1", models.NotificationIncidentCreated, QueuePayload{
		Message: EmailMessage{Subject: "s", HTML: "<p></p>"},
	})
	require.NoError(t, err)

	require.NoError(t, q.Drain(context.Background()))

	got := fetchRecord(t, db, rec.ID)
	assert.Equal(t, models.NotificationFailed, got.Status)
	assert.Equal(t, "Invalid message format", got.LastError)
	assert.Empty(t, sender.calls)
}

func TestDrainNoTransportMarksSent(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{delivered: false}
	q := newTestQueue(t, db, sender)

	rec, err := q.Enqueue("sub-1", models.NotificationStatusChange, validPayload("a@x.com"))
	require.NoError(t, err)

	require.NoError(t, q.Drain(context.Background()))

	got := fetchRecord(t, db, rec.ID)
	assert.Equal(t, models.NotificationSent, got.Status)
	assert.NotNil(t, got.SentAt)
}

func TestDrainEmptyQueueNoWrites(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{delivered: true}
	q := newTestQueue(t, db, sender)

	require.NoError(t, q.Drain(context.Background()))
	assert.Empty(t, sender.calls)
}

func TestDrainRespectsBatchSizeOldestFirst(t *testing.T) {
	db := newTestDB(t)
	sender := &fakeSender{delivered: true}
	cfgSvc := configs.NewService(db)
	q := NewQueue(db, sender, cfgSvc, zap.NewNop())

	_, err := cfgSvc.Patch([]byte(`{"queue":{"batch_size":1,"max_attempts":5}}`))
	require.NoError(t, err)

	first, err := q.Enqueue("sub-1", models.NotificationIncidentCreated, validPayload("first@x.com"))
	require.NoError(t, err)
	// widen the creation gap so ordering is unambiguous
	require.NoError(t, db.Model(first).Update("created_at", first.CreatedAt.Add(-time.Second)).Error)
	second, err := q.Enqueue("sub-2", models.NotificationIncidentCreated, validPayload("second@x.com"))
	require.NoError(t, err)

	require.NoError(t, q.Drain(context.Background()))

	assert.Equal(t, []string{"first@x.com"}, sender.calls)
	assert.Equal(t, models.NotificationSent, fetchRecord(t, db, first.ID).Status)
	assert.Equal(t, models.NotificationPending, fetchRecord(t, db, second.ID).Status)
}

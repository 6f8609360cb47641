package monitor

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/statuskit/core/internal/database"
	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/modules/notification"
	"github.com/statuskit/core/internal/modules/system/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type noopSender struct{}

func (noopSender) SendEmail(to, subject, html string) (bool, error) { return true, nil }

func newFixture(t *testing.T) (*gorm.DB, *Service, models.StatusPageModel) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfgSvc := configs.NewService(db)
	_, err = cfgSvc.Patch([]byte(`{"url":{"primary_base_url":"https://status.acme.dev"}}`))
	require.NoError(t, err)
	queue := notification.NewQueue(db, noopSender{}, cfgSvc, zap.NewNop())
	composer := notification.NewComposer(db, cfgSvc, queue, zap.NewNop())

	page := models.StatusPageModel{Slug: "main", Title: "Acme Status", Published: true}
	require.NoError(t, db.Create(&page).Error)

	return db, NewService(db, composer, zap.NewNop()), page
}

func addVerifiedSubscription(t *testing.T, db *gorm.DB, pageID, email string) {
	t.Helper()
	subscriber := models.SubscriberModel{Email: email, UnsubscribeToken: uuid.NewString()}
	require.NoError(t, db.Create(&subscriber).Error)
	sub := models.SubscriptionModel{
		SubscriberID:        subscriber.ID,
		StatusPageID:        pageID,
		Verified:            true,
		VerificationToken:   uuid.NewString(),
		NotifyIncidents:     true,
		NotifyMaintenance:   true,
		NotifyStatusChanges: true,
	}
	require.NoError(t, db.Create(&sub).Error)
}

func queuedCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.QueuedNotificationModel{}).Count(&count).Error)
	return count
}

func TestSetStatusNotifiesOnlyOnChange(t *testing.T) {
	db, svc, page := newFixture(t)
	addVerifiedSubscription(t, db, page.ID, "a@x.com")

	m, err := svc.Create(page.ID, "API")
	require.NoError(t, err)
	assert.Equal(t, models.MonitorStatusPending, m.Status)

	m, err = svc.SetStatus(m.ID, models.MonitorStatusDown)
	require.NoError(t, err)
	assert.Equal(t, models.MonitorStatusDown, m.Status)
	assert.EqualValues(t, 1, queuedCount(t, db))

	// same status again is a no-op
	_, err = svc.SetStatus(m.ID, models.MonitorStatusDown)
	require.NoError(t, err)
	assert.EqualValues(t, 1, queuedCount(t, db))

	_, err = svc.SetStatus(m.ID, models.MonitorStatusUp)
	require.NoError(t, err)
	assert.EqualValues(t, 2, queuedCount(t, db))
}

func TestSetStatusRejectsUnknownCode(t *testing.T) {
	db, svc, page := newFixture(t)
	_ = db

	m, err := svc.Create(page.ID, "API")
	require.NoError(t, err)

	_, err = svc.SetStatus(m.ID, 42)
	assert.ErrorIs(t, err, ErrBadStatus)
}

func TestCreateRequiresExistingPage(t *testing.T) {
	_, svc, _ := newFixture(t)
	_, err := svc.Create(uuid.NewString(), "API")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

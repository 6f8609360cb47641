package notification

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/modules/system/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type composerFixture struct {
	db       *gorm.DB
	cfgSvc   *configs.Service
	composer *Composer
	page     models.StatusPageModel
}

func newComposerFixture(t *testing.T, baseURL string) *composerFixture {
	t.Helper()
	db := newTestDB(t)
	cfgSvc := configs.NewService(db)
	if baseURL != "" {
		_, err := cfgSvc.Patch([]byte(`{"url":{"primary_base_url":"` + baseURL + `"}}`))
		require.NoError(t, err)
	}
	queue := NewQueue(db, &fakeSender{delivered: true}, cfgSvc, zap.NewNop())
	composer := NewComposer(db, cfgSvc, queue, zap.NewNop())

	page := models.StatusPageModel{Slug: "main", Title: "Acme Status", Published: true}
	require.NoError(t, db.Create(&page).Error)

	return &composerFixture{db: db, cfgSvc: cfgSvc, composer: composer, page: page}
}

type subSpec struct {
	verified            bool
	monitorID           string
	notifyIncidents     bool
	notifyMaintenance   bool
	notifyStatusChanges bool
}

func (f *composerFixture) addSubscription(t *testing.T, email string, spec subSpec) models.SubscriptionModel {
	t.Helper()
	subscriber := models.SubscriberModel{Email: email, UnsubscribeToken: uuid.NewString()}
	require.NoError(t, f.db.Create(&subscriber).Error)
	sub := models.SubscriptionModel{
		SubscriberID:        subscriber.ID,
		StatusPageID:        f.page.ID,
		MonitorID:           spec.monitorID,
		Verified:            spec.verified,
		VerificationToken:   uuid.NewString(),
		NotifyIncidents:     spec.notifyIncidents,
		NotifyMaintenance:   spec.notifyMaintenance,
		NotifyStatusChanges: spec.notifyStatusChanges,
	}
	require.NoError(t, f.db.Create(&sub).Error)
	return sub
}

func (f *composerFixture) queued(t *testing.T) []models.QueuedNotificationModel {
	t.Helper()
	var recs []models.QueuedNotificationModel
	require.NoError(t, f.db.Find(&recs).Error)
	return recs
}

func (f *composerFixture) addIncident(t *testing.T, title string) models.IncidentModel {
	t.Helper()
	inc := models.IncidentModel{
		StatusPageID: f.page.ID,
		Title:        title,
		Content:      "We are **investigating**.",
		Style:        "danger",
	}
	require.NoError(t, f.db.Create(&inc).Error)
	return inc
}

func TestIncidentCreatedQueuesVerifiedSubscribersOnly(t *testing.T) {
	f := newComposerFixture(t, "https://status.acme.dev")
	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		f.addSubscription(t, email, subSpec{verified: true, notifyIncidents: true})
	}
	f.addSubscription(t, "unverified@x.com", subSpec{verified: false, notifyIncidents: true})

	inc := f.addIncident(t, "Database outage")
	require.NoError(t, f.composer.OnIncidentCreated(inc.ID))

	recs := f.queued(t)
	require.Len(t, recs, 3)
	for _, rec := range recs {
		assert.Equal(t, models.NotificationIncidentCreated, rec.Type)
		assert.Equal(t, models.NotificationPending, rec.Status)
		assert.Equal(t, "[Acme Status] New incident: Database outage", rec.Subject)
	}
}

func TestIncidentSkipsOptedOutSubscriptions(t *testing.T) {
	f := newComposerFixture(t, "https://status.acme.dev")
	f.addSubscription(t, "in@x.com", subSpec{verified: true, notifyIncidents: true})
	f.addSubscription(t, "out@x.com", subSpec{verified: true, notifyIncidents: false, notifyStatusChanges: true})

	inc := f.addIncident(t, "Latency spike")
	require.NoError(t, f.composer.OnIncidentCreated(inc.ID))

	recs := f.queued(t)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Payload, "in@x.com")
}

func TestIncidentEmailCarriesUnsubscribeLink(t *testing.T) {
	f := newComposerFixture(t, "https://status.acme.dev")
	f.addSubscription(t, "a@x.com", subSpec{verified: true, notifyIncidents: true})

	var subscriber models.SubscriberModel
	require.NoError(t, f.db.First(&subscriber, "email = ?", "a@x.com").Error)

	inc := f.addIncident(t, "Outage")
	require.NoError(t, f.composer.OnIncidentCreated(inc.ID))

	recs := f.queued(t)
	require.Len(t, recs, 1)
	wantLink := "https://status.acme.dev/api/status-page/main/unsubscribe/" + subscriber.UnsubscribeToken
	assert.True(t, strings.Contains(recs[0].Payload, wantLink),
		"payload should embed the unsubscribe link")
}

func TestBaseURLUnsetSkipsPageEventsSilently(t *testing.T) {
	f := newComposerFixture(t, "")
	f.addSubscription(t, "a@x.com", subSpec{verified: true, notifyIncidents: true})

	inc := f.addIncident(t, "Outage")
	require.NoError(t, f.composer.OnIncidentCreated(inc.ID))

	assert.Empty(t, f.queued(t))
}

func TestStatusChangeMonitorScope(t *testing.T) {
	f := newComposerFixture(t, "https://status.acme.dev")
	monitor := models.MonitorModel{StatusPageID: f.page.ID, Name: "API", Status: models.MonitorStatusDown, Active: true}
	require.NoError(t, f.db.Create(&monitor).Error)

	f.addSubscription(t, "all@x.com", subSpec{verified: true, notifyStatusChanges: true})
	f.addSubscription(t, "this@x.com", subSpec{verified: true, notifyStatusChanges: true, monitorID: monitor.ID})
	f.addSubscription(t, "other@x.com", subSpec{verified: true, notifyStatusChanges: true, monitorID: uuid.NewString()})

	require.NoError(t, f.composer.OnMonitorStatusChanged(monitor.ID))

	recs := f.queued(t)
	require.Len(t, recs, 2)
	payloads := recs[0].Payload + recs[1].Payload
	assert.Contains(t, payloads, "all@x.com")
	assert.Contains(t, payloads, "this@x.com")
	assert.NotContains(t, payloads, "other@x.com")
}

func TestMaintenanceGatedByMaintenanceFlag(t *testing.T) {
	f := newComposerFixture(t, "https://status.acme.dev")
	monitor := models.MonitorModel{StatusPageID: f.page.ID, Name: "API", Status: models.MonitorStatusMaintenance, Active: true}
	require.NoError(t, f.db.Create(&monitor).Error)

	f.addSubscription(t, "maint@x.com", subSpec{verified: true, notifyMaintenance: true})
	f.addSubscription(t, "status-only@x.com", subSpec{verified: true, notifyStatusChanges: true})

	require.NoError(t, f.composer.OnMonitorStatusChanged(monitor.ID))

	recs := f.queued(t)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Payload, "maint@x.com")
}

func TestSubscriptionConfirmationFailsLoudWithoutBaseURL(t *testing.T) {
	f := newComposerFixture(t, "")
	sub := f.addSubscription(t, "a@x.com", subSpec{verified: false, notifyIncidents: true})

	var subscriber models.SubscriberModel
	require.NoError(t, f.db.First(&subscriber, "id = ?", sub.SubscriberID).Error)

	err := f.composer.SendSubscriptionConfirmation(&subscriber, &sub)
	assert.ErrorIs(t, err, ErrBaseURLUnset)
	assert.Empty(t, f.queued(t))
}

func TestSubscriptionConfirmationQueuesVerifyLink(t *testing.T) {
	f := newComposerFixture(t, "https://status.acme.dev")
	sub := f.addSubscription(t, "a@x.com", subSpec{verified: false, notifyIncidents: true})

	var subscriber models.SubscriberModel
	require.NoError(t, f.db.First(&subscriber, "id = ?", sub.SubscriberID).Error)

	require.NoError(t, f.composer.SendSubscriptionConfirmation(&subscriber, &sub))

	recs := f.queued(t)
	require.Len(t, recs, 1)
	assert.Equal(t, models.NotificationSubscriptionConfirm, recs[0].Type)
	assert.Equal(t, models.NotificationPending, recs[0].Status)
	wantLink := "https://status.acme.dev/api/status-page/main/verify/" + sub.VerificationToken
	assert.Contains(t, recs[0].Payload, wantLink)
}

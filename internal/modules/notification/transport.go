package notification

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/modules/system/configs"
	pkgmail "github.com/statuskit/core/internal/pkg/mail"
	"gorm.io/gorm"
)

// EmailSender delivers one email to one recipient. The boolean is false when
// no transport is configured, which is an expected state, not an error.
type EmailSender interface {
	SendEmail(to, subject, html string) (bool, error)
}

// Mailer resolves the outbound channel per send and delivers through it.
type Mailer struct {
	db     *gorm.DB
	cfgSvc *configs.Service
}

func NewMailer(db *gorm.DB, cfgSvc *configs.Service) *Mailer {
	return &Mailer{db: db, cfgSvc: cfgSvc}
}

// SelectChannel picks the channel used for all subscriber email: the
// mail-capable channel marked default, else the oldest mail-capable one.
// Returns (nil, nil) when none is configured.
func (m *Mailer) SelectChannel() (*models.NotificationChannelModel, error) {
	var ch models.NotificationChannelModel
	err := m.db.Where("is_default = ?", true).First(&ch).Error
	if err == nil && ch.IsMailCapable() {
		return &ch, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var channels []models.NotificationChannelModel
	if err := m.db.Order("created_at ASC").Find(&channels).Error; err != nil {
		return nil, err
	}
	for i := range channels {
		if channels[i].IsMailCapable() {
			return &channels[i], nil
		}
	}
	return nil, nil
}

// SendEmail resolves a channel and sends. (false, nil) means no transport is
// configured; transport failures come back as errors.
func (m *Mailer) SendEmail(to, subject, html string) (bool, error) {
	ch, err := m.SelectChannel()
	if err != nil {
		return false, err
	}
	if ch == nil {
		return false, nil
	}

	var mc pkgmail.Config
	if ch.Config != "" {
		if err := json.Unmarshal([]byte(ch.Config), &mc); err != nil {
			return false, fmt.Errorf("channel %s config: %w", ch.Name, err)
		}
	}
	mc.Type = ch.Type

	site, err := m.cfgSvc.Get()
	if err != nil {
		return false, err
	}
	if mc.From == "" {
		mc.From = site.MailOptions.From
	}
	if mc.ReplyTo == "" {
		mc.ReplyTo = site.MailOptions.ReplyTo
	}

	if err := pkgmail.New(mc).Send(pkgmail.Message{
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	}); err != nil {
		return false, err
	}
	return true, nil
}

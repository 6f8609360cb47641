package subscription

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/statuskit/core/internal/models"
	"github.com/statuskit/core/internal/modules/notification"
	"github.com/statuskit/core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrPageNotFound = errors.New("status page not found")
	ErrTokenUnknown = errors.New("token not found")
)

// counts served from the cache may lag the store by up to this long
const subscriberCountTTL = time.Minute

type Service struct {
	db       *gorm.DB
	composer *notification.Composer
	rdb      *redis.Client
	log      *zap.Logger
}

// NewService builds the lifecycle service. rdb may be nil, then the
// subscriber count is computed from the store on every call.
func NewService(db *gorm.DB, composer *notification.Composer, rdb *redis.Client, log *zap.Logger) *Service {
	return &Service{db: db, composer: composer, rdb: rdb, log: log}
}

type SubscribeInput struct {
	Email               string
	Slug                string
	MonitorID           string
	NotifyIncidents     bool
	NotifyMaintenance   bool
	NotifyStatusChanges bool
}

type SubscribeResult struct {
	AlreadySubscribed bool
	NeedsVerification bool
}

// Subscribe is idempotent per (email, page, monitor) triple. A repeat call
// acknowledges the existing subscription and does not re-send verification.
func (s *Service) Subscribe(in SubscribeInput) (*SubscribeResult, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	page, err := s.pageBySlug(in.Slug)
	if err != nil {
		return nil, err
	}

	var subscriber models.SubscriberModel
	err = s.db.Where("email = ?", email).First(&subscriber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		subscriber = models.SubscriberModel{
			Email:            email,
			UnsubscribeToken: uuid.NewString(),
		}
		if err := s.db.Create(&subscriber).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	var existing models.SubscriptionModel
	err = s.db.Where("subscriber_id = ? AND status_page_id = ? AND monitor_id = ?",
		subscriber.ID, page.ID, in.MonitorID).First(&existing).Error
	if err == nil {
		return &SubscribeResult{AlreadySubscribed: true}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := models.SubscriptionModel{
		SubscriberID:        subscriber.ID,
		StatusPageID:        page.ID,
		MonitorID:           in.MonitorID,
		NotifyIncidents:     in.NotifyIncidents,
		NotifyMaintenance:   in.NotifyMaintenance,
		NotifyStatusChanges: in.NotifyStatusChanges,
		Verified:            false,
		VerificationToken:   uuid.NewString(),
	}
	if err := s.db.Create(&sub).Error; err != nil {
		return nil, err
	}

	// The subscription stands even when the confirmation email cannot be
	// queued. The subscriber can re-subscribe later once mail is fixed.
	if err := s.composer.SendSubscriptionConfirmation(&subscriber, &sub); err != nil {
		s.log.Warn("failed to queue confirmation email",
			zap.String("subscriber_id", subscriber.ID),
			zap.Error(err))
	}

	return &SubscribeResult{NeedsVerification: true}, nil
}

// Verify consumes a verification token. Repeat visits to the same link
// succeed silently.
func (s *Service) Verify(token string) error {
	var sub models.SubscriptionModel
	if err := s.db.Where("verification_token = ?", token).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenUnknown
		}
		return err
	}
	if sub.Verified {
		return nil
	}
	return s.db.Model(&sub).Update("verified", true).Error
}

// Unsubscribe removes every subscription owned by the token's subscriber,
// across all status pages. The subscriber row stays as an audit record.
func (s *Service) Unsubscribe(token string) error {
	var subscriber models.SubscriberModel
	if err := s.db.Where("unsubscribe_token = ?", token).First(&subscriber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTokenUnknown
		}
		return err
	}
	return s.db.Where("subscriber_id = ?", subscriber.ID).
		Delete(&models.SubscriptionModel{}).Error
}

// SubscriberCount counts subscription rows for the page, verified or not.
// The public widget polls this, so results are cached briefly in redis.
func (s *Service) SubscriberCount(ctx context.Context, slug string) (int64, error) {
	page, err := s.pageBySlug(slug)
	if err != nil {
		return 0, err
	}

	cacheKey := fmt.Sprintf("sk:subscriber_count:%s", page.ID)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey); err == nil && cached != "" {
			if n, err := strconv.ParseInt(cached, 10, 64); err == nil {
				return n, nil
			}
		}
	}

	var count int64
	err = s.db.Model(&models.SubscriptionModel{}).
		Where("status_page_id = ?", page.ID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, cacheKey, strconv.FormatInt(count, 10), subscriberCountTTL); err != nil {
			s.log.Warn("caching subscriber count", zap.String("page", slug), zap.Error(err))
		}
	}
	return count, nil
}

func (s *Service) ListSubscribers() ([]models.SubscriberModel, error) {
	var subscribers []models.SubscriberModel
	err := s.db.Order("created_at DESC").Find(&subscribers).Error
	return subscribers, err
}

// SubscriptionDetail pairs a subscription with its owning subscriber for
// the admin listing.
type SubscriptionDetail struct {
	models.SubscriptionModel
	Subscriber models.SubscriberModel `json:"subscriber"`
}

func (s *Service) ListSubscriptions(slug string) ([]SubscriptionDetail, error) {
	page, err := s.pageBySlug(slug)
	if err != nil {
		return nil, err
	}

	var subs []models.SubscriptionModel
	if err := s.db.Where("status_page_id = ?", page.ID).
		Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, err
	}

	details := make([]SubscriptionDetail, 0, len(subs))
	for _, sub := range subs {
		var subscriber models.SubscriberModel
		if err := s.db.First(&subscriber, "id = ?", sub.SubscriberID).Error; err != nil {
			s.log.Warn("subscription has no subscriber row",
				zap.String("subscription_id", sub.ID),
				zap.Error(err))
			continue
		}
		details = append(details, SubscriptionDetail{SubscriptionModel: sub, Subscriber: subscriber})
	}
	return details, nil
}

func (s *Service) pageBySlug(slug string) (*models.StatusPageModel, error) {
	var page models.StatusPageModel
	if err := s.db.Where("slug = ?", slug).First(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

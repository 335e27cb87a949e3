package services

import (
	"context"
	"encoding/json"
	"time"

	"wmscore/internal/models"
	"wmscore/internal/repositories"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// NotificationQueue is the Redis list a delivery worker drains.
const NotificationQueue = "wms:notifications"

// NotificationSink delivers notifications on a best-effort basis. Notify
// never reports failure to the caller.
type NotificationSink interface {
	Notify(ctx context.Context, recipients []int64, title, message, category string, entityID *int64)
}

// NotificationInbox serves a user's own notifications.
type NotificationInbox interface {
	List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int64) error
}

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
)

// notificationEnvelope is the JSON pushed onto NotificationQueue.
type notificationEnvelope struct {
	NotificationID int64     `json:"notification_id"`
	UserID         int64     `json:"user_id"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Category       string    `json:"category"`
	EntityID       *int64    `json:"entity_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	redisClient      redis.UniversalClient
}

// NewNotificationService persists each notification and queues it for
// delivery. redisClient may be nil, in which case nothing is queued.
func NewNotificationService(notificationRepo repositories.NotificationRepository, redisClient redis.UniversalClient) NotificationSink {
	return &notificationService{
		notificationRepo: notificationRepo,
		redisClient:      redisClient,
	}
}

func (s *notificationService) Notify(ctx context.Context, recipients []int64, title, message, category string, entityID *int64) {
	for _, userID := range recipients {
		n := &models.Notification{
			UserID:   userID,
			Title:    title,
			Message:  message,
			Category: category,
			EntityID: entityID,
		}
		if err := s.notificationRepo.Create(ctx, n); err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Str("category", category).Msg("failed to store notification")
			continue
		}
		s.enqueue(ctx, n)
	}
}

func (s *notificationService) enqueue(ctx context.Context, n *models.Notification) {
	if s.redisClient == nil {
		return
	}
	payload, err := json.Marshal(notificationEnvelope{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Title:          n.Title,
		Message:        n.Message,
		Category:       n.Category,
		EntityID:       n.EntityID,
		CreatedAt:      n.CreatedAt,
	})
	if err != nil {
		log.Warn().Err(err).Int64("notification_id", n.ID).Msg("failed to encode notification")
		return
	}
	if err := s.redisClient.LPush(ctx, NotificationQueue, payload).Err(); err != nil {
		log.Warn().Err(err).Int64("notification_id", n.ID).Msg("failed to queue notification")
	}
}

func NewNotificationInbox(notificationRepo repositories.NotificationRepository) NotificationInbox {
	return &notificationService{notificationRepo: notificationRepo}
}

func (s *notificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}
	notifications, err := s.notificationRepo.ListForUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	return notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, notificationID int64) error {
	return s.notificationRepo.MarkRead(ctx, userID, notificationID)
}

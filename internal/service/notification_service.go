package service

import (
	"context"
	"fmt"
	"strings"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/mqtt"
)

// NotificationSender is the slice of the upstream client used for operator
// broadcasts.
type NotificationSender interface {
	CreateNotification(ctx context.Context, n models.Notification) (*models.Notification, error)
	Notifications(ctx context.Context) ([]models.Notification, error)
}

// NotificationService forwards operator broadcasts to the backend (which
// fans them out to mobile clients) and mirrors them onto venue signage when
// MQTT is enabled.
type NotificationService struct {
	sender   NotificationSender
	notifier *mqtt.Notifier
	log      *logger.Logger
}

func NewNotificationService(sender NotificationSender, notifier *mqtt.Notifier, log *logger.Logger) *NotificationService {
	return &NotificationService{
		sender:   sender,
		notifier: notifier,
		log:      log,
	}
}

func (s *NotificationService) List(ctx context.Context) ([]models.Notification, error) {
	return s.sender.Notifications(ctx)
}

// Broadcast validates and forwards a notification. Signage mirroring is
// best-effort and never fails the operation.
func (s *NotificationService) Broadcast(ctx context.Context, orgID int, n models.Notification) (*models.Notification, error) {
	if strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Message) == "" {
		return nil, fmt.Errorf("title and message are required")
	}

	created, err := s.sender.CreateNotification(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast notification: %w", err)
	}
	s.log.Info("Broadcast notification %q", n.Title)

	if s.notifier != nil {
		if err := s.notifier.PublishBroadcast(orgID, *created); err != nil {
			s.log.Warn("Signage mirror failed: %v", err)
		}
	}

	return created, nil
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
	"EcoFlowOps/internal/mqtt"
	"EcoFlowOps/internal/poller"
	"EcoFlowOps/internal/websocket"
)

// AlertResolver is the slice of the upstream client the alert service needs.
type AlertResolver interface {
	ResolveAlert(ctx context.Context, id string) error
}

// IAlertService defines the alert-center operations.
type IAlertService interface {
	List(level, status string) []models.DisplayAlert
	Resolve(ctx context.Context, id string) error
	Acknowledge(id string) error
}

// AlertService serves normalized alerts from the poller's last committed
// snapshot and forwards resolve actions upstream. Acknowledgements are a
// local-only overlay: the backend has no acknowledged state, so an ack
// survives only as long as this process (and is superseded by an upstream
// resolve).
type AlertService struct {
	resolver AlertResolver
	poller   *poller.Poller
	hub      *websocket.Hub
	notifier *mqtt.Notifier
	log      *logger.Logger

	mu    sync.RWMutex
	acked map[string]time.Time
}

func NewAlertService(resolver AlertResolver, p *poller.Poller, hub *websocket.Hub, notifier *mqtt.Notifier, log *logger.Logger) *AlertService {
	return &AlertService{
		resolver: resolver,
		poller:   p,
		hub:      hub,
		notifier: notifier,
		log:      log,
		acked:    make(map[string]time.Time),
	}
}

// List returns the snapshot's alerts with the ack overlay applied, filtered
// by level and/or status when given. Order follows the snapshot (backend
// order, newest first).
func (s *AlertService) List(level, status string) []models.DisplayAlert {
	snap := s.poller.Snapshot()
	if snap == nil {
		return []models.DisplayAlert{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.DisplayAlert, 0, len(snap.Alerts))
	for _, a := range snap.Alerts {
		if _, ok := s.acked[a.ID]; ok && a.Status == models.AlertActive {
			a.Status = models.AlertAcknowledged
		}
		if level != "" && a.Level != level {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Resolve closes the alert on the backend, drops any local ack for it, and
// kicks the poller so the next snapshot reflects the change promptly.
func (s *AlertService) Resolve(ctx context.Context, id string) error {
	if err := s.resolver.ResolveAlert(ctx, id); err != nil {
		return fmt.Errorf("failed to resolve alert %s: %w", id, err)
	}

	s.mu.Lock()
	delete(s.acked, id)
	s.mu.Unlock()

	s.log.Info("Alert %s resolved upstream", id)
	s.poller.Kick()

	if s.hub != nil {
		s.hub.Broadcast(websocket.TypeAlert, map[string]string{
			"id":     id,
			"status": models.AlertResolved,
		})
	}
	return nil
}

// Acknowledge marks an alert as seen, locally only. The mark is volatile:
// it lives in process memory and the backend is never told, so it vanishes
// on restart. Known gap, kept deliberately until the backend grows an
// acknowledged state.
func (s *AlertService) Acknowledge(id string) error {
	snap := s.poller.Snapshot()
	if snap == nil {
		return fmt.Errorf("no alert data loaded yet")
	}

	found := false
	for _, a := range snap.Alerts {
		if a.ID == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("alert %s not in current batch", id)
	}

	s.mu.Lock()
	s.acked[id] = time.Now()
	s.mu.Unlock()

	s.log.Debug("Alert %s acknowledged locally", id)

	if s.hub != nil {
		s.hub.Broadcast(websocket.TypeAlert, map[string]string{
			"id":     id,
			"status": models.AlertAcknowledged,
		})
	}
	return nil
}

// PublishCritical pushes the snapshot's critical alerts to signage. Called
// by the notifier loop when MQTT is enabled.
func (s *AlertService) PublishCritical(orgID int) {
	if s.notifier == nil {
		return
	}
	for _, a := range s.List(models.LevelCritical, models.AlertActive) {
		if err := s.notifier.PublishAlert(orgID, a); err != nil {
			s.log.Warn("Signage publish failed: %v", err)
		}
	}
}

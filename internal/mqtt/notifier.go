package mqtt

import (
	"encoding/json"
	"fmt"

	"EcoFlowOps/internal/config"
	"EcoFlowOps/internal/logger"
	"EcoFlowOps/internal/models"
)

// Publisher is the transport the notifier writes through.
type Publisher interface {
	Publish(topic string, payload []byte) error
	IsConnected() bool
}

// Notifier fans normalized critical alerts and operator broadcasts out to
// venue display topics. Delivery is best-effort: the dashboard's poll loop
// is the source of truth, signage just mirrors it.
type Notifier struct {
	client Publisher
	cfg    *config.MQTTConfig
	log    *logger.Logger
}

func NewNotifier(client Publisher, cfg *config.MQTTConfig, log *logger.Logger) *Notifier {
	return &Notifier{
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

// PublishAlert pushes one normalized alert to the venue's alert topic.
// Only critical alerts are worth interrupting signage for.
func (n *Notifier) PublishAlert(orgID int, alert models.DisplayAlert) error {
	if alert.Level != models.LevelCritical {
		return nil
	}

	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	topic := fmt.Sprintf(n.cfg.AlertTopic, orgID)
	if err := n.client.Publish(topic, payload); err != nil {
		return fmt.Errorf("failed to publish alert to %s: %w", topic, err)
	}

	n.log.Debug("Published critical alert %s to %s", alert.ID, topic)
	return nil
}

// PublishBroadcast pushes an operator notification to the venue's broadcast
// topic, mirroring the backend's push fan-out onto local displays.
func (n *Notifier) PublishBroadcast(orgID int, note models.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	topic := fmt.Sprintf(n.cfg.BroadcastTopic, orgID)
	if err := n.client.Publish(topic, payload); err != nil {
		return fmt.Errorf("failed to publish broadcast to %s: %w", topic, err)
	}

	n.log.Debug("Published broadcast %q to %s", note.Title, topic)
	return nil
}

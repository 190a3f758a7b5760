package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/amparo-saude/amparo-core/internal/care"
)

// Publisher is the broker surface the MQTT channel needs. Implemented
// by the infrastructure MQTT client.
type Publisher interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

// MQTTChannel publishes alerts to a per-caregiver broker topic. The
// caregiver app subscribes to its own topic for live alerts.
type MQTTChannel struct {
	broker Publisher
}

// NewMQTTChannel creates an MQTT-backed alert channel.
func NewMQTTChannel(broker Publisher) *MQTTChannel {
	return &MQTTChannel{broker: broker}
}

// Send publishes the alert as JSON at QoS 1. The broker ack within the
// attempt timeout is the delivery signal.
func (c *MQTTChannel) Send(ctx context.Context, dest *care.PushDestination, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	topic := fmt.Sprintf("amparo/caregivers/%s/alerts", dest.CaregiverID)
	if err := c.broker.Publish(ctx, topic, 1, false, payload); err != nil {
		return fmt.Errorf("publishing alert: %w", err)
	}
	return nil
}

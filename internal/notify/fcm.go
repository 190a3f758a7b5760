package notify

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/messaging"
	"google.golang.org/api/option"

	"github.com/amparo-saude/amparo-core/internal/care"
)

// FCMChannel delivers alerts as Firebase Cloud Messaging pushes to the
// caregiver's registered device token.
type FCMChannel struct {
	client *messaging.Client
}

// NewFCMChannel initialises the Firebase app from a service account
// credentials file and returns a push channel.
func NewFCMChannel(ctx context.Context, credentialsFile string) (*FCMChannel, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("initialising firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising fcm client: %w", err)
	}
	return &FCMChannel{client: client}, nil
}

// Send pushes a high-priority notification with the alert fields as
// data, so the caregiver app can deep-link into the assistido's
// history.
func (c *FCMChannel) Send(ctx context.Context, dest *care.PushDestination, alert Alert) error {
	name := alert.AssistidoName
	if name == "" {
		name = "assistido"
	}

	msg := &messaging.Message{
		Token: dest.Token,
		Notification: &messaging.Notification{
			Title: "Alerta de queda",
			Body:  fmt.Sprintf("Possível queda detectada para %s", name),
		},
		Data: map[string]string{
			"assistido_id": alert.AssistidoID,
			"event_id":     alert.EventID,
			"event_type":   alert.EventType,
			"occurred_at":  alert.OccurredAt.UTC().Format(time.RFC3339),
			"totalacc":     fmt.Sprintf("%.2f", alert.TotalAcc),
		},
		Android: &messaging.AndroidConfig{Priority: "high"},
	}

	if _, err := c.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending fcm push: %w", err)
	}
	return nil
}

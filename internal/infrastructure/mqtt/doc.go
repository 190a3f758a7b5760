// Package mqtt wraps paho.mqtt.golang for alert publishing.
//
// The client manages the broker connection with automatic reconnection
// and exposes a context-aware Publish for the notification channel. The
// core only publishes; caregiver apps subscribe to their own alert
// topics directly on the broker.
package mqtt

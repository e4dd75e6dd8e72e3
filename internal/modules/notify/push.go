package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// MessagingClient is the subset of the FCM client used for push.
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushChannel delivers notifications to a device through FCM.
type PushChannel struct {
	client MessagingClient
}

func NewPushChannel(client MessagingClient) *PushChannel {
	return &PushChannel{client: client}
}

func (c *PushChannel) Name() string { return ChannelPush }

func (c *PushChannel) Reachable(r Recipient) bool { return r.PushToken != "" }

func (c *PushChannel) Send(ctx context.Context, r Recipient, key Key, content Content) error {
	msg := &messaging.Message{
		Token: r.PushToken,
		Data: map[string]string{
			"type": string(key),
		},
		Notification: &messaging.Notification{
			Title: content.Subject,
			Body:  content.WhatsApp,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
	if _, err := c.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending FCM: %w", err)
	}
	return nil
}

package notify

import "context"

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
	ChannelPush     = "push"
)

// Recipient is one party's reachable contact points. Empty fields mean the
// party cannot be reached on that channel.
type Recipient struct {
	Name      string
	Email     string
	Phone     string
	PushToken string
	Language  string
}

// Channel delivers rendered content to a recipient.
type Channel interface {
	Name() string
	Reachable(r Recipient) bool
	Send(ctx context.Context, r Recipient, key Key, c Content) error
}

package assistant

import "errors"

var (
	// ErrInsufficientTokens is returned when a user has no tokens remaining for the current month.
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrEmptyMessage       = errors.New("empty message")
	ErrUnavailable        = errors.New("assistant unavailable")
)

// DefaultTokens is the number of chat messages granted per month.
const DefaultTokens = 100

const maxMessageLen = 2000

type ChatCommand struct {
	UID            string
	Message        string
	TrackingNumber string
	Language       string
}

type Reply struct {
	Text string `json:"reply"`
}

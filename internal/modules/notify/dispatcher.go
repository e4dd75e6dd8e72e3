package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"masar/internal/metrics"
)

const DefaultSendTimeout = 10 * time.Second

// Dispatcher renders a message once per recipient and fans it out to every
// channel the recipient is reachable on. Send never fails: transport errors
// are logged and counted.
type Dispatcher struct {
	renderer *Renderer
	channels []Channel
	timeout  time.Duration
	logger   *zap.Logger
}

func NewDispatcher(renderer *Renderer, logger *zap.Logger, timeout time.Duration, channels ...Channel) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{renderer: renderer, channels: channels, timeout: timeout, logger: logger}
}

// Send delivers msg to r. ref is a log correlation value such as a tracking
// number.
func (d *Dispatcher) Send(ctx context.Context, r Recipient, msg Message, ref string) {
	content := d.renderer.Render(ctx, msg, r.Language)
	for _, ch := range d.channels {
		if !ch.Reachable(r) {
			metrics.Notifications.WithLabelValues(ch.Name(), "skipped").Inc()
			continue
		}
		d.sendOne(ctx, ch, r, msg.Key(), content, ref)
	}
}

func (d *Dispatcher) sendOne(ctx context.Context, ch Channel, r Recipient, key Key, content Content, ref string) {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := ch.Send(sendCtx, r, key, content); err != nil {
		metrics.Notifications.WithLabelValues(ch.Name(), "failed").Inc()
		d.logger.Warn("notification send failed",
			zap.String("channel", ch.Name()),
			zap.String("key", string(key)),
			zap.String("ref", ref),
			zap.Error(err),
		)
		return
	}
	metrics.Notifications.WithLabelValues(ch.Name(), "sent").Inc()
}

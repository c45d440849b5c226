package amqp

import (
	"context"
	"fmt"

	"feedesk/internal/core"
	"feedesk/internal/notify"
)

// Publisher forwards coordinator notifications and reminder offers to the
// broker.
type Publisher struct {
	client *Client
}

var _ notify.Sink = (*Publisher)(nil)

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Notify publishes a notification. Failures are only logged.
func (p *Publisher) Notify(ctx context.Context, message string, kind notify.Kind) {
	if p.client == nil {
		return
	}
	if err := p.client.Publish(ctx, NewNotificationMessage(message, kind)); err != nil {
		p.client.logger.WarnContext(ctx, "Failed to publish notification", "error", err, "kind", string(kind))
	}
}

func (p *Publisher) PublishReminder(ctx context.Context, r core.Reminder) error {
	if p.client == nil {
		return nil
	}
	if err := p.client.Publish(ctx, NewReminderMessage(r)); err != nil {
		return fmt.Errorf("publish reminder for %s: %w", r.Name, err)
	}
	return nil
}

// Package worker consumes the fee desk notification queue.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"feedesk/internal/amqp"
	"feedesk/internal/core"
	applog "feedesk/internal/log"
)

// Dispatcher delivers a reminder to the guardian.
type Dispatcher interface {
	Dispatch(ctx context.Context, r core.Reminder) error
}

// LogDispatcher writes reminder links to the log for an operator to send.
type LogDispatcher struct {
	logger *applog.Logger
}

func NewLogDispatcher(logger *applog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, r core.Reminder) error {
	d.logger.InfoContext(ctx, "Fee reminder ready",
		"name", r.Name,
		"phone", r.Phone,
		"estimated_due", r.EstimatedDue.String(),
		"link", r.Link)
	return nil
}

// Stats counts handled messages.
type Stats struct {
	Notifications int64
	Reminders     int64
	Dropped       int64
}

// Notifier handles messages published by the fee desk.
type Notifier struct {
	dispatcher Dispatcher
	logger     *applog.Logger

	notifications atomic.Int64
	reminders     atomic.Int64
	dropped       atomic.Int64
}

func NewNotifier(d Dispatcher, logger *applog.Logger) *Notifier {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentNotifier)
	if d == nil {
		d = NewLogDispatcher(logger)
	}
	return &Notifier{dispatcher: d, logger: logger}
}

// HandleMessage processes one queue message. Malformed reminders are
// dropped; only dispatch failures are returned so the message is requeued.
func (n *Notifier) HandleMessage(ctx context.Context, msg *amqp.Message) error {
	switch msg.Type {
	case amqp.TypeNotification:
		n.notifications.Add(1)
		n.logNotification(ctx, msg)
		return nil
	case amqp.TypeReminder:
		r, err := reminderFromMessage(msg)
		if err != nil {
			n.dropped.Add(1)
			n.logger.WarnContext(ctx, "Dropping reminder", "error", err, "name", msg.Name)
			return nil
		}
		if err := n.dispatcher.Dispatch(ctx, r); err != nil {
			return fmt.Errorf("dispatch reminder for %s: %w", r.Name, err)
		}
		n.reminders.Add(1)
		return nil
	default:
		n.dropped.Add(1)
		n.logger.WarnContext(ctx, "Unknown message type", "type", msg.Type)
		return nil
	}
}

func (n *Notifier) logNotification(ctx context.Context, msg *amqp.Message) {
	args := []any{"kind", msg.Kind, "at", msg.Timestamp}
	switch msg.Kind {
	case "error":
		n.logger.ErrorContext(ctx, msg.Text, args...)
	case "warning":
		n.logger.WarnContext(ctx, msg.Text, args...)
	default:
		n.logger.InfoContext(ctx, msg.Text, args...)
	}
}

// Stats returns the counters accumulated so far.
func (n *Notifier) Stats() Stats {
	return Stats{
		Notifications: n.notifications.Load(),
		Reminders:     n.reminders.Load(),
		Dropped:       n.dropped.Load(),
	}
}

// reminderFromMessage rebuilds a reminder, deriving the link when the
// publisher left it out.
func reminderFromMessage(msg *amqp.Message) (core.Reminder, error) {
	if core.NormalizePhone(msg.Phone) == "" {
		return core.Reminder{}, fmt.Errorf("reminder without phone")
	}
	due := decimal.Zero
	if msg.Due != "" {
		d, err := decimal.NewFromString(msg.Due)
		if err != nil {
			return core.Reminder{}, fmt.Errorf("invalid due %q: %w", msg.Due, err)
		}
		due = d
	}
	link := msg.Link
	if link == "" || link == core.NoLink {
		link = core.BuildReminderLink(msg.Phone, msg.Name, due)
	}
	return core.Reminder{
		Phone:        msg.Phone,
		Name:         msg.Name,
		EstimatedDue: due,
		Link:         link,
	}, nil
}

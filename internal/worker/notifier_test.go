package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"feedesk/internal/amqp"
	"feedesk/internal/core"
	applog "feedesk/internal/log"
	"feedesk/internal/notify"
)

type recordingDispatcher struct {
	got []core.Reminder
	err error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, r core.Reminder) error {
	if d.err != nil {
		return d.err
	}
	d.got = append(d.got, r)
	return nil
}

func TestNotifier_HandleMessage(t *testing.T) {
	ctx := context.Background()
	d := &recordingDispatcher{}
	n := NewNotifier(d, applog.Discard())

	reminder := amqp.NewReminderMessage(core.Reminder{
		Phone:        "9876543210",
		Name:         "Asha",
		EstimatedDue: decimal.NewFromInt(600),
	})

	tests := []struct {
		name string
		msg  *amqp.Message
	}{
		{"notification", amqp.NewNotificationMessage("Payment Recorded!", notify.KindSuccess)},
		{"reminder", reminder},
		{"reminder without phone", &amqp.Message{Type: amqp.TypeReminder, Name: "Ravi"}},
		{"reminder with bad due", &amqp.Message{Type: amqp.TypeReminder, Phone: "9876543210", Due: "lots"}},
		{"unknown type", &amqp.Message{Type: "expense_sync"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := n.HandleMessage(ctx, tt.msg); err != nil {
				t.Errorf("HandleMessage: %v", err)
			}
		})
	}

	want := Stats{Notifications: 1, Reminders: 1, Dropped: 3}
	if got := n.Stats(); got != want {
		t.Errorf("Stats = %+v, want %+v", got, want)
	}
	if len(d.got) != 1 {
		t.Fatalf("dispatched %d reminders, want 1", len(d.got))
	}
	r := d.got[0]
	if !strings.HasPrefix(r.Link, "https://wa.me/919876543210?text=") {
		t.Errorf("link = %q", r.Link)
	}
	if !r.EstimatedDue.Equal(decimal.NewFromInt(600)) {
		t.Errorf("due = %s, want 600", r.EstimatedDue)
	}
}

func TestNotifier_DispatchFailureRequeues(t *testing.T) {
	boom := errors.New("gateway down")
	n := NewNotifier(&recordingDispatcher{err: boom}, nil)
	msg := &amqp.Message{Type: amqp.TypeReminder, Name: "Asha", Phone: "9876543210", Due: "600"}

	err := n.HandleMessage(context.Background(), msg)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if got := n.Stats().Reminders; got != 0 {
		t.Errorf("Reminders = %d, want 0", got)
	}
}

func TestReminderFromMessage_KeepsPublishedLink(t *testing.T) {
	msg := &amqp.Message{Type: amqp.TypeReminder, Name: "Asha", Phone: "9876543210", Due: "600", Link: "https://wa.me/919876543210?text=x"}
	r, err := reminderFromMessage(msg)
	if err != nil {
		t.Fatalf("reminderFromMessage: %v", err)
	}
	if r.Link != msg.Link {
		t.Errorf("link = %q, want %q", r.Link, msg.Link)
	}
}

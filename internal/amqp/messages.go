package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"feedesk/internal/core"
	"feedesk/internal/notify"
)

// Message types carried on the notification queue.
const (
	TypeNotification = "notification"
	TypeReminder     = "reminder"
)

// Message is the JSON body published for notifications and reminder
// offers. Reminder fields are empty on notifications and vice versa.
type Message struct {
	Type      string    `json:"type"`
	Text      string    `json:"text,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Due       string    `json:"due,omitempty"`
	Link      string    `json:"link,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotificationMessage(text string, kind notify.Kind) *Message {
	return &Message{
		Type:      TypeNotification,
		Text:      text,
		Kind:      string(kind),
		Timestamp: time.Now(),
	}
}

// NewReminderMessage carries a reminder offer. Due is the local estimate
// made at collection time.
func NewReminderMessage(r core.Reminder) *Message {
	return &Message{
		Type:      TypeReminder,
		Name:      r.Name,
		Phone:     r.Phone,
		Due:       r.EstimatedDue.String(),
		Link:      r.Link,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes a message and rejects unknown types.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TypeNotification, TypeReminder:
		return &msg, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

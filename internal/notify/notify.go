// Package notify delivers user-facing messages (toasts, alerts) raised by
// the mutation coordinator.
package notify

import (
	"context"
	"sync"

	applog "feedesk/internal/log"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Sink receives notifications. Implementations must not block for long;
// the coordinator calls them inline.
type Sink interface {
	Notify(ctx context.Context, message string, kind Kind)
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *applog.Logger
}

func NewLogSink(logger *applog.Logger) *LogSink {
	return &LogSink{logger: logger.WithComponent(applog.ComponentNotifier)}
}

func (s *LogSink) Notify(ctx context.Context, message string, kind Kind) {
	switch kind {
	case KindError:
		s.logger.ErrorContext(ctx, message, "kind", string(kind))
	case KindWarning:
		s.logger.WarnContext(ctx, message, "kind", string(kind))
	default:
		s.logger.InfoContext(ctx, message, "kind", string(kind))
	}
}

// Multi fans a notification out to several sinks.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, message string, kind Kind) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, message, kind)
		}
	}
}

// Discard drops notifications.
var Discard Sink = Multi(nil)

// Message is one recorded notification.
type Message struct {
	Text string
	Kind Kind
}

// Recorder keeps notifications in memory. The HTTP facade uses it to hand
// the last messages to the page; tests use it for assertions.
type Recorder struct {
	mu   sync.Mutex
	msgs []Message
	max  int
}

// NewRecorder keeps at most max messages (0 means unbounded).
func NewRecorder(max int) *Recorder {
	return &Recorder{max: max}
}

func (r *Recorder) Notify(_ context.Context, message string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, Message{Text: message, Kind: kind})
	if r.max > 0 && len(r.msgs) > r.max {
		r.msgs = append([]Message(nil), r.msgs[len(r.msgs)-r.max:]...)
	}
}

// Messages returns a copy of the recorded notifications, oldest first.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.msgs...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return Message{}, false
	}
	return r.msgs[len(r.msgs)-1], true
}

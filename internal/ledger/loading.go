package ledger

import "sync"

// Indicator receives the loading signal raised around every remote call.
type Indicator interface {
	SetLoading(on bool)
}

// Loader is an Indicator that stays on while any call is in flight. It does
// not serialize calls. OnChange, when set, is invoked on every visible
// transition with the lock released.
type Loader struct {
	mu       sync.Mutex
	inFlight int
	OnChange func(loading bool)
}

func (l *Loader) SetLoading(on bool) {
	l.mu.Lock()
	before := l.inFlight > 0
	if on {
		l.inFlight++
	} else if l.inFlight > 0 {
		l.inFlight--
	}
	after := l.inFlight > 0
	cb := l.OnChange
	l.mu.Unlock()

	if cb != nil && before != after {
		cb(after)
	}
}

// Loading reports whether a call is in flight.
func (l *Loader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight > 0
}

type noopIndicator struct{}

func (noopIndicator) SetLoading(bool) {}

// NoIndicator discards the loading signal.
var NoIndicator Indicator = noopIndicator{}

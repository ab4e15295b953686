package event

import "sync"

// Subscriber tracks registrations made through it so they can be removed
// together with Close.
type Subscriber struct {
	emitter *Emitter
	regs    []registration
	mu      sync.Mutex
	closed  bool
}

type registration struct {
	key      string
	listener *Listener
	catchAll bool
}

// NewSubscriber creates a Subscriber registering on e.
func NewSubscriber(e *Emitter) *Subscriber {
	return &Subscriber{emitter: e}
}

// On registers fn for key and returns its Listener. After Close it
// registers nothing and returns nil.
func (s *Subscriber) On(key string, fn HandlerFunc, opts ...ListenerOption) *Listener {
	return s.track(key, fn, func(l *Listener) { s.emitter.On(key, l, opts...) })
}

// Once registers fn for a single delivery of key.
func (s *Subscriber) Once(key string, fn HandlerFunc, opts ...ListenerOption) *Listener {
	return s.track(key, fn, func(l *Listener) { s.emitter.Once(key, l, opts...) })
}

// Prepend registers fn ahead of same-priority listeners for key.
func (s *Subscriber) Prepend(key string, fn HandlerFunc, opts ...ListenerOption) *Listener {
	return s.track(key, fn, func(l *Listener) { s.emitter.Prepend(key, l, opts...) })
}

// PrependOnce is Once with Prepend's placement.
func (s *Subscriber) PrependOnce(key string, fn HandlerFunc, opts ...ListenerOption) *Listener {
	return s.track(key, fn, func(l *Listener) { s.emitter.PrependOnce(key, l, opts...) })
}

// OnAny registers fn as a catch-all listener.
func (s *Subscriber) OnAny(fn HandlerFunc) *Listener {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	l := NewListener(fn)
	s.emitter.OnAny(l)
	s.regs = append(s.regs, registration{listener: l, catchAll: true})
	return l
}

func (s *Subscriber) track(key string, fn HandlerFunc, register func(*Listener)) *Listener {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	l := NewListener(fn)
	register(l)
	s.regs = append(s.regs, registration{key: key, listener: l})
	return l
}

// Count returns the number of registrations made through s. Once listeners
// that already fired still count until Close.
func (s *Subscriber) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regs)
}

// Emitter returns the emitter s registers on.
func (s *Subscriber) Emitter() *Emitter {
	return s.emitter
}

// Close removes every registration made through s. Further registrations
// are ignored. Close is idempotent.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for _, r := range s.regs {
		if r.catchAll {
			s.emitter.OffAny(r.listener)
		} else {
			s.emitter.Off(r.key, r.listener)
		}
	}
	s.regs = nil
}

// IsClosed returns true if Close has been called.
func (s *Subscriber) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

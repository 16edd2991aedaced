package bus

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/roomcraft/pkg/loop"
	"go.uber.org/zap"
)

// ErrNoHandler is reported for a command published with no subscriber.
var ErrNoHandler = errors.New("bus: no handler subscribed")

// Handler executes a command on the loop. The returned value is passed on
// in the Result.
type Handler func(Command) (any, error)

// Result is the outcome of one command delivery, or of a later completion
// reported by the session (asset loads).
type Result struct {
	Name    string
	Command Command // nil when the payload did not decode
	Value   any
	Err     error
}

// OK reports whether the command succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Reporter receives every Result on the loop.
type Reporter func(Result)

// Bus delivers commands to its subscribers in publish order on the loop.
// Publish is safe from any goroutine.
type Bus struct {
	q   *loop.Queue
	log *zap.Logger

	mu        sync.Mutex
	nextID    uint64
	handlers  []subscriber
	reporters []Reporter
}

type subscriber struct {
	id uint64
	h  Handler
}

// New returns a bus delivering through q.
func New(q *loop.Queue, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{q: q, log: logger}
}

// Subscription removes its handler from the bus.
type Subscription struct {
	b    *Bus
	id   uint64
	once sync.Once
}

// Unsubscribe detaches the handler. Commands already queued are still
// delivered to the remaining subscribers only. Safe to call twice.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.b.mu.Lock()
		defer s.b.mu.Unlock()
		for i, sub := range s.b.handlers {
			if sub.id == s.id {
				s.b.handlers = append(s.b.handlers[:i:i], s.b.handlers[i+1:]...)
				return
			}
		}
	})
}

// Subscribe adds h. Handlers run in subscription order.
func (b *Bus) Subscribe(h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.handlers = append(b.handlers, subscriber{id: b.nextID, h: h})
	return &Subscription{b: b, id: b.nextID}
}

// Subscribers returns the number of attached handlers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// OnResult adds a reporter.
func (b *Bus) OnResult(r Reporter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reporters = append(b.reporters, r)
}

// Publish queues cmd for delivery. It fails only once the loop is closed.
func (b *Bus) Publish(cmd Command) error {
	if cmd == nil {
		return errors.New("bus: nil command")
	}
	return b.q.Post(cmd.Name(), func() { b.deliver(cmd) })
}

// PublishRaw decodes a named payload and publishes it. A payload that does
// not decode is reported as a failed Result and its error returned.
func (b *Bus) PublishRaw(name string, payload []byte) error {
	cmd, err := Decode(name, payload)
	if err != nil {
		b.log.Warn("rejected command payload", zap.String("command", name), zap.Error(err))
		if postErr := b.q.Post(name, func() { b.Report(Result{Name: name, Err: err}) }); postErr != nil {
			return postErr
		}
		return err
	}
	return b.Publish(cmd)
}

// Report hands r to every reporter. It must be called on the loop.
func (b *Bus) Report(r Result) {
	b.mu.Lock()
	reporters := append([]Reporter(nil), b.reporters...)
	b.mu.Unlock()
	for _, fn := range reporters {
		fn(r)
	}
}

func (b *Bus) deliver(cmd Command) {
	b.mu.Lock()
	handlers := append([]subscriber(nil), b.handlers...)
	b.mu.Unlock()

	if len(handlers) == 0 {
		b.Report(Result{Name: cmd.Name(), Command: cmd, Err: ErrNoHandler})
		return
	}
	for _, sub := range handlers {
		value, err := b.call(sub.h, cmd)
		if err != nil {
			b.log.Warn("command failed", zap.String("command", cmd.Name()), zap.Error(err))
		} else {
			b.log.Debug("command handled", zap.String("command", cmd.Name()))
		}
		b.Report(Result{Name: cmd.Name(), Command: cmd, Value: value, Err: err})
	}
}

// call runs h, turning a panic into an error.
func (b *Bus) call(h Handler, cmd Command) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: handler panicked: %v", cmd.Name(), r)
		}
	}()
	return h(cmd)
}

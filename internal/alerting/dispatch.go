package alerting

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const deliveryTimeout = 10 * time.Second

// Dispatcher queues notifications and delivers them on a background goroutine so
// callers never wait on a slow notifier. A full queue drops the notification.
type Dispatcher struct {
	target  Notifier
	queue   chan Notification
	logger  zerolog.Logger
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewDispatcher starts a dispatcher in front of target.
func NewDispatcher(target Notifier, buffer int, logger zerolog.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 32
	}
	d := &Dispatcher{
		target: target,
		queue:  make(chan Notification, buffer),
		logger: logger.With().Str("component", "notice_dispatcher").Logger(),
		done:   make(chan struct{}),
	}
	go d.loop()
	return d
}

// Notify enqueues the notification without blocking.
func (d *Dispatcher) Notify(_ context.Context, note Notification) error {
	if note.Time.IsZero() {
		note.Time = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil
	}

	select {
	case d.queue <- note:
	default:
		d.dropped.Add(1)
		d.logger.Warn().Str("op", note.Op).Msg("notice queue full; dropping notice")
	}
	return nil
}

// Dropped reports how many notifications were discarded.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting notifications and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for note := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := d.target.Notify(ctx, note); err != nil {
			d.logger.Error().Err(err).Str("op", note.Op).Msg("failed to deliver notice")
		}
		cancel()
	}
}

// Recorder keeps the most recent notifications until a view drains them.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	pending []Notification
}

// NewRecorder keeps at most limit undrained notifications.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 5
	}
	return &Recorder{limit: limit}
}

// Notify records the notification, evicting the oldest beyond the limit.
func (r *Recorder) Notify(_ context.Context, note Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, note)
	if over := len(r.pending) - r.limit; over > 0 {
		r.pending = append([]Notification(nil), r.pending[over:]...)
	}
	return nil
}

// Drain returns pending notifications oldest first and forgets them.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.pending
	r.pending = nil
	return out
}

var (
	_ Notifier = (*Dispatcher)(nil)
	_ Notifier = (*Recorder)(nil)
)

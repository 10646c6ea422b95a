package analytics

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/audiocove/audiocove/internal/logger"
	"github.com/audiocove/audiocove/internal/metrics"
)

// insertTimeout is the maximum duration for a single event insert.
const insertTimeout = 5 * time.Second

// Collector buffers request events and writes them to the store from a
// single background worker. Recording is non-blocking: when the buffer
// is full the event is dropped and counted, never stalling a request.
type Collector struct {
	store   EventStore
	limiter *rate.Limiter

	// mu guards events against a Record racing Close: once closed is set
	// the channel may no longer be sent on.
	mu     sync.Mutex
	events chan Event
	closed bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewCollector starts a collector with the given buffer size and a cap
// on store writes per second. writesPerSecond <= 0 disables throttling.
func NewCollector(store EventStore, buffer int, writesPerSecond float64) *Collector {
	if buffer <= 0 {
		buffer = 1024
	}
	limit := rate.Inf
	if writesPerSecond > 0 {
		limit = rate.Limit(writesPerSecond)
	}

	c := &Collector{
		store:   store,
		events:  make(chan Event, buffer),
		limiter: rate.NewLimiter(limit, 1),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// Record enqueues an event for persistence. It never blocks; if the
// buffer is full, or the collector has been closed, the event is dropped.
func (c *Collector) Record(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		metrics.AnalyticsDroppedTotal.Inc()
		return
	}
	select {
	case c.events <- event:
	default:
		metrics.AnalyticsDroppedTotal.Inc()
	}
}

// Close stops accepting events and blocks until the buffer has drained.
func (c *Collector) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.events)
		c.mu.Unlock()
		<-c.done
	})
}

func (c *Collector) run() {
	defer close(c.done)

	for event := range c.events {
		if err := c.limiter.Wait(context.Background()); err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		if err := c.store.InsertRequestEvent(ctx, event); err != nil {
			// Analytics failures must never surface to clients.
			logger.Error("failed to insert request event", "error", err, "path", event.Path)
		}
		cancel()
	}
}

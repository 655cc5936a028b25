package stats

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xxng1/searchpilot/pkg/kafka"
)

// SearchEvent is the analytics payload exported per completed search.
type SearchEvent struct {
	Query     string    `json:"query"`
	LatencyMs float64   `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Exporter ships search events to Kafka through a bounded buffer. Events are
// dropped rather than blocking the request path when the buffer is full.
//
// eventCh is never closed: requests still draining during shutdown may call
// Track after Close, so Close signals the publish loop through quit and
// Track turns into a no-op once the closed flag is set.
type Exporter struct {
	producer  *kafka.Producer
	eventCh   chan SearchEvent
	quit      chan struct{}
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
	logger    *slog.Logger
}

// NewExporter creates an Exporter publishing to the given producer.
func NewExporter(producer *kafka.Producer, bufferSize int) *Exporter {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Exporter{
		producer: producer,
		eventCh:  make(chan SearchEvent, bufferSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		logger:   slog.Default().With("component", "stats-exporter"),
	}
}

// Start launches the publish loop until ctx is cancelled or Close is called.
func (e *Exporter) Start(ctx context.Context) {
	go func() {
		defer close(e.done)
		for {
			select {
			case event := <-e.eventCh:
				if err := e.producer.Publish(ctx, kafka.Event{
					Key:   event.Query,
					Value: event,
				}); err != nil {
					e.logger.Error("failed to publish search event", "error", err)
				}
			case <-ctx.Done():
				e.drainRemaining()
				return
			case <-e.quit:
				e.drainRemaining()
				return
			}
		}
	}()
	e.logger.Info("stats exporter started", "buffer_size", cap(e.eventCh))
}

// Track enqueues an event without blocking; full buffers drop the event.
// Safe to call at any time, including after Close, when it drops the event.
func (e *Exporter) Track(event SearchEvent) {
	if e.closed.Load() {
		return
	}
	select {
	case e.eventCh <- event:
	default:
		e.logger.Warn("search event dropped (buffer full)")
	}
}

// Close stops accepting events, flushes what is already buffered, and waits
// for the publish loop to exit. Safe to call more than once.
func (e *Exporter) Close() {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		close(e.quit)
	})
	<-e.done
}

func (e *Exporter) drainRemaining() {
	for {
		select {
		case event := <-e.eventCh:
			if err := e.producer.Publish(context.Background(), kafka.Event{
				Key:   event.Query,
				Value: event,
			}); err != nil {
				e.logger.Error("failed to publish remaining event", "error", err)
			}
		default:
			return
		}
	}
}

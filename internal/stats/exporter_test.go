package stats

import (
	"context"
	"testing"
	"time"

	"github.com/xxng1/searchpilot/pkg/config"
	"github.com/xxng1/searchpilot/pkg/kafka"
)

func newTestExporter(buffer int) *Exporter {
	// The producer never publishes in these tests, so no broker is needed.
	producer := kafka.NewProducer(config.KafkaConfig{
		Brokers: []string{"localhost:0"},
	}, "search-events-test")
	return NewExporter(producer, buffer)
}

// TestTrackAfterCloseIsSafe verifies the shutdown ordering in the server:
// Close runs while draining requests may still record searches, so a Track
// arriving after Close must be a silent drop, never a panic.
func TestTrackAfterCloseIsSafe(t *testing.T) {
	e := newTestExporter(4)
	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx)
	cancel()
	e.Close()

	e.Track(SearchEvent{Query: "shoes", LatencyMs: 1.5, Timestamp: time.Now()})
	e.Track(SearchEvent{Query: "노트북", LatencyMs: 2.0, Timestamp: time.Now()})
}

// TestCloseIsIdempotent verifies Close can run more than once, as with a
// deferred Close alongside an explicit shutdown path.
func TestCloseIsIdempotent(t *testing.T) {
	e := newTestExporter(4)
	e.Start(context.Background())
	e.Close()
	e.Close()
}

// TestCloseStopsPublishLoop verifies Close alone, without context
// cancellation, terminates the publish loop.
func TestCloseStopsPublishLoop(t *testing.T) {
	e := newTestExporter(4)
	e.Start(context.Background())

	finished := make(chan struct{})
	go func() {
		e.Close()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return; publish loop still running")
	}
}

// Package ingest wires the optional Kafka item-ingest pipeline: items
// published on the ingest topic are validated and indexed exactly as items
// arriving over HTTP.
package ingest

import (
	"context"
	"log/slog"

	"github.com/xxng1/searchpilot/internal/catalog"
	"github.com/xxng1/searchpilot/internal/indexer"
	"github.com/xxng1/searchpilot/pkg/kafka"
)

// Sink receives side effects of an indexed item, typically cache
// invalidation and write-through persistence.
type Sink func(ctx context.Context, item *catalog.Item)

// Handler returns a Kafka MessageHandler that indexes incoming items.
// Malformed or invalid payloads are logged and skipped; the consumer keeps
// running.
func Handler(engine *indexer.Engine, sink Sink) kafka.MessageHandler {
	logger := slog.Default().With("component", "item-ingest")
	return func(ctx context.Context, key []byte, value []byte) error {
		item, err := kafka.DecodeJSON[catalog.Item](value)
		if err != nil {
			logger.Error("failed to decode item", "error", err)
			return nil
		}
		if err := engine.Put(&item); err != nil {
			logger.Error("failed to index item", "id", item.ID, "error", err)
			return nil
		}
		logger.Debug("item indexed from topic", "id", item.ID)
		if sink != nil {
			sink(ctx, &item)
		}
		return nil
	}
}

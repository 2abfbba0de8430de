// Package consumer reads document events from Kafka and indexes them into
// the shard that owns each document.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/kafka"
)

// DocumentEvent is the payload of the document ingest topic.
type DocumentEvent struct {
	DocumentID string            `json:"document_id"`
	Fields     map[string]string `json:"fields"`
	IngestedAt time.Time         `json:"ingested_at"`
}

// Indexer is satisfied by *shard.Router.
type Indexer interface {
	IndexDocument(docID string, fields map[string]string) (int, error)
}

// HandleMessage returns a MessageHandler that indexes every decodable
// event. Malformed payloads are logged and acknowledged; indexing failures
// are returned so the offset is not committed.
func HandleMessage(idx Indexer) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[DocumentEvent](value)
		if err != nil {
			logger.Error("failed to decode document event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if event.DocumentID == "" || len(event.Fields) == 0 {
			logger.Warn("skipping document event without id or fields", "key", string(key))
			return nil
		}
		shardID, err := idx.IndexDocument(event.DocumentID, event.Fields)
		if err != nil {
			return fmt.Errorf("indexing document %s: %w", event.DocumentID, err)
		}
		logger.Debug("document indexed",
			"doc_id", event.DocumentID,
			"shard_id", shardID,
			"fields", len(event.Fields),
		)
		return nil
	}
}

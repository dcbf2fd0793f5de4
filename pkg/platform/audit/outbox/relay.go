// Package outbox relays audit events from the Postgres outbox table to
// Kafka. Events are written to the outbox in the same transaction as the
// audit_events row, so the stream never diverges from the stored trail.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultInterval = time.Second
	batchSize       = 100
)

// Relay polls the outbox table and publishes pending entries to Kafka.
// Entries are deleted only after a successful produce, so delivery is
// at-least-once; consumers must dedupe on the event ID in the payload.
type Relay struct {
	db       *sql.DB
	client   *kgo.Client
	topic    string
	logger   *slog.Logger
	interval time.Duration
}

// New connects a relay to the given brokers.
func New(db *sql.DB, brokers []string, topic string, logger *slog.Logger) (*Relay, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Relay{
		db:       db,
		client:   client,
		topic:    topic,
		logger:   logger,
		interval: defaultInterval,
	}, nil
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := r.relayBatch(ctx)
			if err != nil {
				r.logger.Error("outbox relay batch failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Debug("outbox batch relayed", "count", n)
			}
		}
	}
}

// relayBatch publishes up to batchSize pending outbox entries.
// SKIP LOCKED lets multiple instances relay concurrently without double
// delivery inside one polling interval.
func (r *Relay) relayBatch(ctx context.Context) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, batchSize)
	if err != nil {
		return 0, fmt.Errorf("query outbox: %w", err)
	}

	type entry struct {
		id          string
		aggregateID string
		payload     []byte
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.aggregateID, &e.payload); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	records := make([]*kgo.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, &kgo.Record{
			Topic: r.topic,
			// Key by application so per-application ordering survives
			// partitioning.
			Key:   []byte(e.aggregateID),
			Value: e.payload,
		})
	}
	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("produce outbox batch: %w", err)
	}

	ids := make([]any, 0, len(entries))
	placeholders := ""
	for i, e := range entries {
		if i > 0 {
			placeholders += ","
		}
		placeholders += fmt.Sprintf("$%d", i+1)
		ids = append(ids, e.id)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM outbox WHERE id IN ("+placeholders+")", ids...); err != nil {
		return 0, fmt.Errorf("delete relayed entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return len(entries), nil
}

// Close flushes and releases the Kafka client.
func (r *Relay) Close() {
	r.client.Close()
}

package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tour-booking/pkg/database"
	"tour-booking/pkg/outbox"

	"go.uber.org/zap"
)

// maxOutboxRetries bounds how often a failed event is handed back to the relay.
const maxOutboxRetries = 10

type OutboxRepository interface {
	outbox.Store
	Append(ctx context.Context, event *outbox.Event) error
}

type outboxRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewOutboxRepository(db database.DBTX, log *zap.Logger) OutboxRepository {
	return &outboxRepository{
		db:  db,
		log: log.With(zap.String("repository", "outbox")),
	}
}

func (r *outboxRepository) Append(ctx context.Context, event *outbox.Event) error {
	query := `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		event.AggregateType,
		event.AggregateID,
		event.Type,
		event.Payload,
		event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		r.log.Error("Failed to append outbox event",
			zap.Error(err),
			zap.String("type", event.Type),
			zap.String("aggregate_id", event.AggregateID),
		)
		return fmt.Errorf("append outbox event %s: %w", event.Type, err)
	}

	event.Status = outbox.StatusPending
	return nil
}

func (r *outboxRepository) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	query := `
		WITH batch AS (
			SELECT id
			FROM outbox
			WHERE status = 'pending'
			   OR (status = 'failed' AND retry_count < $4)
			   OR (status = 'in_progress' AND locked_until < NOW())
			ORDER BY id
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE outbox o
		SET status = 'in_progress', locked_by = $1, locked_until = NOW() + make_interval(secs => $3)
		FROM batch
		WHERE o.id = batch.id
		RETURNING o.id, o.aggregate_type, o.aggregate_id, o.type, o.payload, o.created_at,
		          o.status, o.retry_count, o.last_error
	`

	rows, err := r.db.Query(ctx, query, relayID, batchSize, lease.Seconds(), maxOutboxRetries)
	if err != nil {
		r.log.Error("Failed to lock outbox batch", zap.Error(err), zap.String("relay_id", relayID))
		return nil, fmt.Errorf("lock outbox batch: %w", err)
	}
	defer rows.Close()

	var events []outbox.Event
	for rows.Next() {
		var ev outbox.Event
		if err := rows.Scan(
			&ev.ID,
			&ev.AggregateType,
			&ev.AggregateID,
			&ev.Type,
			&ev.Payload,
			&ev.CreatedAt,
			&ev.Status,
			&ev.RetryCount,
			&ev.LastError,
		); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox batch: %w", err)
	}

	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, ids []int64) error {
	query := `
		UPDATE outbox
		SET status = 'sent', locked_by = NULL, locked_until = NULL
		WHERE id = ANY($1)
	`

	if _, err := r.db.Exec(ctx, query, ids); err != nil {
		r.log.Error("Failed to mark outbox events sent", zap.Error(err), zap.Int("count", len(ids)))
		return fmt.Errorf("mark outbox sent: %w", err)
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	query := `
		UPDATE outbox
		SET status = 'failed', retry_count = retry_count + 1, last_error = $2,
		    locked_by = NULL, locked_until = NULL
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, id, errMsg); err != nil {
		r.log.Error("Failed to mark outbox event failed", zap.Error(err), zap.Int64("event_id", id))
		return fmt.Errorf("mark outbox failed %d: %w", id, err)
	}
	return nil
}

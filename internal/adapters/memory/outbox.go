package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/domain"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

// Outbox keeps integration events in memory with the same claim/lease
// semantics as the Postgres outbox.
type Outbox struct {
	mu      sync.Mutex
	records map[uuid.UUID]*ports.OutboxRecord
}

func NewOutbox() *Outbox {
	return &Outbox{records: make(map[uuid.UUID]*ports.OutboxRecord)}
}

func (o *Outbox) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.records[event.EventID]; exists {
		return domain.ErrConflict
	}
	o.records[event.EventID] = &ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      append([]byte(nil), event.Payload...),
		CreatedAt:    event.OccurredAt,
	}
	return nil
}

func (o *Outbox) ClaimUnpublished(_ context.Context, limit int, claimToken string, claimUntil time.Time) ([]ports.OutboxRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	pending := make([]*ports.OutboxRecord, 0)
	for _, rec := range o.records {
		if rec.PublishedAt != nil || rec.DeadLetteredAt != nil {
			continue
		}
		if rec.ClaimUntil != nil && rec.ClaimUntil.After(now) {
			continue
		}
		pending = append(pending, rec)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > limit {
		pending = pending[:limit]
	}
	out := make([]ports.OutboxRecord, 0, len(pending))
	for _, rec := range pending {
		token := claimToken
		until := claimUntil
		rec.ClaimToken = &token
		rec.ClaimUntil = &until
		out = append(out, *rec)
	}
	return out, nil
}

func (o *Outbox) MarkPublished(_ context.Context, outboxID uuid.UUID, claimToken string, at time.Time) error {
	return o.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.PublishedAt = &at
	})
}

func (o *Outbox) MarkFailed(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return o.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.RetryCount++
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
	})
}

func (o *Outbox) MarkDeadLettered(_ context.Context, outboxID uuid.UUID, claimToken, errMsg string, at time.Time) error {
	return o.update(outboxID, claimToken, func(rec *ports.OutboxRecord) {
		rec.RetryCount++
		rec.LastError = &errMsg
		rec.LastErrorAt = &at
		rec.DeadLetteredAt = &at
	})
}

// Records returns a copy of every stored record.
func (o *Outbox) Records() []ports.OutboxRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ports.OutboxRecord, 0, len(o.records))
	for _, rec := range o.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (o *Outbox) update(outboxID uuid.UUID, claimToken string, apply func(rec *ports.OutboxRecord)) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec, ok := o.records[outboxID]
	if !ok || rec.ClaimToken == nil || *rec.ClaimToken != claimToken {
		return nil
	}
	apply(rec)
	rec.ClaimToken = nil
	rec.ClaimUntil = nil
	return nil
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

// OutboxNotifier turns vendor notifications into outbox rows. Delivery to the
// broker happens later in OutboxWorker, so a broker outage never touches the
// request path.
type OutboxNotifier struct {
	outbox ports.OutboxRepository
	nowFn  func() time.Time
}

func NewOutboxNotifier(outbox ports.OutboxRepository) *OutboxNotifier {
	return &OutboxNotifier{
		outbox: outbox,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (n *OutboxNotifier) DepositConfirmed(ctx context.Context, event ports.DepositConfirmedEvent) error {
	return n.enqueue(ctx, ports.EventDepositConfirmed, event.VendorID, event)
}

func (n *OutboxNotifier) ClaimRedeemed(ctx context.Context, event ports.ClaimRedeemedEvent) error {
	return n.enqueue(ctx, ports.EventClaimRedeemed, event.VendorID, event)
}

func (n *OutboxNotifier) enqueue(ctx context.Context, eventType string, vendorID uuid.UUID, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	return n.outbox.Enqueue(ctx, ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: vendorID.String(),
		Payload:      payload,
		OccurredAt:   n.nowFn(),
	})
}

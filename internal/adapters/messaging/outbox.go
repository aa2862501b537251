package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tour-routing-service/internal/ports"
)

var ErrDeliveryFailed = errors.New("delivery failed")

// Outbox records every message handed to it. Recipients listed through
// FailFor are refused, which lets tests script partial delivery failures.
type Outbox struct {
	mu       sync.Mutex
	sent     []ports.Message
	failFor  map[string]struct{}
	attempts map[string]int
}

func NewOutbox() *Outbox {
	return &Outbox{failFor: map[string]struct{}{}, attempts: map[string]int{}}
}

// FailFor makes every send to the given recipients fail.
func (o *Outbox) FailFor(recipientIDs ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, id := range recipientIDs {
		o.failFor[id] = struct{}{}
	}
}

// Heal clears all scripted failures.
func (o *Outbox) Heal() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failFor = map[string]struct{}{}
}

func (o *Outbox) Send(ctx context.Context, recipientID, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.attempts[recipientID]++
	if _, fail := o.failFor[recipientID]; fail {
		return fmt.Errorf("send to %s: %w", recipientID, ErrDeliveryFailed)
	}
	o.sent = append(o.sent, ports.Message{RecipientID: recipientID, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the delivered messages in delivery order.
func (o *Outbox) Sent() []ports.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]ports.Message(nil), o.sent...)
}

// Attempts counts send attempts for one recipient, failed ones included.
func (o *Outbox) Attempts(recipientID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts[recipientID]
}

// BatchOutbox is an Outbox that accepts whole batches. A batch containing any
// failing recipient is refused entirely, and FailBatch refuses the n-th batch
// call (1-based) whatever it contains.
type BatchOutbox struct {
	*Outbox

	mu        sync.Mutex
	calls     int
	failBatch map[int]struct{}
}

func NewBatchOutbox() *BatchOutbox {
	return &BatchOutbox{Outbox: NewOutbox(), failBatch: map[int]struct{}{}}
}

func (b *BatchOutbox) FailBatch(n ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, i := range n {
		b.failBatch[i] = struct{}{}
	}
}

// BatchCalls reports how many SendBatch calls were made.
func (b *BatchOutbox) BatchCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *BatchOutbox) SendBatch(ctx context.Context, msgs []ports.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	b.calls++
	_, fail := b.failBatch[b.calls]
	b.mu.Unlock()
	if fail {
		return fmt.Errorf("send batch of %d: %w", len(msgs), ErrDeliveryFailed)
	}

	b.Outbox.mu.Lock()
	defer b.Outbox.mu.Unlock()
	for _, m := range msgs {
		b.Outbox.attempts[m.RecipientID]++
		if _, bad := b.Outbox.failFor[m.RecipientID]; bad {
			return fmt.Errorf("send batch: recipient %s: %w", m.RecipientID, ErrDeliveryFailed)
		}
	}
	b.Outbox.sent = append(b.Outbox.sent, msgs...)
	return nil
}

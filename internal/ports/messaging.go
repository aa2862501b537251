package ports

import (
	"context"

	"tour-routing-service/internal/domain"
)

type Message struct {
	RecipientID string
	Subject     string
	Body        string
}

// Contract for the external message delivery collaborator (email, push, in-app).
type MessageSender interface {
	Send(ctx context.Context, recipientID, subject, body string) error
}

// Optional extension of MessageSender that delivers a batch in one call.
// A returned error fails the whole batch.
type BatchSender interface {
	MessageSender
	SendBatch(ctx context.Context, msgs []Message) error
}

// Contract for publishing domain events to notification and analytics consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

package messaging

import (
	"context"
	"testing"

	"tour-routing-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestOutboxRecordsAndFails(t *testing.T) {
	o := NewOutbox()
	o.FailFor("bad")

	require.NoError(t, o.Send(context.Background(), "good", "hi", "body"))
	err := o.Send(context.Background(), "bad", "hi", "body")
	require.ErrorIs(t, err, ErrDeliveryFailed)

	sent := o.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "good", sent[0].RecipientID)
	assert.Equal(t, 1, o.Attempts("bad"))

	o.Heal()
	require.NoError(t, o.Send(context.Background(), "bad", "hi", "body"))
	assert.Len(t, o.Sent(), 2)
}

func TestBatchOutboxFailsWholeBatch(t *testing.T) {
	b := NewBatchOutbox()
	b.FailBatch(2)

	batch := []ports.Message{{RecipientID: "a"}, {RecipientID: "b"}}
	require.NoError(t, b.SendBatch(context.Background(), batch))
	require.ErrorIs(t, b.SendBatch(context.Background(), batch), ErrDeliveryFailed)
	require.NoError(t, b.SendBatch(context.Background(), batch))

	assert.Equal(t, 3, b.BatchCalls())
	assert.Len(t, b.Sent(), 4)

	b.FailFor("b")
	require.ErrorIs(t, b.SendBatch(context.Background(), batch), ErrDeliveryFailed)
	assert.Len(t, b.Sent(), 4)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	err := s.SendBatch(context.Background(), []ports.Message{
		{RecipientID: "h1", Subject: "Show invitation", Body: "hello"},
		{RecipientID: "h2", Subject: "Show invitation", Body: "hello"},
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("message").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "h1", entries[0].ContextMap()["recipient"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Send(ctx, "h3", "s", "b"), context.Canceled)
}

package services

import (
	"context"
	"fmt"

	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/platform/retry"
	"tour-routing-service/internal/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultBatchSize = 50

// delivery is the outcome for one message of a batched dispatch.
type delivery struct {
	Sent      bool
	Skipped   bool
	Err       error
	SettleErr error
}

// batchDispatcher sends messages in bounded batches. A failing batch never
// aborts its siblings; every message gets its own delivery outcome.
type batchDispatcher struct {
	Sender      ports.MessageSender
	Retry       retry.Policy
	BatchSize   int
	Concurrency int
	// Cancelled is consulted before each batch and before each settle.
	Cancelled func() bool
	Logger    *zap.Logger
}

func (d batchDispatcher) cancelled(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return d.Cancelled != nil && d.Cancelled()
}

// run dispatches msgs and calls settle once per message after its batch has
// been sent, with the send error for that message (nil on success). Messages
// in batches that start after cancellation are marked skipped and never
// settled.
func (d batchDispatcher) run(
	ctx context.Context,
	kind string,
	msgs []ports.Message,
	settle func(ctx context.Context, i int, sendErr error) error,
) []delivery {
	out := make([]delivery, len(msgs))
	if len(msgs) == 0 {
		return out
	}

	size := d.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	limit := d.Concurrency
	if limit <= 0 {
		limit = 1
	}

	log := logging.OrNop(d.Logger).With(zap.String("dispatch", kind))

	// Batch goroutines never return an error so one failure cannot cancel
	// the group's siblings.
	var g errgroup.Group
	g.SetLimit(limit)

	for start, n := 0, 0; start < len(msgs); start, n = start+size, n+1 {
		end := min(start+size, len(msgs))
		batchNo := n + 1

		if limit == 1 {
			d.runBatch(ctx, log, batchNo, msgs, start, end, out, settle)
			continue
		}
		g.Go(func() error {
			d.runBatch(ctx, log, batchNo, msgs, start, end, out, settle)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (d batchDispatcher) runBatch(
	ctx context.Context,
	log *zap.Logger,
	batchNo int,
	msgs []ports.Message,
	start, end int,
	out []delivery,
	settle func(ctx context.Context, i int, sendErr error) error,
) {
	if d.cancelled(ctx) {
		for i := start; i < end; i++ {
			out[i].Skipped = true
		}
		log.Info("batch skipped", zap.Int("batch", batchNo), zap.Int("size", end-start))
		return
	}

	sendErrs := d.send(ctx, msgs[start:end])

	failed := 0
	for j, err := range sendErrs {
		i := start + j
		if err != nil {
			failed++
			out[i].Err = err
		} else {
			out[i].Sent = true
		}

		if d.cancelled(ctx) {
			out[i].Skipped = true
			continue
		}
		if settle != nil {
			out[i].SettleErr = settle(ctx, i, err)
		}
	}

	if failed > 0 {
		log.Warn("batch dispatched with failures",
			zap.Int("batch", batchNo),
			zap.Int("size", end-start),
			zap.Int("failed", failed),
		)
		return
	}
	log.Debug("batch dispatched", zap.Int("batch", batchNo), zap.Int("size", end-start))
}

// send returns one error slot per message. A BatchSender gets the whole batch
// in one call and its failure applies to every message in it.
func (d batchDispatcher) send(ctx context.Context, batch []ports.Message) []error {
	errs := make([]error, len(batch))

	if bs, ok := d.Sender.(ports.BatchSender); ok {
		err := retry.Do(ctx, d.Retry, func(ctx context.Context) error {
			return bs.SendBatch(ctx, batch)
		})
		if err != nil {
			err = fmt.Errorf("send batch: %w", err)
			for i := range errs {
				errs[i] = err
			}
		}
		return errs
	}

	for i, m := range batch {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}
		err := retry.Do(ctx, d.Retry, func(ctx context.Context) error {
			return d.Sender.Send(ctx, m.RecipientID, m.Subject, m.Body)
		})
		if err != nil {
			errs[i] = fmt.Errorf("send to %s: %w", m.RecipientID, err)
		}
	}
	return errs
}

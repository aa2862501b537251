package messaging

import (
	"context"

	"tour-routing-service/internal/platform/logging"
	"tour-routing-service/internal/ports"

	"go.uber.org/zap"
)

// LogSender writes messages to the log instead of delivering them. It is the
// default transport for local runs.
type LogSender struct {
	Logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{Logger: logging.OrNop(logger)}
}

func (s *LogSender) Send(ctx context.Context, recipientID, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logging.OrNop(s.Logger).Info("message",
		zap.String("recipient", recipientID),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}

// SendBatch logs a whole batch in one call.
func (s *LogSender) SendBatch(ctx context.Context, msgs []ports.Message) error {
	for _, m := range msgs {
		if err := s.Send(ctx, m.RecipientID, m.Subject, m.Body); err != nil {
			return err
		}
	}
	return nil
}

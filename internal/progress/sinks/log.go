package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/sitegrab/sitegrab/internal/progress"
)

// LogSink emits structured logs for debugging progress streams. It is useful
// during development or audits where no other consumer is attached.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the event using structured fields.
func (s *LogSink) Consume(_ context.Context, evt progress.Event) error {
	s.logger.Info("progress event",
		zap.ByteString("run_id", evt.RunID[:]),
		zap.String("kind", string(evt.Kind)),
		zap.String("url", evt.URL),
		zap.String("message", evt.Message),
		zap.Float64("fraction", evt.Fraction),
		zap.Int64("bytes", evt.Bytes),
		zap.String("status_class", string(evt.StatusClass)),
		zap.String("err_kind", evt.ErrKind),
		zap.String("state", evt.State),
		zap.Duration("dur", evt.Dur),
	)
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}

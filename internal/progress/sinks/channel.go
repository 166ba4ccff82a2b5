package sinks

import (
	"context"
	"sync"

	"github.com/sitegrab/sitegrab/internal/progress"
)

// ChannelSink forwards events to a channel so callers can react to the
// stream directly, e.g. a CLI rendering progress. Delivery is best-effort:
// when the receiver falls behind, events are dropped rather than stalling
// the hub.
type ChannelSink struct {
	ch        chan progress.Event
	closeOnce sync.Once
}

// NewChannelSink allocates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 256
	}
	return &ChannelSink{ch: make(chan progress.Event, buffer)}
}

// Events returns the receive side of the stream. The channel is closed when
// the hub shuts the sink down.
func (s *ChannelSink) Events() <-chan progress.Event {
	return s.ch
}

// Consume forwards the event without blocking.
func (s *ChannelSink) Consume(_ context.Context, evt progress.Event) error {
	select {
	case s.ch <- evt:
	default:
	}
	return nil
}

// Close closes the event channel, signalling receivers that the run is over.
func (s *ChannelSink) Close(context.Context) error {
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}

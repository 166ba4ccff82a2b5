package progress

import "context"

// Sink consumes events one at a time, in emission order. Implementations
// must be safe for repeated calls and honor ctx deadlines.
type Sink interface {
	Consume(ctx context.Context, evt Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events; Hub satisfies this interface so the
// crawl loop can remain agnostic about how events are buffered or consumed.
type Emitter interface {
	Emit(evt Event)
}

package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitegrab/sitegrab/internal/progress"
)

func pageEvent(class progress.StatusClass, bytes int64) progress.Event {
	return progress.Event{
		RunID:       progress.UUIDToBytes(uuid.New()),
		TS:          time.Now().UTC(),
		Kind:        progress.KindPage,
		URL:         "https://acme.example/page",
		StatusClass: class,
		Bytes:       bytes,
		Dur:         25 * time.Millisecond,
	}
}

func TestPrometheusSinkCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sink.Consume(ctx, pageEvent(progress.Status2xx, 1024)))
	require.NoError(t, sink.Consume(ctx, pageEvent(progress.Status2xx, 2048)))
	require.NoError(t, sink.Consume(ctx, pageEvent(progress.Status4xx, 0)))

	errEvt := progress.Event{
		RunID:   progress.UUIDToBytes(uuid.New()),
		TS:      time.Now().UTC(),
		Kind:    progress.KindNetworkError,
		Message: "dial tcp: connection refused",
		ErrKind: "transport",
	}
	require.NoError(t, sink.Consume(ctx, errEvt))

	doneEvt := progress.Event{
		RunID: progress.UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Kind:  progress.KindDone,
		State: "completed",
	}
	require.NoError(t, sink.Consume(ctx, doneEvt))

	require.Equal(t, float64(2), testutil.ToFloat64(sink.pagesVisited.WithLabelValues("2xx")))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.pagesVisited.WithLabelValues("4xx")))
	require.Equal(t, float64(3072), testutil.ToFloat64(sink.bytesFetched))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.errorsTotal.WithLabelValues("transport")))
	require.Equal(t, float64(1), testutil.ToFloat64(sink.runsCompleted.WithLabelValues("completed")))
	require.NoError(t, sink.Close(ctx))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}

func TestChannelSinkForwardsAndCloses(t *testing.T) {
	t.Parallel()

	sink := NewChannelSink(4)
	ctx := context.Background()

	evt := pageEvent(progress.Status2xx, 10)
	require.NoError(t, sink.Consume(ctx, evt))

	got := <-sink.Events()
	require.Equal(t, evt.URL, got.URL)

	require.NoError(t, sink.Close(ctx))
	_, open := <-sink.Events()
	require.False(t, open)

	// Closing twice must not panic.
	require.NoError(t, sink.Close(ctx))
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	t.Parallel()

	sink := NewChannelSink(1)
	ctx := context.Background()

	require.NoError(t, sink.Consume(ctx, pageEvent(progress.Status2xx, 1)))
	require.NoError(t, sink.Consume(ctx, pageEvent(progress.Status2xx, 2)))

	got := <-sink.Events()
	require.Equal(t, int64(1), got.Bytes)
	select {
	case <-sink.Events():
		t.Fatal("expected second event to be dropped")
	default:
	}
}

func TestLogSinkNilLogger(t *testing.T) {
	t.Parallel()

	sink := NewLogSink(nil)
	require.NoError(t, sink.Consume(context.Background(), pageEvent(progress.Status2xx, 1)))
	require.NoError(t, sink.Close(context.Background()))

	withLogger := NewLogSink(zap.NewNop())
	require.NoError(t, withLogger.Consume(context.Background(), pageEvent(progress.Status5xx, 1)))
}

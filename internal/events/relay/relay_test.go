package relay_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketparticipant/internal/events"
	"marketparticipant/internal/events/relay"
	"marketparticipant/internal/events/store/memory"
	"marketparticipant/pkg/platform/tx"
)

type fakeProducer struct {
	batches [][]events.Message
	err     error
}

func (f *fakeProducer) Publish(_ context.Context, msgs []events.Message) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, msgs)
	return nil
}

func seed(t *testing.T, store *memory.InMemoryStore, n int) {
	t.Helper()
	now := time.Now()
	msgs := make([]events.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, events.Message{ID: events.NewID(now), EventType: "Pinged", CreatedAt: now})
	}
	require.NoError(t, store.Append(context.Background(), msgs))
}

func TestFlush(t *testing.T) {
	t.Run("publishes in batches and marks messages", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		seed(t, store, 3)
		producer := &fakeProducer{}
		metrics := relay.NewMetrics(prometheus.NewRegistry())
		r := relay.New(store, producer, tx.NewMemoryRunner(), relay.WithBatchSize(2), relay.WithMetrics(metrics))

		n, err := r.Flush(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = r.Flush(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = r.Flush(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)

		assert.Len(t, producer.batches, 2)
		assert.InDelta(t, 3, testutil.ToFloat64(metrics.Published), 0)
	})

	t.Run("leaves messages pending when the broker fails", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		seed(t, store, 1)
		r := relay.New(store, &fakeProducer{err: errors.New("broker down")}, tx.NewMemoryRunner())

		_, err := r.Flush(context.Background())
		require.Error(t, err)

		pending, err := store.Pending(context.Background(), 10)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})
}

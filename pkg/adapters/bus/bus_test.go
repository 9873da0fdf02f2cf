package bus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/libris/pkg/adapters/bus"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type call struct {
	target  ports.QRTarget
	id      uuid.UUID
	payload string
}

type recordingAttacher struct {
	mu    sync.Mutex
	calls []call
	done  chan struct{}
}

func (r *recordingAttacher) Attach(ctx context.Context, target ports.QRTarget, id uuid.UUID, payload string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{target, id, payload})
	select {
	case r.done <- struct{}{}:
	default:
	}
	return []byte("png"), nil
}

func TestPublisherWorker_RoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	pubsub := bus.NewGoChannel()
	rec := &recordingAttacher{done: make(chan struct{}, 1)}
	worker := bus.NewWorker(pubsub, rec)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- worker.Run(ctx) }()

	id := uuid.New()
	publisher := bus.NewPublisher(pubsub)

	// The gochannel drops messages published before a subscriber exists.
	require.Eventually(t, func() bool {
		png, err := publisher.Attach(ctx, ports.QRBook, id, "https://t.me/bot?start=book_"+id.String())
		assert.NoError(t, err)
		assert.Nil(t, png, "Async attach returns no image")
		select {
		case <-rec.done:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-stopped)
	require.NoError(t, pubsub.Close())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.calls)
	assert.Equal(t, call{ports.QRBook, id, "https://t.me/bot?start=book_" + id.String()}, rec.calls[0])
}

// Package bus moves QR rendering off the request path with a watermill
// publisher and a worker that consumes the render jobs.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/aretw0/libris/internal/logging"
	"github.com/aretw0/libris/pkg/domain"
	"github.com/aretw0/libris/pkg/ports"
	"github.com/google/uuid"
)

// TopicQRRender carries QR render jobs.
const TopicQRRender = "libris.qr.render"

type qrJob struct {
	Target  ports.QRTarget `json:"target"`
	ID      uuid.UUID      `json:"id"`
	Payload string         `json:"payload"`
}

// NewGoChannel returns the in-process pub/sub used by serve.
func NewGoChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
}

// Publisher implements ports.QRAttacher by publishing a render job.
type Publisher struct {
	pub message.Publisher
}

func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub}
}

// Attach enqueues the job and returns no image; the worker stores it later.
func (p *Publisher) Attach(ctx context.Context, target ports.QRTarget, id uuid.UUID, payload string) ([]byte, error) {
	data, err := json.Marshal(qrJob{Target: target, ID: id, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal qr job: %w", err)
	}
	if err := p.pub.Publish(TopicQRRender, message.NewMessage(watermill.NewUUID(), data)); err != nil {
		return nil, fmt.Errorf("publish qr job: %w", err)
	}
	return nil, nil
}

// Worker consumes render jobs and hands them to a synchronous attacher.
type Worker struct {
	sub      message.Subscriber
	attacher ports.QRAttacher
	logger   *slog.Logger
}

type WorkerOption func(*Worker)

func WithLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = l }
}

func NewWorker(sub message.Subscriber, attacher ports.QRAttacher, opts ...WorkerOption) *Worker {
	w := &Worker{sub: sub, attacher: attacher, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run blocks until ctx is done or the subscription closes.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.sub.Subscribe(ctx, TopicQRRender)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicQRRender, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			w.process(ctx, msg)
		}
	}
}

// process always acks: a failed render leaves the entity without an image.
func (w *Worker) process(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var job qrJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		w.logger.Error("Dropping malformed QR job", "message_id", msg.UUID, "err", err)
		return
	}

	if _, err := w.attacher.Attach(ctx, job.Target, job.ID, job.Payload); err != nil {
		level := slog.LevelError
		if errors.Is(err, domain.ErrNotFound) {
			level = slog.LevelWarn
		}
		w.logger.Log(ctx, level, "QR render failed", "target", job.Target, "id", job.ID, "err", err)
		return
	}
	w.logger.Debug("QR rendered", "target", job.Target, "id", job.ID)
}

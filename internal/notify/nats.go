package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"TokenLedger/internal/event"
	"TokenLedger/internal/observability"
)

// StreamName is the JetStream stream holding outbound ledger events.
const StreamName = "LEDGER_EVENTS"

// Publisher forwards committed-mutation envelopes to NATS JetStream.
// It implements event.Sink through a single FIFO channel drained by one
// goroutine, so publish order equals commit order. A full buffer drops the
// envelope rather than blocking the committing operation; consumers that
// need a gapless history watch the envelope sequence and re-read state.
type Publisher struct {
	js      jetstream.JetStream
	ch      chan event.Envelope
	log     zerolog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a publisher with the given buffer capacity.
// metrics may be nil.
func NewPublisher(js jetstream.JetStream, buffer int, log zerolog.Logger, metrics *observability.Metrics) *Publisher {
	return &Publisher{
		js:      js,
		ch:      make(chan event.Envelope, buffer),
		log:     log,
		metrics: metrics,
	}
}

// Emit implements event.Sink. Non-blocking.
func (p *Publisher) Emit(env event.Envelope) {
	select {
	case p.ch <- env:
		if p.metrics != nil {
			p.metrics.PublishQueueLen.Set(float64(len(p.ch)))
		}
	default:
		if p.metrics != nil {
			p.metrics.PublishDrops.Inc()
		}
		p.log.Warn().
			Uint64("sequence", env.Sequence).
			Str("kind", env.Kind.String()).
			Msg("publish buffer full, dropping envelope")
	}
}

// Run drains the buffer until ctx is cancelled. Publish failures are
// logged and counted, never fatal: the authoritative state lives in the
// ledger, not the stream.
func (p *Publisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case env := <-p.ch:
			if p.metrics != nil {
				p.metrics.PublishQueueLen.Set(float64(len(p.ch)))
			}
			if err := p.publish(ctx, env); err != nil {
				if p.metrics != nil {
					p.metrics.PublishErrors.Inc()
				}
				p.log.Warn().
					Err(err).
					Uint64("sequence", env.Sequence).
					Msg("outbound publish failed")
				continue
			}
			if p.metrics != nil {
				p.metrics.EventsPublished.Inc()
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, env event.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	subject := fmt.Sprintf("ledger.events.%s", strings.ToLower(env.Kind.String()))
	_, err = p.js.Publish(ctx, subject, data)
	return err
}

// EnsureStream creates or updates the outbound events stream.
func EnsureStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"ledger.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create outbound stream: %w", err)
	}
	return nil
}

// Connect dials NATS and opens a JetStream context.
func Connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream context: %w", err)
	}

	return nc, js, nil
}

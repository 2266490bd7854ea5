package notify_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"TokenLedger/internal/event"
	"TokenLedger/internal/notify"
	"TokenLedger/internal/testutil"
)

func TestPublisher_PublishesInOrder(t *testing.T) {
	testutil.RequireIntegration(t)

	nc, js, err := notify.Connect(testutil.TestNATSURL())
	if err != nil {
		t.Skipf("test nats not available: %v", err)
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := notify.EnsureStream(ctx, js); err != nil {
		t.Fatalf("EnsureStream: %v", err)
	}

	// Drop leftovers from earlier runs.
	stream, err := js.Stream(ctx, notify.StreamName)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	if err := stream.Purge(ctx); err != nil {
		t.Fatalf("purge stream: %v", err)
	}

	pub := notify.NewPublisher(js, 64, zerolog.Nop(), nil)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go pub.Run(runCtx)

	for seq := uint64(1); seq <= 3; seq++ {
		pub.Emit(event.Envelope{
			EventID:   uuid.New(),
			Sequence:  seq,
			Kind:      event.KindTransfer,
			Amount:    seq * 100,
			Timestamp: time.Now().UTC(),
		})
	}

	cons, err := js.CreateOrUpdateConsumer(ctx, notify.StreamName, jetstream.ConsumerConfig{
		FilterSubject: "ledger.events.transfer",
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		t.Fatalf("create consumer: %v", err)
	}

	batch, err := cons.Fetch(3, jetstream.FetchMaxWait(10*time.Second))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	var want uint64 = 1
	for msg := range batch.Messages() {
		var env event.Envelope
		if err := json.Unmarshal(msg.Data(), &env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
		if env.Sequence != want {
			t.Errorf("sequence: got %d, want %d", env.Sequence, want)
		}
		want++
		msg.Ack()
	}
	if want != 4 {
		t.Errorf("received %d envelopes, want 3", want-1)
	}
}

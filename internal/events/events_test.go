package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-coupon/pkg/kafka"
)

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	a, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, bus.SubscriberCount())

	require.NoError(t, bus.Publish(ctx, NewSignal(TypeIssuerDeleted)))
	assert.Equal(t, TypeIssuerDeleted, (<-a).Type)
	assert.Equal(t, TypeIssuerDeleted, (<-b).Type)

	cancel()
	_, open := <-a
	assert.False(t, open)
	assert.Eventually(t, func() bool { return bus.SubscriberCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			_ = bus.Publish(ctx, NewSignal(TypeIssuerUpdated))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

type recordingPublisher struct {
	got []Signal
	err error
}

func (r *recordingPublisher) Publish(_ context.Context, s Signal) error {
	r.got = append(r.got, s)
	return r.err
}

func TestFanout_JoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	bad := &recordingPublisher{err: errors.New("broker down")}

	err := Fanout{bad, nil, ok}.Publish(context.Background(), NewSignal(TypeIssuerCreated))
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, ok.got, 1, "later publishers still run")
}

func TestIssuerEventRelay_HandleMessage(t *testing.T) {
	local := &recordingPublisher{}
	relay := &IssuerEventRelay{local: local, source: "replica-a", logger: zap.NewNop()}

	message := func(source, eventType string) kafkago.Message {
		ce, err := kafka.NewCloudEvent(source, eventType, NewSignal(eventType))
		require.NoError(t, err)
		raw, err := json.Marshal(ce)
		require.NoError(t, err)
		return kafkago.Message{Value: raw}
	}

	ctx := context.Background()
	require.NoError(t, relay.handleMessage(ctx, message("replica-b", TypeIssuerDeleted)))
	require.NoError(t, relay.handleMessage(ctx, message("replica-a", TypeIssuerCreated)))
	require.NoError(t, relay.handleMessage(ctx, message("replica-b", "coupon.created")))
	assert.Error(t, relay.handleMessage(ctx, kafkago.Message{Value: []byte("{")}))

	require.Len(t, local.got, 1)
	assert.Equal(t, TypeIssuerDeleted, local.got[0].Type)
}

func TestDecodeSignal_FallsBackToEventType(t *testing.T) {
	sig, err := decodeSignal([]byte(`{"specversion":"1.0","id":"1","source":"admin","type":"issuer.updated"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeIssuerUpdated, sig.Type)
}

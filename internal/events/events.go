// Package events carries the "issuer list changed" signal between the admin side
// and every open coupon list, in process and across replicas through Kafka.
package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// TopicIssuerListChanged is the Kafka topic of issuer change signals.
const TopicIssuerListChanged = "issuer.list.changed"

// Signal types.
const (
	TypeIssuerCreated = "issuer.created"
	TypeIssuerUpdated = "issuer.updated"
	TypeIssuerDeleted = "issuer.deleted"
)

// Signal says the issuer list changed. It carries no issuer data.
type Signal struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
}

// NewSignal stamps a signal of the given type.
func NewSignal(signalType string) Signal {
	return Signal{Type: signalType, At: time.Now().UTC()}
}

// Publisher emits signals.
type Publisher interface {
	Publish(ctx context.Context, s Signal) error
}

// Subscriber delivers signals until ctx ends, then closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Signal, error)
}

const subscriberBuffer = 8

// Bus is an in-process fan-out. A subscriber that falls behind drops signals;
// a pending signal already tells it to reload.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Signal
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Signal)}
}

// Publish delivers s to every subscriber without blocking.
func (b *Bus) Publish(_ context.Context, s Signal) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- s:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber removed when ctx ends.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Signal, error) {
	ch := make(chan Signal, subscriberBuffer)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

// SubscriberCount returns the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Fanout publishes to several publishers and joins their errors.
type Fanout []Publisher

// Publish calls every publisher even when one fails.
func (f Fanout) Publish(ctx context.Context, s Signal) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

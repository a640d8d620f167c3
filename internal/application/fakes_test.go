package application

import (
	"context"
	"sync"
	"time"

	couponDomain "github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/repository"
)

type repos struct {
	coupons *repository.MemoryCouponRepository
	issuers *repository.MemoryIssuerRepository
}

func newRepos() repos {
	db := repository.NewMemoryDB()
	return repos{
		coupons: repository.NewMemoryCouponRepository(db),
		issuers: repository.NewMemoryIssuerRepository(db),
	}
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []events.Signal
}

func (p *recordingPublisher) Publish(_ context.Context, s events.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, s)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.got))
	for i, s := range p.got {
		out[i] = s.Type
	}
	return out
}

type fakeRenderer struct{ payload string }

func (r *fakeRenderer) RenderPNG(_ context.Context, payload string, _ int) ([]byte, error) {
	r.payload = payload
	return []byte("png:" + payload), nil
}

// fixedClock returns a time at midday UTC on the given date.
func fixedClock(date string) func() time.Time {
	t, err := time.Parse(couponDomain.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.Add(12 * time.Hour) }
}

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/talkincode/storefront/internal/domain"
)

// Poller wraps a Store whose backend cannot notify changes and emulates
// Subscribe by re-reading the state on a fixed interval. Only changed
// states are emitted. Cron rounds intervals below one second up to one
// second.
type Poller struct {
	Store
	interval time.Duration
}

func NewPoller(store Store, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{Store: store, interval: interval}
}

func (p *Poller) Subscribe(ctx context.Context) (<-chan domain.SessionState, func()) {
	f := newFeed()
	last, err := p.Store.Get(ctx)
	if err == nil {
		f.push(last)
	}

	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, _ = sched.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		st, err := p.Store.Get(ctx)
		if err != nil || st == last {
			return
		}
		last = st
		f.push(st)
	})
	sched.Start()

	return f.ch, closeOnDone(ctx, func() {
		<-sched.Stop().Done()
		f.close()
	})
}

// PollingProvider wraps every Store of the inner provider in a Poller
type PollingProvider struct {
	Provider
	interval time.Duration
}

func NewPollingProvider(inner Provider, interval time.Duration) *PollingProvider {
	return &PollingProvider{Provider: inner, interval: interval}
}

func (p *PollingProvider) ForClient(clientID string) Store {
	return NewPoller(p.Provider.ForClient(clientID), p.interval)
}

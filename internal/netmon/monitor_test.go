package netmon

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/SgtClickClack/snipshift-sub007/internal/bus"
)

type fakeProber struct {
	mu  sync.Mutex
	err error
}

func (p *fakeProber) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *fakeProber) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func TestSetOnlinePublishesTransitions(t *testing.T) {
	b := bus.New()
	m := New(nil, b, zap.NewNop(), time.Second)

	ch, unsub := b.Subscribe("network.", 10)
	defer unsub()

	m.SetOnline(false)
	select {
	case evt := <-ch:
		if evt.Kind != bus.KindNetworkOffline {
			t.Errorf("got kind %q, want %q", evt.Kind, bus.KindNetworkOffline)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for offline event")
	}

	m.SetOnline(true)
	select {
	case evt := <-ch:
		if evt.Kind != bus.KindNetworkOnline {
			t.Errorf("got kind %q, want %q", evt.Kind, bus.KindNetworkOnline)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for online event")
	}
}

func TestSetOnlineRedundantCallIsNoOp(t *testing.T) {
	b := bus.New()
	m := New(nil, b, zap.NewNop(), time.Second)

	ch, unsub := b.Subscribe("network.", 10)
	defer unsub()

	m.SetOnline(true) // already online

	select {
	case evt := <-ch:
		t.Errorf("unexpected event for redundant SetOnline: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProbeLoopFlipsFlag(t *testing.T) {
	b := bus.New()
	prober := &fakeProber{err: fmt.Errorf("connection refused")}
	m := New(prober, b, zap.NewNop(), 10*time.Millisecond)

	m.Start(context.Background())
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for m.Online() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Online() {
		t.Fatal("monitor still online after failing probes")
	}

	prober.setErr(nil)
	deadline = time.Now().Add(time.Second)
	for !m.Online() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !m.Online() {
		t.Fatal("monitor still offline after successful probes")
	}
}

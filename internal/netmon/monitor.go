// Package netmon tracks backend reachability. It owns the "currently online"
// flag and publishes network.online / network.offline transitions on the bus;
// the offline queue treats network.online as its flush trigger.
package netmon

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/SgtClickClack/snipshift-sub007/internal/bus"
)

// Prober checks whether the backend is reachable. Any nil return means
// online; a server that answers with an error status still counts as
// reachable, so probers should only fail on connection-level problems.
type Prober interface {
	Ping(ctx context.Context) error
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Ping(ctx context.Context) error { return f(ctx) }

const defaultProbeInterval = 10 * time.Second

// Monitor polls the prober on an interval and exposes the resulting online
// flag. Hosts with their own network signal can skip Start and drive the
// flag through SetOnline directly.
type Monitor struct {
	prober   Prober
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration

	mu     sync.Mutex
	online bool
	cancel context.CancelFunc
}

// New creates a monitor that starts in the online state, matching a client
// that has just been handed a live session.
func New(p Prober, b *bus.Bus, logger *zap.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &Monitor{
		prober:   p,
		bus:      b,
		logger:   logger,
		interval: interval,
		online:   true,
	}
}

// Online returns the current connectivity flag.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline updates the flag and publishes a transition event when it
// actually changes. Redundant calls are no-ops.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.mu.Unlock()

	kind := bus.KindNetworkOffline
	if online {
		kind = bus.KindNetworkOnline
	}
	m.logger.Info("connectivity changed", zap.Bool("online", online))
	m.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now()})
}

// Start begins the probe loop.
func (m *Monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	go m.loop(ctx)
}

// Stop stops the probe loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	err := m.prober.Ping(ctx)
	if err != nil {
		m.logger.Debug("probe failed", zap.Error(err))
	}
	m.SetOnline(err == nil)
}

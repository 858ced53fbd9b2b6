package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultProbeInterval = 30 * time.Second
	probeTimeout         = 5 * time.Second
)

// Monitor polls the remote health endpoint and feeds connectivity
// transitions into the coordinator, which triggers a sync pass whenever the
// service comes back.
type Monitor struct {
	coord    *Coordinator
	interval time.Duration
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewMonitor creates a monitor probing at the given interval. A
// non-positive interval uses the default; a nil logger falls back to
// slog.Default().
func NewMonitor(coord *Coordinator, interval time.Duration, logger *slog.Logger) (*Monitor, error) {
	if coord == nil {
		return nil, errors.New("coordinator must not be nil")
	}
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		coord:    coord,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start launches the probe loop. The first probe runs immediately so
// startup state is known without waiting a full interval. The loop exits
// when ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		defer close(m.doneCh)

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.probe(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for it to exit.
func (m *Monitor) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	err := m.coord.remote.Health(probeCtx)
	if err != nil {
		m.logger.Debug("health probe failed", "error", err)
	}
	m.coord.SetOnline(ctx, err == nil)
}

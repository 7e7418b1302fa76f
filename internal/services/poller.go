package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"contas/internal/cache"
	"contas/internal/core"
)

// PollerConfig holds configuration for the replica poller
type PollerConfig struct {
	// PollInterval is how often to fetch the authoritative snapshot (default: 10s)
	PollInterval time.Duration
}

// DefaultPollerConfig returns sensible defaults
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		PollInterval: 10 * time.Second,
	}
}

// SnapshotSource fetches the full authoritative bill collection.
type SnapshotSource interface {
	List(ctx context.Context) ([]core.Bill, error)
}

// Poller keeps an edge replica fresh by periodically reconciling the
// upstream snapshot into it. Overlapping refreshes (a slow poll racing the
// next tick, or a manual Refresh) are collapsed into one upstream call.
type Poller struct {
	source  SnapshotSource
	replica *cache.Replica
	config  PollerConfig

	// OnChange fires after a refresh that moved the replica fingerprint.
	OnChange func()
	// OnOnline fires on the offline-to-online transition, before OnChange.
	OnOnline func(ctx context.Context)

	flight singleflight.Group
	online atomic.Bool

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewPoller creates a new replica poller
func NewPoller(source SnapshotSource, replica *cache.Replica, config PollerConfig) *Poller {
	return &Poller{
		source:  source,
		replica: replica,
		config:  config,
	}
}

// Start begins the polling loop. Returns an error if already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Replica poller started",
		"poll_interval", p.config.PollInterval)

	return nil
}

// Stop gracefully stops the poller and waits for completion.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Replica poller stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Replica poller stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the poller is currently running
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Online reports the last known upstream reachability.
func (p *Poller) Online() bool {
	return p.online.Load()
}

// Refresh forces a reconcile outside the tick schedule. Concurrent callers
// share one upstream fetch.
func (p *Poller) Refresh(ctx context.Context) error {
	_, err, _ := p.flight.Do("poll", func() (any, error) {
		return nil, p.pollOnce(ctx)
	})
	return err
}

func (p *Poller) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Reconcile immediately on startup
	p.tick(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.Refresh(ctx); err != nil {
		// Read failures are silent apart from logging: the replica keeps
		// serving the last good snapshot.
		slog.DebugContext(ctx, "Snapshot refresh failed", "error", err)
	}
}

func (p *Poller) pollOnce(ctx context.Context) error {
	snapshot, err := p.source.List(ctx)
	if err != nil {
		if p.online.CompareAndSwap(true, false) {
			slog.WarnContext(ctx, "Upstream unreachable, serving cached data", "error", err)
		}
		return err
	}

	// Merge before announcing connectivity. A flush swaps local ids for
	// server ids, and those server ids are not in the snapshot fetched
	// above; merging afterwards would drop the record until the next tick.
	changed := p.replica.ApplyRemote(snapshot)

	if p.online.CompareAndSwap(false, true) {
		slog.InfoContext(ctx, "Upstream reachable again")
		if p.OnOnline != nil {
			p.OnOnline(ctx)
		}
	}

	if changed && p.OnChange != nil {
		p.OnChange()
	}
	return nil
}

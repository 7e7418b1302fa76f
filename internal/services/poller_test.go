package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"contas/internal/cache"
	"contas/internal/core"
)

// fakeSource is a SnapshotSource with a switchable snapshot and failure.
type fakeSource struct {
	mu    sync.Mutex
	bills []core.Bill
	err   error
	calls int
}

func (f *fakeSource) List(ctx context.Context) ([]core.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]core.Bill(nil), f.bills...), nil
}

func (f *fakeSource) set(bills []core.Bill, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bills, f.err = bills, err
}

func TestPollerRefreshReconcilesSnapshot(t *testing.T) {
	ctx := context.Background()
	replica := cache.NewReplica()
	source := &fakeSource{bills: []core.Bill{{ID: "a"}, {ID: "b"}}}
	p := NewPoller(source, replica, DefaultPollerConfig())

	changed := 0
	p.OnChange = func() { changed++ }

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := len(replica.Snapshot()); got != 2 {
		t.Fatalf("expected 2 bills in replica, got %d", got)
	}
	if changed != 1 {
		t.Errorf("expected one change notification, got %d", changed)
	}
	if !p.Online() {
		t.Error("expected poller online after successful refresh")
	}

	// Identical snapshot: no change notification.
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if changed != 1 {
		t.Errorf("expected no extra notification on unchanged snapshot, got %d", changed)
	}
}

func TestPollerFailureKeepsCachedSnapshot(t *testing.T) {
	ctx := context.Background()
	replica := cache.NewReplica()
	source := &fakeSource{bills: []core.Bill{{ID: "a"}}}
	p := NewPoller(source, replica, DefaultPollerConfig())

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	source.set(nil, fmt.Errorf("dial upstream: %w", core.ErrUpstreamUnavailable))
	if err := p.Refresh(ctx); err == nil {
		t.Fatal("expected refresh error")
	}
	if p.Online() {
		t.Error("expected poller offline after failed refresh")
	}
	if got := len(replica.Snapshot()); got != 1 {
		t.Errorf("expected cached snapshot to survive the failure, got %d bills", got)
	}
}

func TestPollerOnOnlineFiresOnTransition(t *testing.T) {
	ctx := context.Background()
	replica := cache.NewReplica()
	source := &fakeSource{err: fmt.Errorf("dial upstream: %w", core.ErrUpstreamUnavailable)}
	p := NewPoller(source, replica, DefaultPollerConfig())

	transitions := 0
	p.OnOnline = func(ctx context.Context) { transitions++ }

	p.Refresh(ctx)
	if transitions != 0 {
		t.Fatalf("expected no transition while offline, got %d", transitions)
	}

	source.set([]core.Bill{{ID: "a"}}, nil)
	p.Refresh(ctx)
	p.Refresh(ctx)
	if transitions != 1 {
		t.Errorf("expected exactly one offline-to-online transition, got %d", transitions)
	}
}

func TestPollerFlushedRecordSurvivesFirstReconcile(t *testing.T) {
	ctx := context.Background()
	edge, replica, up := newTestEdge()

	// Created while offline: the record lives in the replica under a
	// local id and upstream knows nothing about it.
	up.offline = true
	saved, err := edge.Create(ctx, billInput("luz"))
	if err != nil {
		t.Fatalf("Create() while offline error = %v", err)
	}

	up.offline = false
	p := NewPoller(up, replica, DefaultPollerConfig())
	p.OnOnline = edge.FlushLocal

	// The reconnect poll fetches a snapshot that predates the flush. The
	// flushed record, now under its server id, must not be dropped.
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	snap := replica.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected the flushed record in the replica, got %d records", len(snap))
	}
	if core.IsLocalID(snap[0].ID) {
		t.Errorf("expected server id after flush, got %s", snap[0].ID)
	}
	if snap[0].ID == saved.ID {
		t.Errorf("expected the local id %s to be swapped out", saved.ID)
	}
	remote, _ := up.store.List(ctx)
	if len(remote) != 1 {
		t.Errorf("expected record pushed upstream, got %d", len(remote))
	}
}

func TestPollerLifecycle(t *testing.T) {
	ctx := context.Background()
	replica := cache.NewReplica()
	source := &fakeSource{bills: []core.Bill{{ID: "a"}}}
	p := NewPoller(source, replica, PollerConfig{PollInterval: 10 * time.Millisecond})

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("expected error on double start")
	}
	if !p.IsRunning() {
		t.Error("expected running after start")
	}

	// The startup poll fills the replica without waiting for a tick.
	deadline := time.Now().Add(time.Second)
	for len(replica.Snapshot()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(replica.Snapshot()) != 1 {
		t.Error("expected startup poll to fill the replica")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if p.IsRunning() {
		t.Error("expected stopped after Stop")
	}

	// Stop is idempotent.
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

package cache

import (
	"errors"
	"strings"
	"testing"

	"contas/internal/core"
)

func bill(id string) core.Bill {
	return core.Bill{
		ID:          id,
		Description: "WATER",
		Amount:      core.Money{Cents: 5000},
		DueDate:     core.NewDate(2025, 3, 10),
		Status:      core.StatusPending,
	}
}

func ids(bills []core.Bill) []string {
	out := make([]string, 0, len(bills))
	for _, b := range bills {
		out = append(out, b.ID)
	}
	return out
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name   string
		local  []core.Bill
		remote []core.Bill
		want   []string
	}{
		{
			name:   "local-only record survives the merge",
			local:  []core.Bill{bill("a"), bill("local_1")},
			remote: []core.Bill{bill("a"), bill("b")},
			want:   []string{"a", "b", "local_1"},
		},
		{
			name:   "synced local records are replaced by the server version",
			local:  []core.Bill{bill("a")},
			remote: []core.Bill{bill("a")},
			want:   []string{"a"},
		},
		{
			name:   "record deleted upstream disappears locally",
			local:  []core.Bill{bill("a"), bill("b")},
			remote: []core.Bill{bill("b")},
			want:   []string{"b"},
		},
		{
			name:   "empty remote keeps only local-origin records",
			local:  []core.Bill{bill("a"), bill("local_1")},
			remote: nil,
			want:   []string{"local_1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Reconcile(tt.local, tt.remote))
			if len(got) != len(tt.want) {
				t.Fatalf("Reconcile() ids = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Reconcile() ids = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestReconcile_RemoteVersionWins(t *testing.T) {
	local := bill("a")
	local.Description = "STALE"
	remote := bill("a")
	remote.Description = "FRESH"

	merged := Reconcile([]core.Bill{local}, []core.Bill{remote})
	if len(merged) != 1 {
		t.Fatalf("Reconcile() returned %d bills, want 1 (no duplicates)", len(merged))
	}
	if merged[0].Description != "FRESH" {
		t.Errorf("Reconcile() kept %q, remote must be authoritative", merged[0].Description)
	}
}

func TestReplica_ApplyRemoteChangeDetection(t *testing.T) {
	r := NewReplica()

	if !r.ApplyRemote([]core.Bill{bill("a"), bill("b")}) {
		t.Error("first snapshot should report change")
	}
	if r.ApplyRemote([]core.Bill{bill("a"), bill("b")}) {
		t.Error("identical snapshot should not report change")
	}
	if !r.ApplyRemote([]core.Bill{bill("a")}) {
		t.Error("shrunk snapshot should report change")
	}
}

func TestReplica_OptimisticRollback(t *testing.T) {
	r := NewReplica()
	r.Seed([]core.Bill{bill("a")})

	undo := r.ApplyOptimistic(func(bills []core.Bill) []core.Bill {
		return append(bills, bill("local_new"))
	})

	if len(r.Snapshot()) != 2 {
		t.Fatal("optimistic mutation should be visible immediately")
	}

	undo.Rollback()
	snap := r.Snapshot()
	if len(snap) != 1 || snap[0].ID != "a" {
		t.Errorf("rollback left %v, want pre-mutation state", ids(snap))
	}

	// rollback is idempotent
	undo.Rollback()
	if len(r.Snapshot()) != 1 {
		t.Error("second rollback must be a no-op")
	}
}

func TestReplica_OptimisticCommit(t *testing.T) {
	r := NewReplica()
	r.Seed([]core.Bill{bill("a")})

	undo := r.ApplyOptimistic(func(bills []core.Bill) []core.Bill {
		return append(bills, bill("local_new"))
	})
	undo.Commit()
	undo.Rollback() // must be a no-op after commit

	if len(r.Snapshot()) != 2 {
		t.Error("rollback after commit must not undo the mutation")
	}
}

func TestReplica_Get(t *testing.T) {
	r := NewReplica()
	r.Seed([]core.Bill{bill("a")})

	if _, err := r.Get("a"); err != nil {
		t.Errorf("Get(a) error = %v", err)
	}
	if _, err := r.Get("zz"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get(zz) error = %v, want ErrNotFound", err)
	}
}

func TestNewLocalID(t *testing.T) {
	id := NewLocalID()
	if !strings.HasPrefix(id, core.LocalIDPrefix) {
		t.Errorf("NewLocalID() = %q, want %q prefix", id, core.LocalIDPrefix)
	}
	if id == NewLocalID() {
		t.Error("local ids must be unique")
	}
}

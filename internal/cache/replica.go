// Package cache keeps an optimistic local replica of the bill collection
// usable while the upstream store is unreachable, and folds authoritative
// snapshots back in without losing unsynced local writes.
package cache

import (
	"strings"
	"sync"

	"contas/internal/core"

	"github.com/google/uuid"
)

// NewLocalID mints an identifier for a record created before the upstream
// store has acknowledged it.
func NewLocalID() string {
	return core.LocalIDPrefix + uuid.NewString()
}

// Reconcile merges an authoritative snapshot with the local cache. The
// server fully replaces every record it knows about; records carrying a
// local-origin id survive verbatim until a successful write swaps their id
// for a server-assigned one.
func Reconcile(local, remote []core.Bill) []core.Bill {
	merged := make([]core.Bill, 0, len(remote)+len(local))
	merged = append(merged, remote...)
	for _, b := range local {
		if core.IsLocalID(b.ID) {
			merged = append(merged, b)
		}
	}
	return merged
}

// Fingerprint is a cheap content fingerprint over the ordered id set, used
// to skip downstream recomputation on unchanged polls.
func Fingerprint(bills []core.Bill) string {
	ids := make([]string, 0, len(bills))
	for _, b := range bills {
		ids = append(ids, b.ID)
	}
	return strings.Join(ids, "|")
}

// Replica is the in-memory bill collection of a disconnected-tolerant edge.
// Safe for concurrent use.
type Replica struct {
	mu          sync.RWMutex
	bills       []core.Bill
	fingerprint string
}

func NewReplica() *Replica {
	return &Replica{}
}

// Seed replaces the replica content wholesale, e.g. from a persisted cache
// at startup.
func (r *Replica) Seed(bills []core.Bill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bills = append([]core.Bill(nil), bills...)
	r.fingerprint = Fingerprint(r.bills)
}

// Snapshot returns a copy of the current collection.
func (r *Replica) Snapshot() []core.Bill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]core.Bill(nil), r.bills...)
}

// Get returns the bill with the given id or core.ErrNotFound.
func (r *Replica) Get(id string) (core.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.bills {
		if b.ID == id {
			return b, nil
		}
	}
	return core.Bill{}, core.ErrNotFound
}

// ApplyRemote reconciles an authoritative snapshot into the replica and
// reports whether the fingerprint moved, so consumers only recompute
// derived views on real change.
func (r *Replica) ApplyRemote(snapshot []core.Bill) (changed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := Reconcile(r.bills, snapshot)
	fp := Fingerprint(merged)
	changed = fp != r.fingerprint
	r.bills = merged
	r.fingerprint = fp
	return changed
}

// Undo restores the replica to its pre-mutation state. Obtained from
// ApplyOptimistic; exactly one of Rollback or Commit must be called.
type Undo struct {
	replica *Replica
	prev    []core.Bill
	prevFP  string
	done    bool
}

// ApplyOptimistic runs a mutation against the collection immediately,
// before the remote call is attempted, and hands back the undo token the
// caller invokes if the remote commit fails.
func (r *Replica) ApplyOptimistic(mutate func([]core.Bill) []core.Bill) *Undo {
	r.mu.Lock()
	defer r.mu.Unlock()

	undo := &Undo{
		replica: r,
		prev:    r.bills,
		prevFP:  r.fingerprint,
	}
	r.bills = mutate(append([]core.Bill(nil), r.bills...))
	r.fingerprint = Fingerprint(r.bills)
	return undo
}

// Rollback restores the snapshot taken before the optimistic mutation.
func (u *Undo) Rollback() {
	if u.done {
		return
	}
	u.done = true

	u.replica.mu.Lock()
	defer u.replica.mu.Unlock()
	u.replica.bills = u.prev
	u.replica.fingerprint = u.prevFP
}

// Commit confirms the optimistic mutation and releases the undo snapshot.
func (u *Undo) Commit() {
	u.done = true
	u.prev = nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"contas/internal/cache"
	"contas/internal/core"
	"contas/internal/remote"
	"contas/internal/storage"
)

// Upstream is the authoritative store the edge replica writes through to.
// Satisfied by the remote API client via NewRemoteUpstream.
type Upstream interface {
	List(ctx context.Context) ([]core.Bill, error)
	Insert(ctx context.Context, b core.Bill) (core.Bill, error)
	Update(ctx context.Context, id string, p storage.Patch) (core.Bill, error)
	Delete(ctx context.Context, id string) error
	CreateGroup(ctx context.Context, common GroupCommon, installments []InstallmentInput) ([]core.Bill, error)
}

// remoteUpstream adapts *remote.Client to the Upstream interface.
type remoteUpstream struct {
	c *remote.Client
}

func NewRemoteUpstream(c *remote.Client) Upstream {
	return remoteUpstream{c: c}
}

func (r remoteUpstream) List(ctx context.Context) ([]core.Bill, error) {
	return r.c.List(ctx)
}

func (r remoteUpstream) Insert(ctx context.Context, b core.Bill) (core.Bill, error) {
	return r.c.Insert(ctx, b)
}

func (r remoteUpstream) Update(ctx context.Context, id string, p storage.Patch) (core.Bill, error) {
	return r.c.Update(ctx, id, p)
}

func (r remoteUpstream) Delete(ctx context.Context, id string) error {
	return r.c.Delete(ctx, id)
}

func (r remoteUpstream) CreateGroup(ctx context.Context, common GroupCommon, installments []InstallmentInput) ([]core.Bill, error) {
	req := remote.GroupRequest{
		Description: common.Description,
		Method:      string(common.Method),
		Bank:        common.Bank,
		Notes:       common.Notes,
		Frequency:   string(common.Frequency),
	}
	for _, in := range installments {
		req.Installments = append(req.Installments, remote.GroupLine{
			AmountCents: in.AmountCents,
			DueDate:     in.DueDate.String(),
		})
	}
	return r.c.CreateGroup(ctx, req)
}

// Edge serves the full operation surface from an optimistic in-memory
// replica of an upstream store. Reads never touch the network; writes apply
// to the replica first and roll back if the upstream rejects them. Records
// created while the upstream is unreachable keep a local-origin id until
// FlushLocal pushes them through.
type Edge struct {
	replica  *cache.Replica
	upstream Upstream
}

var _ Contas = (*Edge)(nil)

func NewEdge(replica *cache.Replica, upstream Upstream) *Edge {
	return &Edge{replica: replica, upstream: upstream}
}

func (e *Edge) List(ctx context.Context) ([]core.Bill, error) {
	return e.replica.Snapshot(), nil
}

func (e *Edge) Get(ctx context.Context, id string) (core.Bill, error) {
	return e.replica.Get(id)
}

// Create writes the bill to the replica immediately under a local-origin id
// and then pushes it upstream. On success the local id is swapped for the
// server-assigned record; if the upstream is unreachable the local record
// survives until the next flush.
func (e *Edge) Create(ctx context.Context, in BillInput) (core.Bill, error) {
	b := billFromInput(in)
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	b.ID = cache.NewLocalID()

	undo := e.replica.ApplyOptimistic(func(bills []core.Bill) []core.Bill {
		return append(bills, b)
	})

	saved, err := e.upstream.Insert(ctx, b)
	if err != nil {
		if errors.Is(err, core.ErrUpstreamUnavailable) {
			undo.Commit()
			slog.WarnContext(ctx, "Upstream unreachable, bill kept locally",
				"id", b.ID, "error", err)
			return b, nil
		}
		undo.Rollback()
		return core.Bill{}, err
	}
	undo.Commit()

	e.swap(b.ID, saved)
	return saved, nil
}

// Update applies the patch to the replica first, then upstream. Any
// upstream failure rolls the replica back; only bills that never reached
// the server are updated purely locally.
func (e *Edge) Update(ctx context.Context, id string, p storage.Patch) (core.Bill, error) {
	current, err := e.replica.Get(id)
	if err != nil {
		return core.Bill{}, err
	}
	merged := p.Apply(current)
	if err := merged.Validate(); err != nil {
		return core.Bill{}, err
	}

	undo := e.replica.ApplyOptimistic(func(bills []core.Bill) []core.Bill {
		return replaceBill(bills, merged)
	})

	if core.IsLocalID(id) {
		undo.Commit()
		return merged, nil
	}

	saved, err := e.upstream.Update(ctx, id, p)
	if err != nil {
		undo.Rollback()
		return core.Bill{}, err
	}
	undo.Commit()

	e.swap(id, saved)
	return saved, nil
}

// Delete removes the bill from the replica and the upstream. An upstream
// 404 is treated as success: the record is gone either way.
func (e *Edge) Delete(ctx context.Context, id string) error {
	if _, err := e.replica.Get(id); err != nil {
		return err
	}

	undo := e.replica.ApplyOptimistic(func(bills []core.Bill) []core.Bill {
		return removeBills(bills, []string{id})
	})

	if core.IsLocalID(id) {
		undo.Commit()
		return nil
	}

	if err := e.upstream.Delete(ctx, id); err != nil && !errors.Is(err, core.ErrNotFound) {
		undo.Rollback()
		return err
	}
	undo.Commit()
	return nil
}

// CreateGroup asks the upstream to create the whole plan so the
// all-or-nothing guarantee holds server-side. The replica shows the plan
// optimistically under local ids until the server copy lands.
func (e *Edge) CreateGroup(ctx context.Context, common GroupCommon, installments []InstallmentInput) ([]core.Bill, error) {
	local, err := BuildGroup(common, installments)
	if err != nil {
		return nil, err
	}
	for i := range local {
		local[i].ID = cache.NewLocalID()
	}

	undo := e.replica.ApplyOptimistic(func(bills []core.Bill) []core.Bill {
		return append(bills, local...)
	})

	saved, err := e.upstream.CreateGroup(ctx, common, installments)
	if err != nil {
		undo.Rollback()
		return nil, err
	}
	undo.Commit()

	localIDs := make([]string, 0, len(local))
	for _, b := range local {
		localIDs = append(localIDs, b.ID)
	}
	e.replica.ApplyOptimistic(func(bills []core.Bill) []core.Bill {
		return append(removeBills(bills, localIDs), saved...)
	}).Commit()

	return saved, nil
}

// Pay marks the target paid and applies the cascade. Against a plain CRUD
// upstream the cascade is one status update plus N deletes; when a delete
// fails mid-way the replica is rewound to reflect exactly what the server
// accepted and the partial result is reported alongside the error.
func (e *Edge) Pay(ctx context.Context, id string, policy CascadePolicy, today time.Time) (CascadeResult, error) {
	target, err := e.replica.Get(id)
	if err != nil {
		return CascadeResult{}, err
	}

	var deleteIDs []string
	if policy.Kind != PolicyOnlyThis {
		if !target.Grouped() {
			return CascadeResult{}, fmt.Errorf("bill %s is not part of an installment group: %w", id, core.ErrGroupConflict)
		}
		deleteIDs, err = CascadeTargets(e.groupMembers(target.GroupID), target.InstallmentIndex, policy)
		if err != nil {
			return CascadeResult{}, err
		}
	}

	paid := markPaid(target, today)
	undo := e.replica.ApplyOptimistic(func(bills []core.Bill) []core.Bill {
		return removeBills(replaceBill(bills, paid), deleteIDs)
	})

	if core.IsLocalID(id) {
		undo.Commit()
		return CascadeResult{Paid: paid, DeletedIDs: deleteIDs}, nil
	}

	status := core.StatusPaid
	if _, err := e.upstream.Update(ctx, id, storage.Patch{
		Status:      &status,
		PaymentDate: &paid.PaymentDate,
	}); err != nil {
		undo.Rollback()
		return CascadeResult{}, err
	}

	applied := make([]string, 0, len(deleteIDs))
	for _, did := range deleteIDs {
		if err := e.upstream.Delete(ctx, did); err != nil && !errors.Is(err, core.ErrNotFound) {
			// Rewind to what the server actually accepted: the payment plus
			// the deletes that went through.
			undo.Rollback()
			e.replica.ApplyOptimistic(func(bills []core.Bill) []core.Bill {
				return removeBills(replaceBill(bills, paid), applied)
			}).Commit()

			slog.ErrorContext(ctx, "Payment cascade partially applied",
				"id", id, "deleted", len(applied), "requested", len(deleteIDs), "error", err)
			return CascadeResult{Paid: paid, DeletedIDs: applied},
				fmt.Errorf("cascade delete %s after %d of %d: %w", did, len(applied), len(deleteIDs), err)
		}
		applied = append(applied, did)
	}
	undo.Commit()

	return CascadeResult{Paid: paid, DeletedIDs: deleteIDs}, nil
}

// FlushLocal pushes every record still carrying a local-origin id to the
// upstream, swapping ids on success. Called when connectivity returns.
func (e *Edge) FlushLocal(ctx context.Context) {
	for _, b := range e.replica.Snapshot() {
		if !core.IsLocalID(b.ID) {
			continue
		}
		localID := b.ID
		b.ID = ""
		saved, err := e.upstream.Insert(ctx, b)
		if err != nil {
			slog.WarnContext(ctx, "Failed to flush local bill",
				"id", localID, "error", err)
			continue
		}
		e.swap(localID, saved)
		slog.InfoContext(ctx, "Local bill synced", "local_id", localID, "id", saved.ID)
	}
}

// swap replaces the record under oldID with the server-confirmed copy.
func (e *Edge) swap(oldID string, saved core.Bill) {
	e.replica.ApplyOptimistic(func(bills []core.Bill) []core.Bill {
		for i, b := range bills {
			if b.ID == oldID {
				bills[i] = saved
				return bills
			}
		}
		return append(bills, saved)
	}).Commit()
}

func (e *Edge) groupMembers(groupID string) []core.Bill {
	var members []core.Bill
	for _, b := range e.replica.Snapshot() {
		if b.GroupID == groupID {
			members = append(members, b)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].InstallmentIndex < members[j].InstallmentIndex
	})
	return members
}

func replaceBill(bills []core.Bill, b core.Bill) []core.Bill {
	for i := range bills {
		if bills[i].ID == b.ID {
			bills[i] = b
		}
	}
	return bills
}

func removeBills(bills []core.Bill, ids []string) []core.Bill {
	if len(ids) == 0 {
		return bills
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := bills[:0]
	for _, b := range bills {
		if _, ok := drop[b.ID]; !ok {
			kept = append(kept, b)
		}
	}
	return kept
}

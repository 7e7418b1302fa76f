package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"contas/internal/core"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used for tests and the no-database dev
// backend. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	bills map[string]core.Bill
	order []string // insertion order, stable listing
	now   func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bills: make(map[string]core.Bill),
		now:   time.Now,
	}
}

func (s *MemoryStore) List(_ context.Context) ([]core.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Bill, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.bills[id])
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (core.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bills[id]
	if !ok {
		return core.Bill{}, core.ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) Insert(_ context.Context, b core.Bill) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(b), nil
}

func (s *MemoryStore) insertLocked(b core.Bill) core.Bill {
	b.ID = uuid.NewString()
	now := s.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	s.bills[b.ID] = b
	s.order = append(s.order, b.ID)
	return b
}

func (s *MemoryStore) Update(_ context.Context, id string, p Patch) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bills[id]
	if !ok {
		return core.Bill{}, core.ErrNotFound
	}
	b = p.Apply(b)
	b.UpdatedAt = s.now()
	s.bills[id] = b
	return b, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(id)
}

func (s *MemoryStore) deleteLocked(id string) error {
	if _, ok := s.bills[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.bills, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) ListByGroup(_ context.Context, groupID string) ([]core.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Bill
	for _, id := range s.order {
		if b := s.bills[id]; b.GroupID == groupID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].InstallmentIndex < out[j].InstallmentIndex
	})
	return out, nil
}

func (s *MemoryStore) InsertGroup(_ context.Context, bills []core.Bill) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Bill, 0, len(bills))
	for _, b := range bills {
		out = append(out, s.insertLocked(b))
	}
	return out, nil
}

func (s *MemoryStore) ApplyCascade(_ context.Context, paid core.Bill, deleteIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bills[paid.ID]; !ok {
		return core.ErrNotFound
	}
	for _, id := range deleteIDs {
		if _, ok := s.bills[id]; !ok {
			return core.ErrNotFound
		}
	}

	paid.UpdatedAt = s.now()
	s.bills[paid.ID] = paid
	for _, id := range deleteIDs {
		_ = s.deleteLocked(id)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

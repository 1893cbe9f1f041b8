package order

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used in tests and local development.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, orders: map[int64]*Order{}}
}

func (s *MemoryStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.nextID
		s.nextID++
	} else if o.ID >= s.nextID {
		s.nextID = o.ID + 1
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	o.Version = 1
	s.orders[o.ID] = clone(o)
	return nil
}

func (s *MemoryStore) LoadByID(_ context.Context, id int64) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(stored), nil
}

func (s *MemoryStore) LoadByMeta(_ context.Context, key, value string) (*Order, error) {
	if value == "" {
		return nil, ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.orders))
	for id := range s.orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if s.orders[id].GetMeta(key) == value {
			return clone(s.orders[id]), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Save(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[o.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != o.Version {
		return ErrVersionConflict
	}
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	s.orders[o.ID] = clone(o)
	return nil
}

func (s *MemoryStore) PendingBefore(_ context.Context, cutoff time.Time, limit int) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []Order
	for _, o := range s.orders {
		if o.Status == StatusPending && o.UpdatedAt.Before(cutoff) {
			pending = append(pending, *clone(o))
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].UpdatedAt.Before(pending[j].UpdatedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func clone(o *Order) *Order {
	cp := *o
	if o.Meta != nil {
		cp.Meta = make(map[string]string, len(o.Meta))
		for k, v := range o.Meta {
			cp.Meta[k] = v
		}
	}
	cp.Notes = append([]Note(nil), o.Notes...)
	return &cp
}

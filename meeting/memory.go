package meeting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. Writes are serialized by a mutex and
// follow the same version compare-and-swap rules as PGRepository.
type MemoryStore struct {
	mu       sync.RWMutex
	meetings map[string]Meeting
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{meetings: make(map[string]Meeting)}
}

func (s *MemoryStore) Create(ctx context.Context, m Meeting) (Meeting, error) {
	if err := ctx.Err(); err != nil {
		return Meeting{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.meetings[m.ID]; exists {
		return Meeting{}, fmt.Errorf("meeting: duplicate id %s", m.ID)
	}
	m.Version = 1
	m.UpdatedAt = m.CreatedAt
	s.meetings[m.ID] = clone(m)
	return clone(m), nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Meeting, error) {
	if err := ctx.Err(); err != nil {
		return Meeting{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meetings[id]
	if !ok {
		return Meeting{}, ErrNotFound
	}
	return clone(m), nil
}

func (s *MemoryStore) ListForUser(ctx context.Context, userID string) ([]Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Meeting, 0, 8)
	for _, m := range s.meetings {
		if m.IsParty(userID) {
			out = append(out, clone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledStart.Equal(out[j].ScheduledStart) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledStart.Before(out[j].ScheduledStart)
	})
	return out, nil
}

func (s *MemoryStore) ListEnded(ctx context.Context, status Status, endedBy time.Time, limit int) ([]Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Meeting, 0, 8)
	for _, m := range s.meetings {
		if m.Status == status && !m.ScheduledEnd.After(endedBy) {
			out = append(out, clone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledEnd.Before(out[j].ScheduledEnd)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Update(ctx context.Context, m Meeting, expectedVersion int64) (Meeting, error) {
	if err := ctx.Err(); err != nil {
		return Meeting{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.meetings[m.ID]
	if !ok {
		return Meeting{}, ErrNotFound
	}
	if current.Version != expectedVersion || current.Status.Terminal() {
		return Meeting{}, ErrConflict
	}
	if !m.ScheduledEnd.After(m.ScheduledStart) {
		return Meeting{}, ErrInvalidDuration
	}

	current.Status = m.Status
	current.ScheduledStart = m.ScheduledStart
	current.ScheduledEnd = m.ScheduledEnd
	current.UpdatedAt = m.UpdatedAt
	current.Version++
	s.meetings[m.ID] = current
	return clone(current), nil
}

func clone(m Meeting) Meeting {
	if m.Message != nil {
		msg := *m.Message
		m.Message = &msg
	}
	return m
}

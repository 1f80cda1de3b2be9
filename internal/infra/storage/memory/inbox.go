package memory

import (
	"context"
	"sync"
)

// InboxStore remembers handled event ids for the life of the process.
type InboxStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewInboxStore() *InboxStore {
	return &InboxStore{seen: make(map[string]struct{})}
}

func (s *InboxStore) Seen(ctx context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return true, nil
	}
	s.seen[eventID] = struct{}{}
	return false, nil
}

package session

import (
	"context"
	"sync"
)

// MemoryStore holds the record in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	rec Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.rec
	rec.User = append([]byte(nil), s.rec.User...)
	return rec.check()
}

func (s *MemoryStore) Save(ctx context.Context, rec Record) error {
	if !rec.Complete() {
		return ErrIncomplete
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.User = append([]byte(nil), rec.User...)
	s.rec = rec
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = Record{}
	return nil
}

// Put stores rec verbatim, including partial records. Tests use it to seed
// states Save refuses to write.
func (s *MemoryStore) Put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
}

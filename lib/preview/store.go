package preview

import (
	"sync"
	"time"
)

// Store is a transient in-process key value store. A value can be taken only once, and an entry
// nobody takes expires after the TTL.
type Store struct {
	ttl time.Duration
	now func() time.Time

	lock    sync.Mutex
	entries map[string]entry
}

type entry struct {
	data    []byte
	expires time.Time
}

// NewStore with the ttl of each entry
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:     ttl,
		now:     time.Now,
		entries: map[string]entry{},
	}
}

// Set overwrites the key
func (s *Store) Set(key string, data []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.sweep()
	s.entries[key] = entry{data: data, expires: s.now().Add(s.ttl)}
}

// Take returns the value and deletes it
func (s *Store) Take(key string) ([]byte, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.sweep()
	e, has := s.entries[key]
	if !has {
		return nil, false
	}
	delete(s.entries, key)
	return e.data, true
}

// Len of the live entries
func (s *Store) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.sweep()
	return len(s.entries)
}

func (s *Store) sweep() {
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
}

package session

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions do not survive a
// restart; use it for single-instance installs without Valkey.
type MemoryStore struct {
	cookie cookieJar
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]memoryEntry
}

type memoryEntry struct {
	data    Data
	expires time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(secure bool, ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		cookie:   cookieJar{secure: secure, ttl: ttl},
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
	}
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = s.now()
	s.put(id, data)
	s.cookie.set(w, id)
	return id, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, r *http.Request) (string, *Data, error) {
	id := requestID(r)
	if id == "" {
		return "", nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return "", nil, nil
	}
	if s.now().After(e.expires) {
		delete(s.sessions, id)
		return "", nil, nil
	}
	data := e.data
	data.Providers = slices.Clone(data.Providers)
	return id, &data, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, id string, data *Data) error {
	if id == "" {
		return fmt.Errorf("session save: empty id")
	}
	s.put(id, data)
	return nil
}

// Destroy implements Store.
func (s *MemoryStore) Destroy(_ context.Context, w http.ResponseWriter, r *http.Request) error {
	id := requestID(r)
	if id == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.cookie.clear(w)
	return nil
}

func (s *MemoryStore) put(id string, data *Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := *data
	d.Providers = slices.Clone(d.Providers)
	s.sessions[id] = memoryEntry{data: d, expires: s.now().Add(s.cookie.ttl)}
}

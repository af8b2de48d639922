// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fanhub/internal/models"
)

// Directory looks up password accounts.
type Directory interface {
	// FindByEmail returns nil, nil when no account matches.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CheckPassword(user *models.User, password string) bool
}

// DocumentStore persists documents and answers ordered, limited queries.
type DocumentStore interface {
	Insert(ctx context.Context, path string, data []byte) (string, error)
	Query(ctx context.Context, q Query) ([]Document, error)
}

// Bus carries "documents under path changed" notifications between
// server instances.
type Bus interface {
	Publish(ctx context.Context, path string) error
	Subscribe(ctx context.Context) (<-chan string, error)
}

// Service is the shared half of the backend: one per process. Clients
// created by Connect hold per-visitor auth state on top of it.
type Service struct {
	users Directory
	docs  DocumentStore
	bus   Bus
	now   func() time.Time

	mu      sync.Mutex
	queries map[Query]*liveQuery
	flight  singleflight.Group
	done    chan struct{}
}

// liveQuery is the shared result set for every subscriber of one Query.
type liveQuery struct {
	subs   map[chan []Document]struct{}
	latest []Document
	loaded bool
}

// NewService creates a backend service over the given stores and bus.
func NewService(users Directory, docs DocumentStore, bus Bus) *Service {
	return &Service{
		users:   users,
		docs:    docs,
		bus:     bus,
		now:     time.Now,
		queries: make(map[Query]*liveQuery),
	}
}

// SetClock overrides the clock used for ServerTimestamp.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Start subscribes to the change bus and refreshes live queries in the
// background until ctx is done. The subscription is established before
// Start returns, so writes made afterwards are never missed.
func (s *Service) Start(ctx context.Context) error {
	changes, err := s.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe change bus: %w", err)
	}

	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case path, ok := <-changes:
				if !ok {
					slog.Warn("change bus closed")
					return
				}
				s.refresh(ctx, path)
			}
		}
	}()
	return nil
}

// Done is closed once the loop started by Start has exited.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Connect creates a client connection. initial restores a previously
// signed-in user (nil for a fresh visitor); persist, if non-nil, is called
// with every auth change so the identity survives restarts.
func (s *Service) Connect(initial *User, persist func(*User)) *Client {
	return &Client{
		svc:      s,
		persist:  persist,
		user:     initial,
		watchers: make(map[chan *User]struct{}),
	}
}

// Query runs q once without subscribing. It serves the live result when one
// is already loaded.
func (s *Service) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if lq, ok := s.queries[q]; ok && lq.loaded {
		docs := lq.latest
		s.mu.Unlock()
		return docs, nil
	}
	s.mu.Unlock()
	return s.load(ctx, q)
}

// addDocument resolves server values, stores the document, and announces
// the change on the bus.
func (s *Service) addDocument(ctx context.Context, path string, fields Fields) (string, error) {
	resolved := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == ServerTimestamp {
			resolved[k] = s.now().Unix()
			continue
		}
		resolved[k] = v
	}

	data, err := json.Marshal(resolved)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	id, err := s.docs.Insert(ctx, path, data)
	if err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}

	// The document is durable at this point; a lost notification only
	// delays live queries until the next change.
	if err := s.bus.Publish(ctx, path); err != nil {
		slog.Warn("publish change failed", "path", path, "error", err)
	}
	return id, nil
}

// subscribeQuery registers a live subscriber and delivers the current
// result set.
func (s *Service) subscribeQuery(ctx context.Context, q Query) (<-chan []Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ch := make(chan []Document, 1)

	s.mu.Lock()
	lq, ok := s.queries[q]
	if !ok {
		lq = &liveQuery{subs: make(map[chan []Document]struct{})}
		s.queries[q] = lq
	}
	lq.subs[ch] = struct{}{}
	loaded := lq.loaded
	if loaded {
		offer(ch, lq.latest)
	}
	s.mu.Unlock()

	if !loaded {
		docs, err := s.load(ctx, q)
		if err != nil {
			s.unsubscribe(q, ch)
			return nil, err
		}
		s.mu.Lock()
		if !lq.loaded {
			lq.latest = docs
			lq.loaded = true
		}
		offer(ch, lq.latest)
		s.mu.Unlock()
	}

	go func() {
		<-ctx.Done()
		s.unsubscribe(q, ch)
	}()
	return ch, nil
}

func (s *Service) unsubscribe(q Query, ch chan []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lq, ok := s.queries[q]
	if !ok {
		return
	}
	if _, ok := lq.subs[ch]; !ok {
		return
	}
	delete(lq.subs, ch)
	close(ch)
	if len(lq.subs) == 0 {
		delete(s.queries, q)
	}
}

// load runs q against the store, sharing one round trip between concurrent
// first subscribers.
func (s *Service) load(ctx context.Context, q Query) ([]Document, error) {
	key := fmt.Sprintf("%s|%s|%t|%d", q.Path, q.OrderBy, q.Descending, q.Limit)
	v, err, _ := s.flight.Do(key, func() (any, error) {
		return s.docs.Query(context.WithoutCancel(ctx), q)
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Path, err)
	}
	return v.([]Document), nil
}

// refresh re-runs every live query under path and fans the new result out
// to its subscribers.
func (s *Service) refresh(ctx context.Context, path string) {
	s.mu.Lock()
	var stale []Query
	for q := range s.queries {
		if q.Path == path {
			stale = append(stale, q)
		}
	}
	s.mu.Unlock()

	for _, q := range stale {
		docs, err := s.docs.Query(ctx, q)
		if err != nil {
			slog.Error("live query refresh failed", "path", path, "error", err)
			continue
		}

		s.mu.Lock()
		if lq, ok := s.queries[q]; ok {
			lq.latest = docs
			lq.loaded = true
			for ch := range lq.subs {
				offer(ch, docs)
			}
		}
		s.mu.Unlock()
	}
	slog.Debug("live queries refreshed", "path", path, "queries", len(stale))
}

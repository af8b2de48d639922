// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package hub keeps one running App per visitor session. A visitor is
// identified by the session cookie; the backend identity stored in the
// session is restored when the visitor's App is (re)created, so an admin
// stays signed in across evictions and restarts.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fanhub/internal/app"
	"fanhub/internal/backend"
	"fanhub/internal/session"
)

// ErrNotStarted is returned by Resolve before Start or after the hub's
// context is done.
var ErrNotStarted = errors.New("hub not running")

// DefaultSweepInterval is how often idle visitors are looked for.
const DefaultSweepInterval = time.Minute

// Options configures a Hub.
type Options struct {
	AppID string
	// IdleTTL evicts visitors not seen for this long. Zero disables
	// eviction.
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

// Hub maps visitor sessions to running Apps.
type Hub struct {
	svc      *backend.Service
	sessions session.Store
	opts     Options
	now      func() time.Time

	mu       sync.Mutex
	ctx      context.Context
	visitors map[string]*Visitor
	wg       sync.WaitGroup
	done     chan struct{}
}

// Visitor is one visitor's running App.
type Visitor struct {
	ID  string
	App *app.App

	cancel   context.CancelFunc
	lastSeen time.Time
	holds    int
}

// New creates a hub. Call Start before resolving visitors.
func New(svc *backend.Service, sessions session.Store, opts Options) *Hub {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	return &Hub{
		svc:      svc,
		sessions: sessions,
		opts:     opts,
		now:      time.Now,
		visitors: make(map[string]*Visitor),
		done:     make(chan struct{}),
	}
}

// Start binds every App to ctx and starts the idle sweeper. When ctx is
// done all Apps stop; Done is closed once they have.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	h.ctx = ctx
	h.mu.Unlock()

	go func() {
		defer close(h.done)
		var tick <-chan time.Time
		if h.opts.IdleTTL > 0 {
			t := time.NewTicker(h.opts.SweepInterval)
			defer t.Stop()
			tick = t.C
		}
		for {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.ctx = nil
				h.mu.Unlock()
				h.wg.Wait()
				return
			case <-tick:
				if n := h.sweep(); n > 0 {
					slog.Debug("idle visitors evicted", "count", n)
				}
			}
		}
	}()
}

// Done is closed once the hub has stopped and every App has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Len returns the number of running visitors.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.visitors)
}

// Resolve returns the visitor for the request, creating a session and
// starting an App when needed. A new session cookie is set on w.
func (h *Hub) Resolve(w http.ResponseWriter, r *http.Request) (*Visitor, error) {
	ctx := r.Context()
	id, data, err := h.sessions.Get(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if data != nil {
		h.mu.Lock()
		v, ok := h.visitors[id]
		if ok {
			v.lastSeen = h.now()
		}
		h.mu.Unlock()
		if ok {
			return v, nil
		}
	} else {
		data = session.FromUser(nil)
		if id, err = h.sessions.Create(ctx, w, data); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
	}

	return h.start(id, data)
}

// start launches an App for session id unless another request already did.
func (h *Hub) start(id string, data *session.Data) (*Visitor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx == nil || h.ctx.Err() != nil {
		return nil, ErrNotStarted
	}
	if v, ok := h.visitors[id]; ok {
		v.lastSeen = h.now()
		return v, nil
	}

	client := h.svc.Connect(data.User(), h.persister(id))
	ctx, cancel := context.WithCancel(h.ctx)
	v := &Visitor{
		ID:       id,
		App:      app.New(client, h.opts.AppID),
		cancel:   cancel,
		lastSeen: h.now(),
	}
	h.visitors[id] = v

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		v.App.Run(ctx)
	}()
	slog.Debug("visitor started", "visitors", len(h.visitors))
	return v, nil
}

// persister saves every auth change of the visitor's client to its session.
func (h *Hub) persister(id string) func(*backend.User) {
	return func(u *backend.User) {
		if err := h.sessions.Save(context.Background(), id, session.FromUser(u)); err != nil {
			slog.Warn("persist session identity failed", "error", err)
		}
	}
}

// Hold marks v as in use until the returned release is called. Held
// visitors are never evicted.
func (h *Hub) Hold(v *Visitor) (release func()) {
	h.mu.Lock()
	v.holds++
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			v.holds--
			v.lastSeen = h.now()
			h.mu.Unlock()
		})
	}
}

// sweep stops visitors idle for longer than IdleTTL.
func (h *Hub) sweep() int {
	if h.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := h.now().Add(-h.opts.IdleTTL)

	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id, v := range h.visitors {
		if v.holds > 0 || v.lastSeen.After(cutoff) {
			continue
		}
		v.cancel()
		delete(h.visitors, id)
		n++
	}
	return n
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package app runs one visitor's application: the session manager, the
// news subscription, and the action handlers, all funnelled through a
// single dispatch loop that owns the view state.
//
// Backend calls made by actions run on the caller's goroutine. Only the
// resulting state changes are sent to the loop, so the loop keeps handling
// auth and news events while a call is in flight.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"fanhub/internal/backend"
	"fanhub/internal/view"
)

// MsgInitFailed is shown when the app cannot start.
const MsgInitFailed = "Error initializing application."

// ErrStopped is returned when an update is sent to an app whose loop has
// exited.
var ErrStopped = errors.New("app stopped")

// App is one visitor's running application.
type App struct {
	gw   backend.Gateway
	news backend.Query

	updates chan func()
	done    chan struct{}

	mu        sync.Mutex
	state     view.State
	observers map[chan view.State]struct{}

	// Owned by the loop goroutine.
	newsActive  bool
	newsCh      <-chan []backend.Document
	anonPending bool
	initialized bool
}

// New creates an app for one visitor. Call Run to start it.
func New(gw backend.Gateway, appID string) *App {
	return &App{
		gw:        gw,
		news:      NewsQuery(appID),
		updates:   make(chan func()),
		done:      make(chan struct{}),
		state:     view.New(),
		observers: make(map[chan view.State]struct{}),
	}
}

// Run subscribes to the auth state and dispatches events until ctx is done.
// A failure to subscribe moves the app to the terminal error mode; Run keeps
// serving updates until ctx is done either way.
func (a *App) Run(ctx context.Context) {
	defer close(a.done)

	authCh, err := a.gw.SubscribeAuthState(ctx)
	if err != nil {
		slog.Error("subscribe auth state failed", "error", err)
		a.commit(a.state.Fail(MsgInitFailed))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-authCh:
			if !ok {
				authCh = nil
				continue
			}
			a.onAuth(ctx, u)
		case docs, ok := <-a.newsCh:
			if !ok {
				a.newsCh = nil
				continue
			}
			a.onNews(docs)
		case fn := <-a.updates:
			fn()
		}
	}
}

// Done is closed once Run has returned.
func (a *App) Done() <-chan struct{} {
	return a.done
}

// State returns the latest committed state.
func (a *App) State() view.State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Subscribe returns a channel that receives the current state immediately
// and every rendered state after it. Unread states are replaced by newer
// ones. cancel must be called to release the subscription.
func (a *App) Subscribe() (states <-chan view.State, cancel func()) {
	ch := make(chan view.State, 1)
	a.mu.Lock()
	a.observers[ch] = struct{}{}
	offer(ch, a.state)
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.observers, ch)
			a.mu.Unlock()
		})
	}
}

// Do applies fn to the state on the loop and returns the committed result.
func (a *App) Do(ctx context.Context, fn func(view.State) view.State) (view.State, error) {
	reply := make(chan view.State, 1)
	err := a.send(ctx, func() {
		reply <- a.commit(fn(a.state))
	})
	if err != nil {
		return view.State{}, err
	}
	return <-reply, nil
}

// send hands fn to the loop. Once accepted, fn runs before the loop reads
// its next event.
func (a *App) send(ctx context.Context, fn func()) error {
	select {
	case a.updates <- fn:
		return nil
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// commit stores s and notifies observers. Loop only.
func (a *App) commit(s view.State) view.State {
	a.store(s, true)
	return s
}

func (a *App) store(s view.State, notify bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
	if !notify {
		return
	}
	for ch := range a.observers {
		offer(ch, s)
	}
}

// onAuth reconciles the view with a new auth state. Loop only.
func (a *App) onAuth(ctx context.Context, u *backend.User) {
	var sess *view.Session
	if u != nil {
		sess = &view.Session{UserID: u.UID, IsAdmin: u.HasProvider(backend.ProviderPassword)}
		a.initialized = true
	}
	s := a.commit(a.state.WithSession(sess))

	if u == nil && !a.anonPending && s.Mode != view.ModeError {
		a.anonPending = true
		go a.signInAnonymous(ctx)
	}
	if s.Mode == view.ModePublic && !a.newsActive {
		a.newsActive = true
		go a.openNews(ctx)
	}
}

// onNews replaces the cached feed. Loop only.
func (a *App) onNews(docs []backend.Document) {
	s := a.state.WithNews(DecodeNews(docs))
	a.store(s, s.Mode == view.ModePublic)
}

func (a *App) signInAnonymous(ctx context.Context) {
	_, err := a.gw.SignInAnonymous(ctx)
	_ = a.send(ctx, func() {
		a.anonPending = false
		if err == nil {
			a.initialized = true
			return
		}
		if ctx.Err() != nil {
			return
		}
		if a.initialized {
			slog.Warn("anonymous sign-in failed", "error", err)
			return
		}
		slog.Error("initial anonymous sign-in failed", "error", err)
		a.commit(a.state.Fail(MsgInitFailed))
	})
}

func (a *App) openNews(ctx context.Context) {
	ch, err := a.gw.SubscribeQuery(ctx, a.news)
	_ = a.send(ctx, func() {
		if err != nil {
			slog.Error("subscribe news failed", "path", a.news.Path, "error", err)
			a.newsActive = false
			return
		}
		a.newsCh = ch
	})
}

// offer replaces any unread value in a one-slot channel with v.
func offer(ch chan view.State, v view.State) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package backend

import (
	"context"
	"sync"
)

// LocalBus is an in-process Bus for single-instance deployments.
type LocalBus struct {
	mu   sync.Mutex
	subs map[*localSub]struct{}
}

type localSub struct {
	ch   chan string
	done <-chan struct{}
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[*localSub]struct{})}
}

// Publish delivers path to every current subscriber. It blocks until each
// subscriber has taken the notification or gone away.
func (b *LocalBus) Publish(ctx context.Context, path string) error {
	b.mu.Lock()
	subs := make([]*localSub, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- path:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done.
func (b *LocalBus) Subscribe(ctx context.Context) (<-chan string, error) {
	s := &localSub{ch: make(chan string, 16), done: ctx.Done()}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, s)
		b.mu.Unlock()
	}()
	return s.ch, nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DefaultChangeChannel is the pub/sub channel document changes are
// announced on.
const DefaultChangeChannel = "fanhub:changes"

// ChangeBus announces "documents under path changed" over Valkey pub/sub
// so that live queries on every server instance refresh. It implements
// backend.Bus.
type ChangeBus struct {
	client  *redis.Client
	channel string
}

// NewChangeBus creates a bus on channel (DefaultChangeChannel when empty).
func NewChangeBus(client *redis.Client, channel string) *ChangeBus {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &ChangeBus{client: client, channel: channel}
}

// Publish announces a change under path.
func (b *ChangeBus) Publish(ctx context.Context, path string) error {
	if err := b.client.Publish(ctx, b.channel, path).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Subscribe delivers changed paths until ctx is done. The subscription is
// confirmed by the server before Subscribe returns.
func (b *ChangeBus) Subscribe(ctx context.Context) (<-chan string, error) {
	ps := b.client.Subscribe(ctx, b.channel)
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	out := make(chan string, 16)
	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("change bus subscription closed", "channel", b.channel)
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pageKeyPrefix = "fanhub:page:"

	// DefaultPageTTL bounds how stale a cached page can get when an
	// invalidation is lost.
	DefaultPageTTL = 30 * time.Second
)

// PageCache holds rendered HTML pages in Valkey. Failures are logged and
// treated as misses; the caller always has the database to fall back on.
type PageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPageCache creates a page cache. A zero ttl selects DefaultPageTTL.
func NewPageCache(client *redis.Client, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{client: client, ttl: ttl}
}

// FeedKey returns the cache key for an app's public feed page.
func FeedKey(appID string) string {
	return "feed:" + appID
}

// Get returns the cached page for key.
func (pc *PageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	html, err := pc.client.Get(ctx, pageKeyPrefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false
	case err != nil:
		slog.Warn("page cache get failed", "key", key, "error", err)
		return nil, false
	}
	return html, true
}

// Set stores html under key for the cache TTL.
func (pc *PageCache) Set(ctx context.Context, key string, html []byte) {
	if err := pc.client.Set(ctx, pageKeyPrefix+key, html, pc.ttl).Err(); err != nil {
		slog.Warn("page cache set failed", "key", key, "error", err)
	}
}

// Invalidate drops the page under key.
func (pc *PageCache) Invalidate(ctx context.Context, key string) {
	if err := pc.client.Unlink(ctx, pageKeyPrefix+key).Err(); err != nil {
		slog.Warn("page cache invalidate failed", "key", key, "error", err)
	}
}

// Purge drops every cached page and returns how many were removed. serve
// calls it on startup so pages rendered by an older build are not served.
func (pc *PageCache) Purge(ctx context.Context) (int, error) {
	iter := pc.client.Scan(ctx, 0, pageKeyPrefix+"*", 100).Iterator()
	var batch []string
	n := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := pc.client.Unlink(ctx, batch...).Err(); err != nil {
			return err
		}
		n += len(batch)
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return n, err
	}
	return n, flush()
}

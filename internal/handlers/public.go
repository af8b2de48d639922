// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"fanhub/internal/app"
	"fanhub/internal/backend"
	"fanhub/internal/cache"
	"fanhub/internal/models"
)

// NewsSource runs one-shot document queries.
type NewsSource interface {
	Query(ctx context.Context, q backend.Query) ([]backend.Document, error)
}

// PageCache stores rendered pages. *cache.PageCache implements it.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, html []byte)
	Invalidate(ctx context.Context, key string)
}

// FeedRenderer renders the standalone feed page.
type FeedRenderer interface {
	Feed(w io.Writer, posts []models.NewsPost) error
}

// Public serves the read-only feed page. It checks the Valkey page cache
// before querying the backend, and stores rendered results on miss.
// Concurrent misses share one query and render.
type Public struct {
	news     NewsSource
	renderer FeedRenderer
	cache    PageCache
	appID    string
	flight   singleflight.Group

	// gen is bumped by InvalidateFeed. A render started under an older
	// generation is served to its callers but never cached.
	gen atomic.Uint64
}

// NewPublic creates the Public handler group. pageCache may be nil, in
// which case every request renders.
func NewPublic(news NewsSource, renderer FeedRenderer, pageCache PageCache, appID string) *Public {
	return &Public{news: news, renderer: renderer, cache: pageCache, appID: appID}
}

// Feed renders the latest news as a static page.
func (p *Public) Feed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := cache.FeedKey(p.appID)
	gen := p.gen.Load()

	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx, key); ok {
			writeHTML(w, cached)
			return
		}
	}

	v, err, _ := p.flight.Do(flightKey(key, gen), func() (any, error) {
		return p.render(context.WithoutCancel(ctx))
	})
	if err != nil {
		slog.Error("render feed failed", "app_id", p.appID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	rendered := v.([]byte)

	if p.cache != nil && p.gen.Load() == gen {
		p.cache.Set(ctx, key, rendered)
	}
	writeHTML(w, rendered)
}

// InvalidateFeed drops the cached feed page. Renders already in flight
// are neither joined by later requests nor cached.
func (p *Public) InvalidateFeed(ctx context.Context) {
	gen := p.gen.Add(1)
	p.flight.Forget(flightKey(cache.FeedKey(p.appID), gen-1))
	if p.cache != nil {
		p.cache.Invalidate(ctx, cache.FeedKey(p.appID))
	}
}

func (p *Public) render(ctx context.Context) ([]byte, error) {
	docs, err := p.news.Query(ctx, app.NewsQuery(p.appID))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := p.renderer.Feed(&buf, app.DecodeNews(docs)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func flightKey(key string, gen uint64) string {
	return key + "#" + strconv.FormatUint(gen, 10)
}

func writeHTML(w http.ResponseWriter, html []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(html)
}

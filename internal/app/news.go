// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package app

import (
	"encoding/json"
	"log/slog"

	"fanhub/internal/backend"
	"fanhub/internal/models"
	"fanhub/internal/view"
)

// NewsPath returns the document path holding an app's public news posts.
func NewsPath(appID string) string {
	return "artifacts/" + appID + "/public/data/news"
}

// NewsQuery is the live query behind the public feed: newest first, capped
// at the feed size.
func NewsQuery(appID string) backend.Query {
	return backend.Query{
		Path:       NewsPath(appID),
		OrderBy:    "timestamp",
		Descending: true,
		Limit:      view.NewsLimit,
	}
}

// DecodeNews converts stored documents into posts, keeping their order.
// Documents that do not decode are skipped.
func DecodeNews(docs []backend.Document) []models.NewsPost {
	posts := make([]models.NewsPost, 0, len(docs))
	for _, d := range docs {
		var p models.NewsPost
		if err := json.Unmarshal(d.Data, &p); err != nil {
			slog.Warn("skipping malformed news document", "id", d.ID, "error", err)
			continue
		}
		p.ID = d.ID
		posts = append(posts, p)
	}
	return posts
}

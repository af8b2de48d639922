// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures shared between the backend,
// the view state, and the renderer.
package models

import "time"

// Category classifies a news post. The zero value means "uncategorised"
// and renders as DefaultCategoryLabel.
type Category string

const (
	CategoryAnnouncements Category = "Announcements"
	CategoryUpdates       Category = "Updates"
	CategoryEvents        Category = "Events"
	CategoryHighlights    Category = "Highlights"
)

// DefaultCategoryLabel is shown for posts stored without a category.
const DefaultCategoryLabel = "General"

// MaxHeadlineLen is the maximum headline length in runes.
const MaxHeadlineLen = 100

// Categories lists the selectable categories in display order.
var Categories = []Category{
	CategoryAnnouncements,
	CategoryUpdates,
	CategoryEvents,
	CategoryHighlights,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Label returns the badge text for the category.
func (c Category) Label() string {
	if c == "" {
		return DefaultCategoryLabel
	}
	return string(c)
}

// NewsPost is a published news item. Posts are immutable once written;
// there is no update or delete path.
type NewsPost struct {
	ID               string   `json:"-"`
	Headline         string   `json:"headline"`
	Body             string   `json:"body"`
	ImageURL         *string  `json:"imageUrl"` // null when the post has no image
	Category         Category `json:"category"`
	TimestampSeconds int64    `json:"timestamp"`
	Author           string   `json:"author"`
}

// Time returns the server-assigned publish time.
func (p *NewsPost) Time() time.Time {
	return time.Unix(p.TimestampSeconds, 0)
}

// HasImage reports whether the post carries a non-empty image URL.
func (p *NewsPost) HasImage() bool {
	return p.ImageURL != nil && *p.ImageURL != ""
}

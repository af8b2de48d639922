// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"testing"
)

// TestCategoryValid verifies that only the four known categories are valid.
func TestCategoryValid(t *testing.T) {
	tests := []struct {
		name string
		cat  Category
		want bool
	}{
		{name: "announcements", cat: CategoryAnnouncements, want: true},
		{name: "updates", cat: CategoryUpdates, want: true},
		{name: "events", cat: CategoryEvents, want: true},
		{name: "highlights", cat: CategoryHighlights, want: true},
		{name: "empty", cat: Category(""), want: false},
		{name: "lowercase", cat: Category("updates"), want: false},
		{name: "unknown", cat: Category("Rumours"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cat.Valid(); got != tt.want {
				t.Errorf("Category(%q).Valid() = %v, want %v", tt.cat, got, tt.want)
			}
		})
	}
}

// TestCategoryLabel verifies the "General" fallback for uncategorised posts.
func TestCategoryLabel(t *testing.T) {
	if got := Category("").Label(); got != "General" {
		t.Errorf("empty label: got %q, want %q", got, "General")
	}
	if got := CategoryEvents.Label(); got != "Events" {
		t.Errorf("events label: got %q, want %q", got, "Events")
	}
}

// TestNewsPostDecodeNullImage verifies that a stored document with a null
// imageUrl decodes into a post without an image.
func TestNewsPostDecodeNullImage(t *testing.T) {
	raw := `{"headline":"Launch","body":"We launched","imageUrl":null,"category":"Announcements","timestamp":1760000000,"author":"u1"}`

	var p NewsPost
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.HasImage() {
		t.Error("expected HasImage() = false for null imageUrl")
	}
	if p.Category != CategoryAnnouncements {
		t.Errorf("category: got %q", p.Category)
	}
	if p.Time().Unix() != 1760000000 {
		t.Errorf("time: got %d", p.Time().Unix())
	}
}

// TestNewsPostHasImage verifies that an empty string URL counts as no image.
func TestNewsPostHasImage(t *testing.T) {
	empty := ""
	url := "https://example.com/a.png"

	if (&NewsPost{ImageURL: &empty}).HasImage() {
		t.Error("empty URL should not count as an image")
	}
	if !(&NewsPost{ImageURL: &url}).HasImage() {
		t.Error("non-empty URL should count as an image")
	}
}

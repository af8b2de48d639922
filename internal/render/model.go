// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"html/template"
	"time"

	"fanhub/internal/markdown"
	"fanhub/internal/models"
	"fanhub/internal/view"
)

// DefaultSiteName is used when Options.SiteName is empty.
const DefaultSiteName = "ST3LLAR FØRGE"

// TimestampLayout formats a post's publish time on its card.
const TimestampLayout = "1/2/2006, 3:04:05 PM"

// Button labels and status lines.
const (
	LabelLogin       = "LOG IN TO CMS"
	LabelLoginBusy   = "AUTHENTICATING..."
	LabelPublish     = "PUBLISH NOW"
	LabelPublishBusy = "TRANSMITTING..."
	LabelLogout      = "LOGOUT"
	LabelLogoutBusy  = "SIGNING OUT..."
	LabelLoginToggle = "ADMIN LOGIN"
	StatusPublic     = "PUBLIC ACCESS: Latest News Feed"
)

// Controls selects what the header's auth control area shows.
type Controls string

const (
	ControlsNone        Controls = "none"
	ControlsLogout      Controls = "logout"
	ControlsLoginToggle Controls = "login-toggle"
)

// Body selects the main content region.
type Body string

const (
	BodyLoading   Body = "loading"
	BodyError     Body = "error"
	BodyAdmin     Body = "admin"
	BodyLoginForm Body = "login"
	BodyEmpty     Body = "empty"
	BodyFeed      Body = "feed"
)

// Options configures presentation details that are not part of the view
// state.
type Options struct {
	SiteName string
	Location *time.Location
}

func (o Options) site() string {
	if o.SiteName == "" {
		return DefaultSiteName
	}
	return o.SiteName
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// Button is a submit button with its current label.
type Button struct {
	Label    string
	Disabled bool
}

// Card is one news post prepared for display.
type Card struct {
	ID        string
	Headline  string
	Body      template.HTML
	ImageURL  string
	Category  string
	Timestamp string
}

// Option is an entry of the category select.
type Option struct {
	Value    string
	Selected bool
}

// Model is everything the templates read. It is derived from a view.State
// by Build and carries no behaviour of its own.
type Model struct {
	DocTitle  string
	MainTitle string
	Status    string
	Controls  Controls
	Body      Body
	Failure   string

	Cards []Card

	LoginEmail    string
	LoginButton   Button
	LogoutButton  Button
	PublishButton Button
	Draft         view.Draft
	Categories    []Option
}

// Build derives the template model from s.
func Build(s view.State, opts Options) Model {
	site := opts.site()
	m := Model{
		DocTitle:      site + " | Fan Hub",
		MainTitle:     site + ": FAN HUB",
		Status:        StatusPublic,
		Controls:      ControlsNone,
		LoginEmail:    s.LoginEmail,
		LoginButton:   button(s, view.ActionLogin, LabelLogin, LabelLoginBusy),
		LogoutButton:  button(s, view.ActionLogout, LabelLogout, LabelLogoutBusy),
		PublishButton: button(s, view.ActionPublish, LabelPublish, LabelPublishBusy),
	}

	switch s.Mode {
	case view.ModeAdmin:
		m.DocTitle = site + " | CMS Admin"
		m.MainTitle = site + ": CMS MASTER CONTROL"
		m.Status = adminStatus(s.UserID())
		m.Controls = ControlsLogout
		m.Body = BodyAdmin
		m.Draft = s.Draft
		m.Categories = categoryOptions(s.Draft.Category)
	case view.ModePublic:
		switch {
		case s.LoginFormVisible:
			m.Body = BodyLoginForm
		case len(s.News) == 0:
			m.Controls = ControlsLoginToggle
			m.Body = BodyEmpty
		default:
			m.Controls = ControlsLoginToggle
			m.Body = BodyFeed
			m.Cards = Cards(s.News, opts)
		}
	case view.ModeError:
		m.Body = BodyError
		m.Failure = s.Failure
	default:
		m.Body = BodyLoading
	}
	return m
}

// Cards prepares posts for display in the order given.
func Cards(posts []models.NewsPost, opts Options) []Card {
	loc := opts.location()
	cards := make([]Card, 0, len(posts))
	for _, p := range posts {
		c := Card{
			ID:        p.ID,
			Headline:  p.Headline,
			Body:      markdown.Render(p.Body),
			Category:  p.Category.Label(),
			Timestamp: p.Time().In(loc).Format(TimestampLayout),
		}
		if p.HasImage() {
			c.ImageURL = *p.ImageURL
		}
		cards = append(cards, c)
	}
	return cards
}

func button(s view.State, a view.Action, idle, busy string) Button {
	if s.Pending(a) {
		return Button{Label: busy, Disabled: true}
	}
	return Button{Label: idle}
}

func adminStatus(userID string) string {
	r := []rune(userID)
	if len(r) > 8 {
		r = r[:8]
	}
	return "ACCESS GRANTED: Admin ID " + string(r) + "..."
}

func categoryOptions(selected string) []Option {
	opts := make([]Option, 0, len(models.Categories))
	for _, c := range models.Categories {
		opts = append(opts, Option{Value: string(c), Selected: string(c) == selected})
	}
	return opts
}

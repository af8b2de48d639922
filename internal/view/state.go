// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package view holds the per-visitor application state and its pure
// transitions. A State is a value: every transition returns a new State and
// never mutates shared memory, so a snapshot handed to the renderer can not
// change underneath it.
package view

import (
	"slices"

	"fanhub/internal/models"
)

// Mode selects which render branch executes.
type Mode string

const (
	ModeLoading Mode = "loading"
	ModePublic  Mode = "public"
	ModeAdmin   Mode = "admin"
	ModeError   Mode = "error" // terminal
)

// NewsLimit caps the cached news list.
const NewsLimit = 9

// Session is the identity bound to the visitor's backend connection.
type Session struct {
	UserID  string
	IsAdmin bool
}

// Action names a button whose lifecycle is tracked while its backend call
// is in flight.
type Action uint8

const (
	ActionLogin Action = 1 << iota
	ActionPublish
	ActionLogout
)

// Draft holds the admin form fields between submissions.
type Draft struct {
	Headline string
	Body     string
	ImageURL string
	Category string
}

// State is everything the renderer needs to produce a visitor's page.
type State struct {
	Mode             Mode
	LoginFormVisible bool
	Session          *Session
	News             []models.NewsPost
	LoginEmail       string
	Draft            Draft
	Failure          string

	pending Action
}

// New returns the initial loading state.
func New() State {
	return State{Mode: ModeLoading}
}

// WithSession replaces the session wholesale and derives the mode from it:
// admin iff the session is an admin session, public otherwise.
func (s State) WithSession(sess *Session) State {
	if s.Mode == ModeError {
		return s
	}
	if sess != nil {
		cp := *sess
		sess = &cp
	}
	s.Session = sess
	if sess != nil && sess.IsAdmin {
		s.Mode = ModeAdmin
	} else {
		s.Mode = ModePublic
	}
	return s
}

// WithNews replaces the cached news list, keeping at most NewsLimit posts in
// the order delivered.
func (s State) WithNews(posts []models.NewsPost) State {
	if len(posts) > NewsLimit {
		posts = posts[:NewsLimit]
	}
	s.News = slices.Clone(posts)
	return s
}

// ToggleLoginForm flips the login form visibility.
func (s State) ToggleLoginForm() State {
	s.LoginFormVisible = !s.LoginFormVisible
	return s
}

// HideLoginForm closes the login form.
func (s State) HideLoginForm() State {
	s.LoginFormVisible = false
	return s
}

// Acquire marks a as in flight. ok is false when a is already in flight, in
// which case s is returned unchanged.
func (s State) Acquire(a Action) (next State, ok bool) {
	if s.pending&a != 0 {
		return s, false
	}
	s.pending |= a
	return s, true
}

// Release clears the in-flight mark for a.
func (s State) Release(a Action) State {
	s.pending &^= a
	return s
}

// Pending reports whether a is in flight.
func (s State) Pending(a Action) bool {
	return s.pending&a != 0
}

// WithDraft stores the admin form fields.
func (s State) WithDraft(d Draft) State {
	s.Draft = d
	return s
}

// ClearDraft empties the admin form.
func (s State) ClearDraft() State {
	s.Draft = Draft{}
	return s
}

// WithLoginEmail remembers the last email typed into the login form.
func (s State) WithLoginEmail(email string) State {
	s.LoginEmail = email
	return s
}

// Fail moves the state into the terminal error mode.
func (s State) Fail(msg string) State {
	s.Mode = ModeError
	s.Failure = msg
	return s
}

// UserID returns the session user id, or "" when there is no session.
func (s State) UserID() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.UserID
}

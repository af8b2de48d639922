// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package backend defines the managed-backend contract the fan hub talks to
// (auth provider, document store, live queries) and ships an implementation
// on top of the SQL stores and a change bus.
//
// Live results are delivered as channels. Each channel holds at most one
// pending value and a newer value replaces an unread older one, so a slow
// consumer always sees the most recent full result set.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"slices"
)

// Sentinel errors returned by the auth operations. Compare with errors.Is.
var (
	ErrNoSuchUser       = errors.New("no such user")
	ErrWrongPassword    = errors.New("wrong password")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidQuery     = errors.New("invalid query")
)

// ProviderPassword is the provider id attached to email/password sign-ins.
const ProviderPassword = "password"

// User is the identity bound to one client connection. Anonymous users
// carry no providers.
type User struct {
	UID       string
	Email     string
	Providers []string
}

// HasProvider reports whether the user signed in through the given provider.
func (u *User) HasProvider(id string) bool {
	return u != nil && slices.Contains(u.Providers, id)
}

// Anonymous reports whether the user has no credential providers.
func (u *User) Anonymous() bool {
	return u != nil && len(u.Providers) == 0
}

// FieldValue marks a field whose value the backend assigns at write time.
type FieldValue int

// ServerTimestamp is replaced by the backend clock (epoch seconds) when the
// document is written.
const ServerTimestamp FieldValue = 1

// Fields is the record passed to AddDocument. Values must be JSON
// serialisable or ServerTimestamp.
type Fields map[string]any

// Query selects documents under a path ordered by a numeric field.
type Query struct {
	Path       string
	OrderBy    string
	Descending bool
	Limit      int
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks that the query can be executed by a document store.
func (q Query) Validate() error {
	if q.Path == "" {
		return errors.Join(ErrInvalidQuery, errors.New("empty path"))
	}
	if !fieldName.MatchString(q.OrderBy) {
		return errors.Join(ErrInvalidQuery, errors.New("bad order field "+q.OrderBy))
	}
	if q.Limit <= 0 {
		return errors.Join(ErrInvalidQuery, errors.New("limit must be positive"))
	}
	return nil
}

// Document is one stored record. Data is the JSON object written by
// AddDocument with server values resolved.
type Document struct {
	ID   string
	Data json.RawMessage
}

// Gateway is the per-connection view of the backend.
type Gateway interface {
	SignInAnonymous(ctx context.Context) (*User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*User, error)
	SignOut(ctx context.Context) error

	// SubscribeAuthState delivers the current user (nil when signed out)
	// immediately and again on every change until ctx is done.
	SubscribeAuthState(ctx context.Context) (<-chan *User, error)

	AddDocument(ctx context.Context, path string, fields Fields) (string, error)

	// SubscribeQuery delivers the full result set immediately and again
	// after every change under q.Path until ctx is done.
	SubscribeQuery(ctx context.Context, q Query) (<-chan []Document, error)
}

// offer replaces any unread value in a one-slot channel with v.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

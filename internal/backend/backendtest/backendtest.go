// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package backendtest provides in-memory backend stores and a call-recording
// gateway for tests.
package backendtest

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fanhub/internal/backend"
	"fanhub/internal/models"
)

// Directory is an in-memory backend.Directory.
type Directory struct {
	mu    sync.Mutex
	users map[string]*models.User
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{users: make(map[string]*models.User)}
}

// Add registers an admin account. bcrypt.MinCost keeps tests fast.
func (d *Directory) Add(email, password string) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	u := &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		DisplayName:  "Admin",
		Role:         models.RoleAdmin,
	}
	d.mu.Lock()
	d.users[u.Email] = u
	d.mu.Unlock()
	return u
}

// FindByEmail implements backend.Directory.
func (d *Directory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[strings.ToLower(email)], nil
}

// CheckPassword implements backend.Directory.
func (d *Directory) CheckPassword(u *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// DocumentStore is an in-memory backend.DocumentStore.
type DocumentStore struct {
	mu   sync.Mutex
	seq  int
	docs []storedDoc

	// FailInsert, when set, is returned by Insert.
	FailInsert error
}

type storedDoc struct {
	seq  int
	path string
	doc  backend.Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{}
}

// Insert implements backend.DocumentStore.
func (s *DocumentStore) Insert(_ context.Context, path string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsert != nil {
		return "", s.FailInsert
	}
	s.seq++
	id := uuid.NewString()
	s.docs = append(s.docs, storedDoc{
		seq:  s.seq,
		path: path,
		doc:  backend.Document{ID: id, Data: slices.Clone(data)},
	})
	return id, nil
}

// Query implements backend.DocumentStore.
func (s *DocumentStore) Query(_ context.Context, q backend.Query) ([]backend.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	var matched []storedDoc
	for _, d := range s.docs {
		if d.path == q.Path {
			matched = append(matched, d)
		}
	}
	s.mu.Unlock()

	key := func(d storedDoc) float64 {
		var fields map[string]any
		if err := json.Unmarshal(d.doc.Data, &fields); err != nil {
			return 0
		}
		n, _ := fields[q.OrderBy].(float64)
		return n
	}
	slices.SortStableFunc(matched, func(a, b storedDoc) int {
		c := cmp.Or(cmp.Compare(key(a), key(b)), cmp.Compare(a.seq, b.seq))
		if q.Descending {
			return -c
		}
		return c
	})

	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	out := make([]backend.Document, len(matched))
	for i, d := range matched {
		out[i] = d.doc
	}
	return out, nil
}

// ErrInjected is a generic failure for tests that need an "other" error.
var ErrInjected = errors.New("injected failure")

// Call records one gateway operation.
type Call struct {
	Op     string
	Path   string
	Fields backend.Fields
}

// Recorder wraps a Gateway and records every mutating or subscribing call.
type Recorder struct {
	backend.Gateway

	mu    sync.Mutex
	calls []Call

	// FailAdd, when set, makes AddDocument fail without reaching the
	// wrapped gateway.
	FailAdd error
	// FailSubscribeAuth, when set, makes SubscribeAuthState fail.
	FailSubscribeAuth error
	// FailAnonymous, when set, makes SignInAnonymous fail.
	FailAnonymous error
	// Hold, when non-nil, blocks SignInWithPassword until it is closed.
	Hold chan struct{}
}

// NewRecorder wraps gw.
func NewRecorder(gw backend.Gateway) *Recorder {
	return &Recorder{Gateway: gw}
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Count returns how many calls were recorded for op.
func (r *Recorder) Count(op string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *Recorder) SignInAnonymous(ctx context.Context) (*backend.User, error) {
	r.record(Call{Op: "SignInAnonymous"})
	if r.FailAnonymous != nil {
		return nil, r.FailAnonymous
	}
	return r.Gateway.SignInAnonymous(ctx)
}

func (r *Recorder) SignInWithPassword(ctx context.Context, email, password string) (*backend.User, error) {
	r.record(Call{Op: "SignInWithPassword"})
	if r.Hold != nil {
		select {
		case <-r.Hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.Gateway.SignInWithPassword(ctx, email, password)
}

func (r *Recorder) SignOut(ctx context.Context) error {
	r.record(Call{Op: "SignOut"})
	return r.Gateway.SignOut(ctx)
}

func (r *Recorder) SubscribeAuthState(ctx context.Context) (<-chan *backend.User, error) {
	r.record(Call{Op: "SubscribeAuthState"})
	if r.FailSubscribeAuth != nil {
		return nil, r.FailSubscribeAuth
	}
	return r.Gateway.SubscribeAuthState(ctx)
}

func (r *Recorder) AddDocument(ctx context.Context, path string, fields backend.Fields) (string, error) {
	r.record(Call{Op: "AddDocument", Path: path, Fields: fields})
	if r.FailAdd != nil {
		return "", r.FailAdd
	}
	return r.Gateway.AddDocument(ctx, path, fields)
}

func (r *Recorder) SubscribeQuery(ctx context.Context, q backend.Query) (<-chan []backend.Document, error) {
	r.record(Call{Op: "SubscribeQuery", Path: q.Path})
	return r.Gateway.SubscribeQuery(ctx, q)
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package backend

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Client is one visitor's connection to the backend. It implements Gateway.
type Client struct {
	svc     *Service
	persist func(*User)

	mu       sync.Mutex
	user     *User
	watchers map[chan *User]struct{}
}

var _ Gateway = (*Client)(nil)

// CurrentUser returns the signed-in user, or nil.
func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// SignInAnonymous signs in as a fresh anonymous user when nobody is signed
// in. Any existing user, anonymous or not, is returned without an auth
// event.
func (c *Client) SignInAnonymous(ctx context.Context) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.user != nil {
		u := c.user
		c.mu.Unlock()
		return u, nil
	}
	u := &User{UID: uuid.NewString()}
	persist := c.publishLocked(u)
	c.mu.Unlock()

	persist()
	return u, nil
}

// SignInWithPassword checks the credentials against the directory. It
// returns ErrNoSuchUser or ErrWrongPassword for credential failures.
// Accounts without the admin role are treated as unknown.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*User, error) {
	account, err := c.svc.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if account == nil || !account.IsAdmin() {
		return nil, ErrNoSuchUser
	}
	if !c.svc.users.CheckPassword(account, password) {
		return nil, ErrWrongPassword
	}

	u := &User{
		UID:       account.ID.String(),
		Email:     account.Email,
		Providers: []string{ProviderPassword},
	}
	c.setUser(u)
	return u, nil
}

// SignOut clears the signed-in user.
func (c *Client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.setUser(nil)
	return nil
}

// SubscribeAuthState implements Gateway.
func (c *Client) SubscribeAuthState(ctx context.Context) (<-chan *User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := make(chan *User, 1)
	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	offer(ch, c.user)
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.watchers, ch)
		close(ch)
		c.mu.Unlock()
	}()
	return ch, nil
}

// AddDocument writes a document. Only password users may write.
func (c *Client) AddDocument(ctx context.Context, path string, fields Fields) (string, error) {
	if !c.CurrentUser().HasProvider(ProviderPassword) {
		return "", fmt.Errorf("add document %s: %w", path, ErrPermissionDenied)
	}
	return c.svc.addDocument(ctx, path, fields)
}

// SubscribeQuery implements Gateway.
func (c *Client) SubscribeQuery(ctx context.Context, q Query) (<-chan []Document, error) {
	return c.svc.subscribeQuery(ctx, q)
}

func (c *Client) setUser(u *User) {
	c.mu.Lock()
	persist := c.publishLocked(u)
	c.mu.Unlock()

	persist()
}

// publishLocked stores u and notifies watchers. The returned func persists
// u and must be called after c.mu is released.
func (c *Client) publishLocked(u *User) func() {
	c.user = u
	for ch := range c.watchers {
		offer(ch, u)
	}
	if c.persist == nil {
		return func() {}
	}
	return func() { c.persist(u) }
}

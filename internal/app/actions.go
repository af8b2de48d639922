// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package app

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"fanhub/internal/backend"
	"fanhub/internal/models"
	"fanhub/internal/view"
)

// Toast messages.
const (
	MsgLoginOK          = "Admin access granted."
	MsgNoSuchUser       = "No admin found with that email."
	MsgWrongPassword    = "Incorrect password."
	MsgLoginFailed      = "Login failed. Check your credentials."
	MsgFieldsRequired   = "All fields are required."
	MsgHeadlineTooLong  = "Headline must be 100 characters or fewer."
	MsgInvalidCategory  = "Please select a valid category."
	MsgInvalidImageURL  = "Image URL must be an absolute http(s) link."
	MsgPublished        = "Content published!"
	MsgPublishFailed    = "Failed to publish content."
	MsgLogoutFailed     = "Failed to sign out."
	msgActionInProgress = "Please wait for the current request to finish."
)

// Result is the outcome of an action: the state after the action settled
// and the toast to show the visitor who triggered it, if any.
type Result struct {
	State view.State
	Toast *view.Toast
}

// PublishInput is the raw admin form.
type PublishInput struct {
	Headline string
	Body     string
	ImageURL string
	Category string
}

func (in PublishInput) draft() view.Draft {
	return view.Draft{
		Headline: in.Headline,
		Body:     in.Body,
		ImageURL: in.ImageURL,
		Category: in.Category,
	}
}

// ToggleLoginForm shows or hides the login form.
func (a *App) ToggleLoginForm(ctx context.Context) Result {
	s, err := a.Do(ctx, view.State.ToggleLoginForm)
	if err != nil {
		return Result{State: a.State()}
	}
	return Result{State: s}
}

// Login signs in with email and password. The resulting session change
// arrives through the auth state stream.
func (a *App) Login(ctx context.Context, email, password string) (res Result) {
	if _, acquired, err := a.acquire(ctx, view.ActionLogin, func(s view.State) view.State {
		return s.WithLoginEmail(email)
	}); err != nil || !acquired {
		return a.busy(err)
	}

	var toast *view.Toast
	succeeded := false
	defer func() {
		if r := recover(); r != nil {
			slog.Error("login panicked", "panic", r)
			toast, succeeded = view.Error(MsgLoginFailed), false
		}
		res = a.release(ctx, view.ActionLogin, toast, func(s view.State) view.State {
			if succeeded {
				return s.HideLoginForm()
			}
			return s
		})
	}()

	_, err := a.gw.SignInWithPassword(ctx, email, password)
	switch {
	case err == nil:
		succeeded = true
		toast = view.Success(MsgLoginOK)
	case errors.Is(err, backend.ErrNoSuchUser):
		toast = view.Error(MsgNoSuchUser)
	case errors.Is(err, backend.ErrWrongPassword):
		toast = view.Error(MsgWrongPassword)
	default:
		slog.Error("admin login failed", "error", err)
		toast = view.Error(MsgLoginFailed)
	}
	return res
}

// Logout signs the admin out and closes the login form.
func (a *App) Logout(ctx context.Context) (res Result) {
	if _, acquired, err := a.acquire(ctx, view.ActionLogout, nil); err != nil || !acquired {
		return a.busy(err)
	}

	var toast *view.Toast
	succeeded := false
	defer func() {
		if r := recover(); r != nil {
			slog.Error("logout panicked", "panic", r)
			toast, succeeded = view.Error(MsgLogoutFailed), false
		}
		res = a.release(ctx, view.ActionLogout, toast, func(s view.State) view.State {
			if succeeded {
				return s.HideLoginForm()
			}
			return s
		})
	}()

	if err := a.gw.SignOut(ctx); err != nil {
		slog.Error("sign out failed", "error", err)
		toast = view.Error(MsgLogoutFailed)
		return res
	}
	succeeded = true
	return res
}

// Publish validates the admin form and writes one news post. Invalid input
// never reaches the backend. The draft is cleared only on success.
func (a *App) Publish(ctx context.Context, in PublishInput) (res Result) {
	fields, msg := validatePublish(in)
	if msg != "" {
		s, err := a.Do(ctx, func(s view.State) view.State { return s.WithDraft(in.draft()) })
		if err != nil {
			s = a.State()
		}
		return Result{State: s, Toast: view.Error(msg)}
	}

	s, acquired, err := a.acquire(ctx, view.ActionPublish, func(s view.State) view.State {
		return s.WithDraft(in.draft())
	})
	if err != nil || !acquired {
		return a.busy(err)
	}

	var toast *view.Toast
	succeeded := false
	defer func() {
		if r := recover(); r != nil {
			slog.Error("publish panicked", "panic", r)
			toast, succeeded = view.Error(MsgPublishFailed), false
		}
		res = a.release(ctx, view.ActionPublish, toast, func(s view.State) view.State {
			if succeeded {
				return s.ClearDraft()
			}
			return s
		})
	}()

	fields["author"] = s.UserID()
	id, err := a.gw.AddDocument(ctx, a.news.Path, fields)
	if err != nil {
		slog.Error("publish failed", "path", a.news.Path, "error", err)
		toast = view.Error(MsgPublishFailed)
		return res
	}
	slog.Info("news published", "id", id, "author", s.UserID())
	succeeded = true
	toast = view.Success(MsgPublished)
	return res
}

// validatePublish returns the document fields for in, or the toast message
// describing why in cannot be published.
func validatePublish(in PublishInput) (backend.Fields, string) {
	headline := strings.TrimSpace(in.Headline)
	body := strings.TrimSpace(in.Body)
	category := strings.TrimSpace(in.Category)
	imageURL := strings.TrimSpace(in.ImageURL)

	if headline == "" || body == "" || category == "" {
		return nil, MsgFieldsRequired
	}
	if utf8.RuneCountInString(headline) > models.MaxHeadlineLen {
		return nil, MsgHeadlineTooLong
	}
	if !models.Category(category).Valid() {
		return nil, MsgInvalidCategory
	}

	var image any
	if imageURL != "" {
		if !validImageURL(imageURL) {
			return nil, MsgInvalidImageURL
		}
		image = imageURL
	}

	return backend.Fields{
		"headline":  headline,
		"body":      body,
		"imageUrl":  image,
		"category":  category,
		"timestamp": backend.ServerTimestamp,
	}, ""
}

func validImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// acquire marks action a as in flight, applying prep first. acquired is
// false when a was already in flight; the state is then left unchanged.
func (a *App) acquire(ctx context.Context, act view.Action, prep func(view.State) view.State) (view.State, bool, error) {
	acquired := false
	s, err := a.Do(ctx, func(s view.State) view.State {
		next, ok := s.Acquire(act)
		if !ok {
			return s
		}
		acquired = true
		if prep != nil {
			next = prep(next)
		}
		return next
	})
	return s, acquired, err
}

// release clears the in-flight mark for act and applies settle. It runs
// even when the request context is already cancelled.
func (a *App) release(ctx context.Context, act view.Action, toast *view.Toast, settle func(view.State) view.State) Result {
	s, err := a.Do(context.WithoutCancel(ctx), func(s view.State) view.State {
		return settle(s.Release(act))
	})
	if err != nil {
		s = a.State()
	}
	return Result{State: s, Toast: toast}
}

func (a *App) busy(err error) Result {
	if err != nil {
		return Result{State: a.State()}
	}
	return Result{State: a.State(), Toast: view.Error(msgActionInProgress)}
}

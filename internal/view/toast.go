// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package view

// ToastKind is the visual style of a toast.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
)

// Toast is a transient notification shown to the visitor who triggered an
// action. Toasts are not part of State: they are returned to the caller
// and never re-rendered.
type Toast struct {
	Kind    ToastKind
	Message string
}

// Success returns a success toast.
func Success(msg string) *Toast { return &Toast{Kind: ToastSuccess, Message: msg} }

// Error returns an error toast.
func Error(msg string) *Toast { return &Toast{Kind: ToastError, Message: msg} }

// Title returns the heading shown above the message.
func (t Toast) Title() string {
	if t.Kind == ToastSuccess {
		return "SUCCESS"
	}
	return "ERROR"
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package render turns view state into HTML. Rendering is a pure function
// of its inputs: the same state and token always produce the same bytes,
// so any fragment can be re-sent to the browser at any time.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"fanhub/internal/models"
	"fanhub/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

// Element ids targeted by live patches.
const (
	AppID        = "app"
	TitleID      = "docTitle"
	MessageBoxID = "messageBox"
)

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
	opts Options
}

// appData is what the app and page templates execute against.
type appData struct {
	Model
	CSRFToken string
}

// feedData is what the standalone feed page executes against.
type feedData struct {
	DocTitle  string
	MainTitle string
	Cards     []Card
}

// New parses the embedded templates.
func New(opts Options) (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, opts: opts}, nil
}

// Options returns the presentation options the renderer was built with.
func (rn *Renderer) Options() Options { return rn.opts }

// Build derives the template model for s.
func (rn *Renderer) Build(s view.State) Model {
	return Build(s, rn.opts)
}

// Page renders the full HTML document for s.
func (rn *Renderer) Page(w io.Writer, s view.State, csrfToken string) error {
	return rn.tmpl.ExecuteTemplate(w, "page", rn.appData(s, csrfToken))
}

// App renders the #app element for s.
func (rn *Renderer) App(w io.Writer, s view.State, csrfToken string) error {
	return rn.tmpl.ExecuteTemplate(w, "app", rn.appData(s, csrfToken))
}

// Title renders the <title> element for s.
func (rn *Renderer) Title(w io.Writer, s view.State) error {
	return rn.tmpl.ExecuteTemplate(w, "title", rn.Build(s))
}

// Toast renders one notification for the #messageBox container.
func (rn *Renderer) Toast(w io.Writer, t view.Toast) error {
	return rn.tmpl.ExecuteTemplate(w, "toast", t)
}

// Feed renders the standalone public feed page.
func (rn *Renderer) Feed(w io.Writer, posts []models.NewsPost) error {
	site := rn.opts.site()
	return rn.tmpl.ExecuteTemplate(w, "feed", feedData{
		DocTitle:  site + " | Fan Hub",
		MainTitle: site + ": FAN HUB",
		Cards:     Cards(posts, rn.opts),
	})
}

// String renders with fn into a string.
func String(fn func(io.Writer) error) (string, error) {
	var b strings.Builder
	if err := fn(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (rn *Renderer) appData(s view.State, csrfToken string) appData {
	return appData{Model: rn.Build(s), CSRFToken: csrfToken}
}

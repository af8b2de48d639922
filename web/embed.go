// Package web provides the embedded static assets served at /static/.
package web

import (
	"embed"
	"io/fs"
)

// StaticFS embeds the web/static/ directory tree.
//
//go:embed all:static
var StaticFS embed.FS

// Static returns the asset tree rooted at static/, ready for
// http.FileServer.
func Static() fs.FS {
	sub, err := fs.Sub(StaticFS, "static")
	if err != nil {
		// The directory is embedded at build time; a failure here is a
		// build defect.
		panic(err)
	}
	return sub
}

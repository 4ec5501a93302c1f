// Package web embeds the Beat Studio browser UI so the server ships as a
// single binary.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// Static returns the embedded UI files rooted at the static directory.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The subtree name is fixed at compile time.
		panic(err)
	}

	return http.FS(sub)
}

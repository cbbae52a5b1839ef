// Package web holds the HTML templates of the settings editor.
package web

import "embed"

// Templates holds the page templates rendered by the api package.
//
//go:embed templates/*.html
var Templates embed.FS

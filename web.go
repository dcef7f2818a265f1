// Package gameshub embeds the browser client served by cmd/server.
package gameshub

import "embed"

// WebFS holds the static client under web/.
//
//go:embed web
var WebFS embed.FS

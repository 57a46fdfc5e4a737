package bliss

import "embed"

// EmbeddedAssets holds the files bliss ships with: the stylesheet and
// scripts served under /public/ and the Markdown static pages.
//
//go:embed embedded/public/* embedded/pages/*.md
var EmbeddedAssets embed.FS

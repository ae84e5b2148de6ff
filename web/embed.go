package web

import "embed"

// Templates embeds the PDF report templates.
//
//go:embed templates/reports/*.html
var Templates embed.FS

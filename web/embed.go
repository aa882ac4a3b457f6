// Package web holds the kiosk and download page templates plus their
// static assets, embedded into the binary.
package web

import "embed"

// FS contains the embedded web templates and static assets.
//
//go:embed *.tmpl.html css/* js/*
var FS embed.FS

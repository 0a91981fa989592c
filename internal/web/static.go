package web

import (
	"embed"
)

// staticFiles holds the control page served at / and under /static/.
//
//go:embed static/*
var staticFiles embed.FS

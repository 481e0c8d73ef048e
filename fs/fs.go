// Package appfs holds the files embedded into the binaries: SQL migrations and email templates.
package appfs

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql templates/email/*
var FS embed.FS

func Glob(pattern string) ([]string, error) {
	return fs.Glob(FS, pattern)
}

package core

import (
	"strings"

	"github.com/volatiletech/null/v8"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NullString cleans `s` and returns a null.String that is invalid (SQL NULL) when empty.
func NullString(s string) null.String {
	s = CleanString(s)
	return null.NewString(s, s != "")
}

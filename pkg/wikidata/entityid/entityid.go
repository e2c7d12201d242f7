// Package entityid recognizes Wikibase entity ids. It has no internal
// imports so config validation and the API client can share it.
package entityid

import "regexp"

var pattern = regexp.MustCompile(`^[QPL][1-9][0-9]*$`)

// Valid reports whether s looks like an item, property or lexeme id.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

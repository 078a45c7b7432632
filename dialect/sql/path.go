package sql

import (
	"fmt"
	"strings"
)

// Path returns the placeholder of a property path: ${alias.field}.
func Path(path string) string {
	return "${" + path + "}"
}

// SplitPath splits a property path at its last dot into the alias and the
// field name.
func SplitPath(path string) (alias, field string, ok bool) {
	i := strings.LastIndexByte(path, '.')
	if i <= 0 || i == len(path)-1 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}

// Expand replaces every ${path} placeholder in text with the result of
// resolve. It stops at the first path that fails to resolve, and fails on
// unterminated placeholders.
func Expand(text string, resolve func(path string) (string, error)) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	for {
		i := strings.Index(text, "${")
		if i < 0 {
			b.WriteString(text)
			return b.String(), nil
		}
		j := strings.IndexByte(text[i+2:], '}')
		if j < 0 {
			return "", fmt.Errorf("sql: unterminated placeholder in %q", text[i:])
		}
		column, err := resolve(text[i+2 : i+2+j])
		if err != nil {
			return "", err
		}
		b.WriteString(text[:i])
		b.WriteString(column)
		text = text[i+2+j+1:]
	}
}

// Placeholders returns the paths of the ${path} placeholders in text, in
// order of appearance.
func Placeholders(text string) []string {
	var paths []string
	for {
		i := strings.Index(text, "${")
		if i < 0 {
			return paths
		}
		j := strings.IndexByte(text[i+2:], '}')
		if j < 0 {
			return paths
		}
		paths = append(paths, text[i+2:i+2+j])
		text = text[i+2+j+1:]
	}
}

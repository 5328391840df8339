// Package errors derives metric-friendly labels from Go errors.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"
)

// Classify reduces an error chain to a stable tag value: the innermost
// error's concrete type, lowercased, with package separators flattened to
// underscores. Returns "" for nil.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	for {
		inner := goerrors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(t.String())
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}

// Package errors derives low-cardinality error class names for metric tags and notifications.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"
)

// Classifier is implemented by errors that know their own class, e.g. subprocess failures.
type Classifier interface {
	ErrorClass() string
}

// Classify returns a normalized error class suitable for tagging metrics and logs.
// An error in the chain implementing Classifier wins; context errors map to
// "timeout" and "canceled"; otherwise the innermost concrete type name is used.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var c Classifier
	if goerrors.As(err, &c) {
		if class := strings.TrimSpace(c.ErrorClass()); class != "" {
			return class
		}
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if goerrors.Is(err, context.Canceled) {
		return "canceled"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}

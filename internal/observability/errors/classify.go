// Package errors turns Go errors into stable tag values for metrics.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"
)

// Classify returns a normalized name for err usable as a metric tag value.
// Context cancellation and deadline errors get fixed names; everything else
// is named after the innermost concrete error type.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if goerrors.Is(err, context.Canceled) {
		return "canceled"
	}
	if goerrors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}

	for {
		inner := goerrors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}

	return typeName(err)
}

func typeName(err error) string {
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

package hxview

import (
	"errors"
	"fmt"
)

// Sentinel errors for view, router and application operations.
var (
	ErrMissingBinding = errors.New("hxview: missing binding")
	ErrTemplate       = errors.New("hxview: template error")
	ErrNoRoute        = errors.New("hxview: no route matches")
	ErrViewNotFound   = errors.New("hxview: view not found")
	ErrModelNotFound  = errors.New("hxview: model not found")
	ErrLoadFailed     = errors.New("hxview: view load failed")
	ErrSuperseded     = errors.New("hxview: navigation superseded")
	ErrClosed         = errors.New("hxview: closed")
)

// BindingKind names the declaration a BindingError refers to.
type BindingKind string

const (
	KindRegion  BindingKind = "region"
	KindUI      BindingKind = "ui"
	KindSubview BindingKind = "subview"
	KindElement BindingKind = "el"
)

// BindingError reports a declared binding that could not be satisfied:
// an unknown region, a UI selector that matched nothing, a nil subview
// factory or a missing mount element. It matches ErrMissingBinding with
// errors.Is.
type BindingError struct {
	Kind BindingKind
	View string
	Key  string
	Err  error
}

func (e *BindingError) Error() string {
	msg := fmt.Sprintf("hxview: %s: missing %s binding %q", e.View, e.Kind, e.Key)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrMissingBinding and the underlying cause.
func (e *BindingError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMissingBinding}
	}
	return []error{ErrMissingBinding, e.Err}
}

// IsMissingBinding checks if err is a binding error.
func IsMissingBinding(err error) bool {
	return errors.Is(err, ErrMissingBinding)
}

// IsTemplateError checks if err came from producing markup.
func IsTemplateError(err error) bool {
	return errors.Is(err, ErrTemplate)
}

// IsNotFound checks if err means no route, no view module or no model
// exists for a navigation. LoadModel implementations wrap ErrModelNotFound
// when the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoRoute) || errors.Is(err, ErrViewNotFound) || errors.Is(err, ErrModelNotFound)
}

// IsSuperseded checks if a navigation lost to a newer one.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}

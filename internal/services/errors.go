package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Error carries component context alongside a sentinel marker so callers can
// classify failures with errors.Is and still surface a readable message.
type Error struct {
	Marker    error
	Component string
	Operation string
	Message   string
	Cause     error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Component, e.Operation, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", detail, e.Cause)
	}
	return detail
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Marker != nil {
		errs = append(errs, e.Marker)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// Wrap builds an error that includes component context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, cause error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker:    marker,
		Component: component,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}

// Detail is the structured view of a wrapped service error used by failure logs.
type Detail struct {
	Kind      string
	Component string
	Operation string
	Message   string
	Cause     error
}

// Details extracts structured failure context from an error chain. Errors not
// built with Wrap yield a Detail with only the message populated.
func Details(err error) Detail {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		kind := "transient failure"
		if svcErr.Marker != nil {
			kind = svcErr.Marker.Error()
		}
		return Detail{
			Kind:      kind,
			Component: svcErr.Component,
			Operation: svcErr.Operation,
			Message:   svcErr.Error(),
			Cause:     svcErr.Cause,
		}
	}
	detail := Detail{}
	if err != nil {
		detail.Message = err.Error()
	}
	return detail
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

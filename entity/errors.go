// ABOUTME: Error taxonomy for entity operations
// ABOUTME: Field-level validation errors plus not-found and busy sentinels

package entity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound reports an identity absent from the backing store.
	ErrNotFound = errors.New("entity not found")
	// ErrInvalid matches every FieldErrors value.
	ErrInvalid = errors.New("invalid input")
	// ErrBusy rejects form actions while a submission is outstanding.
	ErrBusy = errors.New("submission in progress")
	// ErrStore wraps backing-store failures that are not a missing identity.
	ErrStore = errors.New("backing store failure")
)

// FieldErrors maps a UI field name to its validation message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrInvalid) match any FieldErrors.
func (e FieldErrors) Is(target error) bool {
	return target == ErrInvalid
}

// Add records msg for field unless the field already has a message.
func (e FieldErrors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

// AsFieldErrors extracts field errors from err, if any.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

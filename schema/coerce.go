// ABOUTME: Coercion of raw text input into typed field values
// ABOUTME: Used by forms, CLI flags, and HTML posts that only carry strings

package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Coerce converts raw text for the named UI field into the value shape the
// field is bound to. Empty input yields nil for every non-string kind.
func (m *Mapping) Coerce(ui, raw string) (any, error) {
	f, ok := m.byUI[ui]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", m.collection, ui, ErrUnknownField)
	}

	raw = strings.TrimSpace(raw)
	if f.kind == KindString {
		return raw, nil
	}
	if raw == "" {
		return nil, nil
	}

	switch f.kind {
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a whole number: %w", ui, raw, ErrInvalidValue)
		}
		return n, nil
	case KindFloat:
		n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number: %w", ui, raw, ErrInvalidValue)
		}
		return n, nil
	case KindBool:
		switch strings.ToLower(raw) {
		case "on", "yes", "y":
			return true, nil
		case "off", "no", "n":
			return false, nil
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean: %w", ui, raw, ErrInvalidValue)
		}
		return b, nil
	case KindTime:
		t, err := ParseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a timestamp: %w", ui, raw, ErrInvalidValue)
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", ui, ErrInvalidValue)
	}
	return v, nil
}

// CoerceAll coerces a set of raw inputs, collecting per-field failures.
func (m *Mapping) CoerceAll(raw map[string]string) (map[string]any, map[string]string) {
	values := make(map[string]any, len(raw))
	var failures map[string]string
	for k, v := range raw {
		coerced, err := m.Coerce(k, v)
		if err != nil {
			if failures == nil {
				failures = make(map[string]string)
			}
			failures[k] = err.Error()
			continue
		}
		values[k] = coerced
	}
	return values, failures
}

// ParseTime accepts RFC 3339 timestamps and YYYY-MM-DD dates.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// ABOUTME: Synchronous field validation rules
// ABOUTME: Required, format, numeric, date, and enumeration checks keyed by UI field

package entity

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/harperreed/pagen-admin/schema"
	"github.com/harperreed/pagen-admin/store"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
)

// Rule checks one value and returns a message on failure. present is false
// when the field is absent from the input entirely.
type Rule func(value any, present bool) string

// Rules is the validator for one entity type.
type Rules map[string][]Rule

// Validate checks values. In partial mode absent fields are skipped, which is
// how updates carrying only the changed fields are checked.
func (r Rules) Validate(values map[string]any, partial bool) FieldErrors {
	errs := FieldErrors{}
	for field, rules := range r {
		v, present := values[field]
		if partial && !present {
			continue
		}
		for _, rule := range rules {
			if msg := rule(v, present); msg != "" {
				errs.Add(field, msg)
				break
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// Required rejects absent, nil, and whitespace-only values.
func Required(msg string) Rule {
	return func(v any, present bool) string {
		if !present || isBlank(v) {
			return msg
		}
		return ""
	}
}

// Pattern rejects non-blank strings not matching re. Blank values pass;
// pair it with Required when the field is mandatory.
func Pattern(re *regexp.Regexp, msg string) Rule {
	return func(v any, _ bool) string {
		if isBlank(v) {
			return ""
		}
		s, ok := v.(string)
		if !ok || !re.MatchString(strings.TrimSpace(s)) {
			return msg
		}
		return ""
	}
}

// Email checks the address shape.
func Email(msg string) Rule { return Pattern(emailPattern, msg) }

// Phone checks digits with optional +, spaces, dashes, and parentheses.
func Phone(msg string) Rule { return Pattern(phonePattern, msg) }

// Positive requires a number strictly greater than zero.
func Positive(msg string) Rule {
	return func(v any, _ bool) string {
		n, ok := toFloat(v)
		if !ok || n <= 0 {
			return msg
		}
		return ""
	}
}

// Between requires a number in [lo, hi]. Blank values pass.
func Between(lo, hi float64, msg string) Rule {
	return func(v any, _ bool) string {
		if isBlank(v) {
			return ""
		}
		n, ok := toFloat(v)
		if !ok || n < lo || n > hi {
			return msg
		}
		return ""
	}
}

// Date requires a parseable RFC 3339 timestamp or YYYY-MM-DD date.
func Date(msg string) Rule {
	return func(v any, _ bool) string {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return msg
		}
		if _, err := schema.ParseTime(strings.TrimSpace(s)); err != nil {
			return msg
		}
		return ""
	}
}

// OneOf requires the value to be a member of allowed. Blank values pass.
func OneOf(field string, allowed []string) Rule {
	return func(v any, _ bool) string {
		if isBlank(v) {
			return ""
		}
		s, ok := v.(string)
		if !ok || !slices.Contains(allowed, s) {
			return fmt.Sprintf("invalid %s: %v", field, v)
		}
		return ""
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := store.ToInt64(v); ok {
		if _, isString := v.(string); isString {
			return 0, false
		}
		return float64(i), true
	}
	return 0, false
}

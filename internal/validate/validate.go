// Package validate collects field-level input errors.
//
// Handlers decode a request, run the rules for each field and return the
// collected Errors as a 422 body keyed by field name:
//
//	v := validate.Errors{}
//	v.Length("name", in.Name, 10, 100)
//	if err := v.Err(); err != nil {
//	    return err
//	}
package validate

import (
	"fmt"
	"net/mail"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"
)

// Errors maps a field name to its failure messages, in the order they were found.
type Errors map[string][]string

// Add records a message against a field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Err returns e as an error, or nil when no rule failed.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Error lists every failure, sorted by field for stable output.
func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Required fails when a string field is missing or blank.
func (e Errors) Required(field string, value *string) bool {
	if value == nil || strings.TrimSpace(*value) == "" {
		e.Add(field, fmt.Sprintf("The %s field is required.", label(field)))
		return false
	}
	return true
}

// Length requires a string field whose character count lies in [minLen, maxLen].
func (e Errors) Length(field string, value *string, minLen, maxLen int) bool {
	if !e.Required(field, value) {
		return false
	}
	n := utf8.RuneCountInString(*value)
	switch {
	case n < minLen:
		e.Add(field, fmt.Sprintf("The %s field must be at least %d characters.", label(field), minLen))
		return false
	case n > maxLen:
		e.Add(field, fmt.Sprintf("The %s field must not be greater than %d characters.", label(field), maxLen))
		return false
	}
	return true
}

// MinLength requires a string field of at least minLen characters.
func (e Errors) MinLength(field string, value *string, minLen int) bool {
	if !e.Required(field, value) {
		return false
	}
	if utf8.RuneCountInString(*value) < minLen {
		e.Add(field, fmt.Sprintf("The %s field must be at least %d characters.", label(field), minLen))
		return false
	}
	return true
}

// Email requires a bare address such as user@example.com.
func (e Errors) Email(field string, value *string) bool {
	if !e.Required(field, value) {
		return false
	}
	addr, err := mail.ParseAddress(*value)
	if err != nil || addr.Address != strings.TrimSpace(*value) || !strings.Contains(addr.Address, "@") {
		e.Add(field, fmt.Sprintf("The %s field must be a valid email address.", label(field)))
		return false
	}
	return true
}

// OneOf requires a string field whose value is one of allowed.
func (e Errors) OneOf(field string, value *string, allowed ...string) bool {
	if !e.Required(field, value) {
		return false
	}
	if !slices.Contains(allowed, *value) {
		e.Add(field, fmt.Sprintf("The selected %s is invalid.", label(field)))
		return false
	}
	return true
}

// Confirmed requires value to equal its confirmation field.
func (e Errors) Confirmed(field string, value, confirmation *string) bool {
	if value == nil || confirmation == nil || *value != *confirmation {
		e.Add(field, fmt.Sprintf("The %s field confirmation does not match.", label(field)))
		return false
	}
	return true
}

// Number requires a numeric field that is present and holds a number or a
// numeric string.
func (e Errors) Number(field string, value *Number) bool {
	if value == nil {
		e.Add(field, fmt.Sprintf("The %s field is required.", label(field)))
		return false
	}
	if !value.Valid() {
		e.WrongType(field, "number")
		return false
	}
	return true
}

// WrongType records a field whose JSON value had the wrong type, such as a
// string where a number belongs. kind is "number" or "string".
func (e Errors) WrongType(field, kind string) {
	e.Add(field, fmt.Sprintf("The %s field must be a %s.", label(field), kind))
}

// label turns a field key into the wording used in messages.
func label(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

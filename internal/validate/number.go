package validate

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// numericString matches decimal numbers written as strings, such as "25.5",
// "-3" or "1e3". Hex, NaN and Inf are not numbers here.
var numericString = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Number is a numeric request field. It accepts a JSON number or a numeric
// string and never fails decoding: a malformed value is kept as invalid so
// the Number rule reports it alongside every other field error.
type Number struct {
	value float64
	valid bool
}

// NewNumber returns a valid Number holding f.
func NewNumber(f float64) *Number {
	return &Number{value: f, valid: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil //nolint:nilerr // kept as invalid for the Number rule
		}
		s = strings.TrimSpace(s)
		if !numericString.MatchString(s) {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil //nolint:nilerr // out of range, kept as invalid
		}
		*n = Number{value: f, valid: true}
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil //nolint:nilerr // bool, object or array: kept as invalid
	}
	*n = Number{value: f, valid: true}
	return nil
}

// MarshalJSON writes the value as a JSON number.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.value)
}

// Float64 returns the parsed value, or 0 when the field was malformed.
func (n *Number) Float64() float64 {
	if n == nil {
		return 0
	}
	return n.value
}

// Valid reports whether the field held a number or a numeric string.
func (n *Number) Valid() bool {
	return n != nil && n.valid
}

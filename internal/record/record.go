// Package record defines the opaque weather observation the aggregation
// server, publisher, and query client all pass around: a mapping of field
// name to string or number, with one mandatory field, "id". Unknown fields
// are preserved verbatim on round-trip because we never unmarshal into a
// fixed struct.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformed is returned when a request body cannot be parsed as a JSON
// object, or contains a field whose value is not a string or a number.
var ErrMalformed = errors.New("record: body is not a valid observation object")

// ErrMissingID is returned when a parsed observation has no non-empty "id"
// field.
var ErrMissingID = errors.New("record: missing or empty \"id\" field")

// Observation is one station's weather record. Values are either string or
// json.Number (decoded with UseNumber so integers round-trip without
// drifting into float64 formatting).
type Observation map[string]any

// Parse decodes body into an Observation, rejecting anything that is not a
// flat JSON object of strings and numbers.
func Parse(body []byte) (Observation, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrMalformed)
	}

	for k, v := range raw {
		switch v.(type) {
		case string, json.Number:
		default:
			return nil, fmt.Errorf("%w: field %q is not a string or number", ErrMalformed, k)
		}
	}
	return Observation(raw), nil
}

// ID returns the observation's station id, and whether one was present and
// non-empty.
func (o Observation) ID() (string, bool) {
	v, ok := o["id"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Clone returns a shallow copy, safe to hand to a caller that will mutate
// the map without affecting the store's own copy.
func (o Observation) Clone() Observation {
	c := make(Observation, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}

// Equal reports whether o and other have the same fields, comparing number
// fields by their decimal string form (so "13.3" and json.Number("13.3")
// compare equal regardless of how each side was decoded).
func (o Observation) Equal(other Observation) bool {
	if len(o) != len(other) {
		return false
	}
	for k, v := range o {
		ov, ok := other[k]
		if !ok {
			return false
		}
		if fmt.Sprint(v) != fmt.Sprint(ov) {
			return false
		}
	}
	return true
}

// Package backend defines the pluggable serializer capability interface.
//
// The negotiation and validation core never touches a concrete codec library
// directly: it asks a Backend to move between bytes and Go values and to
// build validators for declared models. Two implementations ship with the
// module (stdjson and gojson) to keep the core backend-agnostic.
package backend

import (
	"reflect"
)

// Validator checks an already-decoded value against the model it was
// compiled for. Implementations must be safe for concurrent use: a single
// Validator is shared by every request hitting the same endpoint.
type Validator interface {
	Validate(value interface{}) error
}

// ValidatorFunc adapts a plain function to the Validator interface.
type ValidatorFunc func(value interface{}) error

func (f ValidatorFunc) Validate(value interface{}) error {
	return f(value)
}

// Backend is the minimal capability surface a serializer plugin must expose.
//
// Decode is the lenient request-side transform: type coercion rules may be
// relaxed. DecodeStrict is used when re-loading our own response bytes during
// response validation and must reject unknown fields and mismatched shapes.
type Backend interface {
	// Name identifies the backend in logs and error messages.
	Name() string

	// Decode deserializes data into the value pointed to by into.
	Decode(data []byte, into interface{}) error

	// DecodeStrict deserializes data into into, rejecting unknown fields.
	DecodeStrict(data []byte, into interface{}) error

	// Encode serializes value into bytes.
	Encode(value interface{}) ([]byte, error)

	// BuildValidator compiles a reusable validator for the given model type.
	// Building is expected to be expensive relative to Validate and is done
	// once per (endpoint, schema) pair at registration time.
	BuildValidator(model reflect.Type) (Validator, error)
}
